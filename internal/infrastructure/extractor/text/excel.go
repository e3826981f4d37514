package text

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Bounds on how much of a workbook is worth reading for keyword
// classification and grading.
const (
	maxSheets = 2
	maxRows   = 50
	maxCols   = 10
)

func (e *Extractor) extractExcel(name string, raw []byte) string {
	workbook, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		e.logger.Warn("could not open workbook", "file", name, "error", err)
		return ""
	}
	defer workbook.Close()

	var out strings.Builder
	for i, sheet := range workbook.GetSheetList() {
		if i >= maxSheets {
			break
		}
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			e.logger.Warn("could not read sheet", "file", name, "sheet", sheet, "error", err)
			continue
		}

		fmt.Fprintf(&out, "\n=== %s ===\n", sheet)
		for r, row := range rows {
			if r >= maxRows {
				break
			}
			cells := row
			if len(cells) > maxCols {
				cells = cells[:maxCols]
			}
			out.WriteString(strings.Join(cells, " "))
			out.WriteString("\n")
		}
	}
	return strings.TrimSpace(out.String())
}
