package scoring

import (
	"fmt"
	"strings"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

// buildGradingPrompt is deterministic for a given rubric and content:
// criteria are enumerated in rubric order and the content excerpt is
// truncated at a fixed length.
func buildGradingPrompt(category, content, fileName string, rubric domain.Rubric, previewLength int) string {
	var criteria strings.Builder
	for _, c := range rubric.Criteria {
		fmt.Fprintf(&criteria, "- %s: weight %.2f, max %.0f points\n", c.Name, c.Weight, c.MaxPoints)
	}

	excerpt := content
	if len(excerpt) > previewLength {
		excerpt = excerpt[:previewLength] + "..."
	}

	return fmt.Sprintf(`You are an expert scholarship evaluator. Grade the following %s document.

Scoring Criteria:
%s
Document Name: %s
Content Preview:
%s

Provide your grading in this exact format:
SCORE: <numeric score out of %.0f>
CRITERIA_SCORES:
<criteria_name>: <score>
<criteria_name>: <score>
FEEDBACK: <detailed feedback>

Be objective and thorough in your evaluation.`,
		category, criteria.String(), fileName, excerpt, rubric.MaxScore)
}
