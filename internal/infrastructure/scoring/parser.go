package scoring

import (
	"strconv"
	"strings"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

// parseGradingReply reads the fixed grading grammar line by line,
// strictly on structure but tolerant of noise: unparsable numbers are
// ignored, criterion names that are not in the rubric are silently
// dropped, and everything after FEEDBACK: is captured as free text.
// The total is clamped to [0, max_score].
func parseGradingReply(category, reply string, rubric domain.Rubric) domain.GradeResult {
	var (
		totalScore     float64
		criteriaScores = make(map[string]float64)
		feedback       strings.Builder
		inFeedback     bool
	)

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "SCORE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "SCORE:"))
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				totalScore = v
			}

		case strings.HasPrefix(line, "CRITERIA_SCORES:"):
			inFeedback = false

		case strings.HasPrefix(line, "FEEDBACK:"):
			feedback.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "FEEDBACK:")))
			inFeedback = true

		case inFeedback:
			if line != "" {
				if feedback.Len() > 0 {
					feedback.WriteString(" ")
				}
				feedback.WriteString(line)
			}

		case strings.Contains(line, ":"):
			name, rawScore, _ := strings.Cut(line, ":")
			name = strings.ToLower(strings.TrimSpace(name))
			if _, ok := rubric.Criterion(name); !ok {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(rawScore), 64); err == nil {
				criteriaScores[name] = v
			}
		}
	}

	return domain.GradeResult{
		Category:       category,
		TotalScore:     clamp(totalScore, 0, rubric.MaxScore),
		MaxScore:       rubric.MaxScore,
		CriteriaScores: criteriaScores,
		Feedback:       strings.TrimSpace(feedback.String()),
	}
}
