package domain

// FallbackCategory is assigned when no classification rule matches.
// It carries no rubric, so documents in it are never graded.
const FallbackCategory = "other"

// CategoryRule drives rule-based classification for one category.
// Category order in the rule table is part of the classification
// contract: the first matching category wins.
type CategoryRule struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
	Keywords   []string `yaml:"keywords"`
}

// Criterion is one weighted line item of a rubric.
type Criterion struct {
	Name      string  `yaml:"name"`
	Weight    float64 `yaml:"weight"`
	MaxPoints float64 `yaml:"max"`
}

// Rubric is the scoring schema for one category. The criterion max
// points sum to MaxScore; config loading validates this.
type Rubric struct {
	Category string      `yaml:"category"`
	MaxScore float64     `yaml:"max_score"`
	Criteria []Criterion `yaml:"criteria"`
}

// Criterion returns the criterion with the given (lower-cased) name.
func (r Rubric) Criterion(name string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

// GradeResult is the outcome of one grading attempt. Grading never
// fails: degraded outcomes (no rubric, service unavailable) are
// expressed through zeroed scores and explanatory feedback instead of
// errors.
type GradeResult struct {
	Category       string             `json:"category"`
	TotalScore     float64            `json:"total_score"`
	MaxScore       float64            `json:"max_score"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Feedback       string             `json:"feedback"`
}

// Classification is the advisory result of delegated classification.
// Confidence is 0.5 whenever the result came from the rule-based
// fallback.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}
