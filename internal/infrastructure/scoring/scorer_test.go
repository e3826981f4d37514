package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/scholarworks/submission-pipeline/internal/config"
	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

type generatorStub struct {
	reply   string
	err     error
	prompts []string
}

func (g *generatorStub) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func singleCriterionRules() config.RuleSet {
	return config.RuleSet{
		Categories: []domain.CategoryRule{
			{Name: "essay", Extensions: []string{".pdf"}, Keywords: []string{"essay"}},
		},
		Rubrics: []domain.Rubric{
			{
				Category: "essay",
				MaxScore: 100,
				Criteria: []domain.Criterion{{Name: "overall", Weight: 1, MaxPoints: 100}},
			},
		},
	}
}

func TestGradeUnknownCategoryYieldsPlaceholder(t *testing.T) {
	s := NewScorer(config.DefaultRuleSet(), nil, 2000, 100, nil)

	got := s.Grade(context.Background(), "invalid_category", "Some content", "file.pdf")
	if got.TotalScore != 0 {
		t.Fatalf("expected zero total, got %v", got.TotalScore)
	}
	if got.MaxScore != 100 {
		t.Fatalf("expected default max 100, got %v", got.MaxScore)
	}
	if len(got.CriteriaScores) != 0 {
		t.Fatalf("expected empty criteria, got %v", got.CriteriaScores)
	}
	if !strings.Contains(got.Feedback, "No scoring rubric") {
		t.Fatalf("expected no-rubric feedback, got %q", got.Feedback)
	}
}

func TestGradeRuleBasedLengthAndQualityBonuses(t *testing.T) {
	s := NewScorer(singleCriterionRules(), nil, 2000, 100, nil)
	content := strings.Repeat("a", 501) + " excellent"

	got := s.Grade(context.Background(), "essay", content, "essay.pdf")
	// 50% base + 25% length + 15% quality of a 100-point criterion.
	if got.TotalScore != 90 {
		t.Fatalf("expected total 90, got %v", got.TotalScore)
	}
	if got.CriteriaScores["overall"] != 90 {
		t.Fatalf("expected criterion score 90, got %v", got.CriteriaScores["overall"])
	}
	if got.MaxScore != 100 {
		t.Fatalf("expected max 100, got %v", got.MaxScore)
	}
	if !strings.Contains(got.Feedback, "essay") {
		t.Fatalf("expected category in feedback, got %q", got.Feedback)
	}
}

func TestGradeRuleBasedBaseScoreOnly(t *testing.T) {
	s := NewScorer(config.DefaultRuleSet(), nil, 2000, 100, nil)

	got := s.Grade(context.Background(), "transcript", "short", "t.pdf")
	// 50% of each criterion max: 30 + 20.
	if got.TotalScore != 50 {
		t.Fatalf("expected total 50, got %v", got.TotalScore)
	}
	if got.CriteriaScores["gpa"] != 30 || got.CriteriaScores["course_rigor"] != 20 {
		t.Fatalf("unexpected criteria scores: %v", got.CriteriaScores)
	}
}

func TestGradeDelegatedPathParsesReply(t *testing.T) {
	gen := &generatorStub{reply: `SCORE: 82
CRITERIA_SCORES:
gpa: 50
course_rigor: 32
FEEDBACK: Strong record.
Consistent rigor across terms.`}
	s := NewScorer(config.DefaultRuleSet(), gen, 2000, 100, nil)

	got := s.Grade(context.Background(), "transcript", "GPA 3.9", "transcript.pdf")
	if got.TotalScore != 82 {
		t.Fatalf("expected total 82, got %v", got.TotalScore)
	}
	if got.CriteriaScores["gpa"] != 50 || got.CriteriaScores["course_rigor"] != 32 {
		t.Fatalf("unexpected criteria scores: %v", got.CriteriaScores)
	}
	if got.Feedback != "Strong record. Consistent rigor across terms." {
		t.Fatalf("unexpected feedback: %q", got.Feedback)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "course_rigor") {
		t.Fatalf("expected prompt enumerating criteria, got %v", gen.prompts)
	}
}

func TestGradeFallsBackToRulesOnServiceFailure(t *testing.T) {
	gen := &generatorStub{err: errors.New("dial tcp: connection refused")}
	s := NewScorer(singleCriterionRules(), gen, 2000, 100, nil)

	got := s.Grade(context.Background(), "essay", "tiny", "essay.pdf")
	if got.TotalScore != 50 {
		t.Fatalf("expected rule-based total 50, got %v", got.TotalScore)
	}
	if !strings.Contains(got.Feedback, "Rule-based grading") {
		t.Fatalf("expected rule-based feedback, got %q", got.Feedback)
	}
}

func TestGradeNeverExceedsRubricMax(t *testing.T) {
	gen := &generatorStub{reply: "SCORE: 250\nFEEDBACK: generous"}
	s := NewScorer(singleCriterionRules(), gen, 2000, 100, nil)

	got := s.Grade(context.Background(), "essay", "content", "essay.pdf")
	if got.TotalScore != 100 {
		t.Fatalf("expected clamp to 100, got %v", got.TotalScore)
	}
}
