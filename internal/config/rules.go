package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

// RuleSet is the process-wide classification and scoring configuration.
// It is built once at startup and passed by value into components;
// nothing mutates it afterwards. Category order is significant: the
// classifier tries categories in the order listed here.
type RuleSet struct {
	Categories []domain.CategoryRule `yaml:"categories"`
	Rubrics    []domain.Rubric       `yaml:"rubrics"`
}

// Rubric returns the rubric for a category, if one is configured.
func (rs RuleSet) Rubric(category string) (domain.Rubric, bool) {
	for _, r := range rs.Rubrics {
		if r.Category == category {
			return r, true
		}
	}
	return domain.Rubric{}, false
}

// HasCategory reports whether the category appears in the rule table.
func (rs RuleSet) HasCategory(name string) bool {
	if name == domain.FallbackCategory {
		return true
	}
	for _, c := range rs.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// DefaultRuleSet returns the built-in category and rubric tables.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Categories: []domain.CategoryRule{
			{
				Name:       "essay",
				Extensions: []string{".pdf", ".docx", ".txt"},
				Keywords:   []string{"essay", "personal statement"},
			},
			{
				Name:       "transcript",
				Extensions: []string{".pdf", ".xlsx"},
				Keywords:   []string{"transcript", "academic record", "gpa"},
			},
			{
				Name:       "letter_of_recommendation",
				Extensions: []string{".pdf", ".docx"},
				Keywords:   []string{"letter", "recommendation", "reference"},
			},
		},
		Rubrics: []domain.Rubric{
			{
				Category: "essay",
				MaxScore: 100,
				Criteria: []domain.Criterion{
					{Name: "clarity", Weight: 0.25, MaxPoints: 25},
					{Name: "relevance", Weight: 0.25, MaxPoints: 25},
					{Name: "depth", Weight: 0.25, MaxPoints: 25},
					{Name: "grammar", Weight: 0.25, MaxPoints: 25},
				},
			},
			{
				Category: "transcript",
				MaxScore: 100,
				Criteria: []domain.Criterion{
					{Name: "gpa", Weight: 0.6, MaxPoints: 60},
					{Name: "course_rigor", Weight: 0.4, MaxPoints: 40},
				},
			},
			{
				Category: "letter_of_recommendation",
				MaxScore: 100,
				Criteria: []domain.Criterion{
					{Name: "strength", Weight: 0.5, MaxPoints: 50},
					{Name: "specificity", Weight: 0.5, MaxPoints: 50},
				},
			},
		},
	}
}

// LoadRuleSet returns the built-in tables, or the contents of the YAML
// override file when one is configured. The result is validated either
// way.
func LoadRuleSet(path string) (RuleSet, error) {
	rs := DefaultRuleSet()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return RuleSet{}, fmt.Errorf("read rules file: %w", err)
		}
		var loaded RuleSet
		if err := yaml.Unmarshal(raw, &loaded); err != nil {
			return RuleSet{}, fmt.Errorf("parse rules file: %w", err)
		}
		rs = loaded
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Validate checks the structural invariants of the rule tables.
func (rs RuleSet) Validate() error {
	seen := make(map[string]bool, len(rs.Categories))
	for _, c := range rs.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("rules: category with empty name")
		}
		if name == domain.FallbackCategory {
			return fmt.Errorf("rules: fallback category %q must not carry rules", domain.FallbackCategory)
		}
		if seen[name] {
			return fmt.Errorf("rules: duplicate category %q", name)
		}
		seen[name] = true
	}

	for _, r := range rs.Rubrics {
		if !seen[r.Category] {
			return fmt.Errorf("rules: rubric for unknown category %q", r.Category)
		}
		if r.MaxScore <= 0 {
			return fmt.Errorf("rules: rubric %q has non-positive max score", r.Category)
		}
		var sum float64
		for _, c := range r.Criteria {
			if c.Name != strings.ToLower(c.Name) {
				return fmt.Errorf("rules: rubric %q criterion %q must be lower case", r.Category, c.Name)
			}
			if c.MaxPoints <= 0 {
				return fmt.Errorf("rules: rubric %q criterion %q has non-positive max", r.Category, c.Name)
			}
			sum += c.MaxPoints
		}
		if math.Abs(sum-r.MaxScore) > 1e-9 {
			return fmt.Errorf("rules: rubric %q criterion points sum to %.2f, want %.2f", r.Category, sum, r.MaxScore)
		}
	}
	return nil
}
