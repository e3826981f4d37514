// Package rules implements deterministic, configuration-driven
// document classification.
package rules

import (
	"log/slog"
	"strings"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

// Classifier assigns categories by file extension and keyword rules.
// Categories are tried in configured order and the first match wins, so
// table order is part of the contract. The zero result is always the
// fallback category: classification is total.
type Classifier struct {
	categories []domain.CategoryRule
	logger     *slog.Logger
}

func New(categories []domain.CategoryRule, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{categories: categories, logger: logger}
}

func (c *Classifier) Classify(fileName, mimeType, content string) string {
	nameLower := strings.ToLower(fileName)
	contentLower := strings.ToLower(content)

	for _, rule := range c.categories {
		if rule.Name == domain.FallbackCategory {
			continue
		}

		if matchesExtension(nameLower, rule.Extensions) && matchesKeyword(nameLower, contentLower, rule.Keywords) {
			c.logger.Info("document classified", "file", fileName, "category", rule.Name, "rule", "extension+keyword")
			return rule.Name
		}

		// Keyword match alone is enough even when the extension differs.
		if matchesKeyword(nameLower, contentLower, rule.Keywords) {
			c.logger.Info("document classified", "file", fileName, "category", rule.Name, "rule", "keyword")
			return rule.Name
		}
	}

	c.logger.Warn("document unclassified, using fallback", "file", fileName, "mime_type", mimeType)
	return domain.FallbackCategory
}

func matchesExtension(nameLower string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(nameLower, ext) {
			return true
		}
	}
	return false
}

func matchesKeyword(nameLower, contentLower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(nameLower, kw) || (contentLower != "" && strings.Contains(contentLower, kw)) {
			return true
		}
	}
	return false
}
