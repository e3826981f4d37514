package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
	"github.com/scholarworks/submission-pipeline/internal/core/ports"
)

// Classifier is the delegated, advisory classification mode. Its output
// is never required for the pipeline: any failure falls back to the
// deterministic rule-based classifier at a fixed 0.5 confidence.
type Classifier struct {
	generator     ports.TextGenerator
	fallback      ports.Classifier
	previewLength int
	logger        *slog.Logger
}

func NewClassifier(generator ports.TextGenerator, fallback ports.Classifier, previewLength int, logger *slog.Logger) *Classifier {
	if previewLength <= 0 {
		previewLength = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		generator:     generator,
		fallback:      fallback,
		previewLength: previewLength,
		logger:        logger,
	}
}

const fallbackConfidence = 0.5

func (c *Classifier) ClassifyWithConfidence(ctx context.Context, fileName, content string) domain.Classification {
	if c.generator == nil {
		return c.ruleBased(fileName, content)
	}

	reply, err := c.generator.Generate(ctx, buildClassificationPrompt(fileName, content, c.previewLength))
	if err != nil {
		c.logger.Warn("delegated classification failed, using rules", "file", fileName, "error", err)
		return c.ruleBased(fileName, content)
	}

	result, err := parseClassificationReply(reply)
	if err != nil {
		c.logger.Warn("malformed classification reply, using rules", "file", fileName, "error", err)
		return c.ruleBased(fileName, content)
	}

	c.logger.Info("delegated classification", "file", fileName, "category", result.Category, "confidence", result.Confidence)
	return result
}

func (c *Classifier) ruleBased(fileName, content string) domain.Classification {
	return domain.Classification{
		Category:   c.fallback.Classify(fileName, "", content),
		Confidence: fallbackConfidence,
	}
}

func buildClassificationPrompt(fileName, content string, previewLength int) string {
	return fmt.Sprintf(`Classify the following document into one of these categories:
- essay: Applicant's personal statement or essay
- transcript: Academic transcript or academic record
- letter_of_recommendation: Letter of recommendation from a professor or mentor
- other: Any other document type

Document name: %s
Document preview: %s

Respond with ONLY the category name and a confidence score (0-1) in this format:
category: <category>
confidence: <score>`, fileName, truncate(content, previewLength))
}

// parseClassificationReply expects exactly the two-line grammar the
// prompt asks for; a reply missing the category line is malformed, a
// bad confidence is merely ignored.
func parseClassificationReply(reply string) (domain.Classification, error) {
	result := domain.Classification{Category: "", Confidence: fallbackConfidence}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "category:"):
			result.Category = strings.TrimSpace(strings.TrimPrefix(line, "category:"))
		case strings.HasPrefix(line, "confidence:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "confidence:"))
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				result.Confidence = v
			}
		}
	}

	if result.Category == "" {
		return domain.Classification{}, fmt.Errorf("reply missing category line")
	}
	return result, nil
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
