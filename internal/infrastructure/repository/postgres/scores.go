package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

// CreateScore appends a grading result. Scores are never updated in
// place; a re-grade produces a new row.
func (s *Store) CreateScore(ctx context.Context, score *domain.Score) error {
	score.CreatedAt = time.Now().UTC()

	criteriaJSON, err := json.Marshal(score.CriteriaScores)
	if err != nil {
		return fmt.Errorf("marshal criteria scores: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
INSERT INTO scores (document_id, submission_id, category, total_score, max_score, criteria_scores, feedback, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id
`,
		score.DocumentID, score.SubmissionID, score.Category, score.TotalScore, score.MaxScore, criteriaJSON, score.Feedback, score.CreatedAt,
	).Scan(&score.ID)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *Store) GetScores(ctx context.Context, documentID int64) ([]domain.Score, error) {
	return s.queryScores(ctx, `
SELECT id, document_id, submission_id, category, total_score, max_score, criteria_scores, feedback, created_at
FROM scores
WHERE document_id = $1
ORDER BY created_at
`, documentID)
}

func (s *Store) GetSubmissionScores(ctx context.Context, submissionID int64) ([]domain.Score, error) {
	return s.queryScores(ctx, `
SELECT id, document_id, submission_id, category, total_score, max_score, criteria_scores, feedback, created_at
FROM scores
WHERE submission_id = $1
ORDER BY created_at
`, submissionID)
}

func (s *Store) queryScores(ctx context.Context, query string, arg any) ([]domain.Score, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.Score
	for rows.Next() {
		var score domain.Score
		var criteriaRaw []byte
		if err := rows.Scan(&score.ID, &score.DocumentID, &score.SubmissionID, &score.Category, &score.TotalScore, &score.MaxScore, &criteriaRaw, &score.Feedback, &score.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if err := json.Unmarshal(criteriaRaw, &score.CriteriaScores); err != nil {
			return nil, fmt.Errorf("unmarshal criteria scores: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}
