package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

// CreateSubmission inserts the submission and fills in its id. A
// conflicting folder id yields domain.ErrAlreadyExists.
func (s *Store) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, `
INSERT INTO submissions (applicant_name, applicant_email, submission_folder_id, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id
`,
		sub.ApplicantName, sub.ApplicantEmail, sub.FolderID, string(sub.Status), sub.ErrorMessage, sub.CreatedAt, sub.UpdatedAt,
	).Scan(&sub.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrAlreadyExists, "postgres.create_submission", err)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id int64) (*domain.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, applicant_name, applicant_email, submission_folder_id, status, error_message, created_at, updated_at
FROM submissions
WHERE id = $1
`, id)
	return scanSubmission(row)
}

func (s *Store) GetSubmissionByFolderID(ctx context.Context, folderID string) (*domain.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, applicant_name, applicant_email, submission_folder_id, status, error_message, created_at, updated_at
FROM submissions
WHERE submission_folder_id = $1
`, folderID)
	return scanSubmission(row)
}

// ListSubmissions returns submissions newest first, optionally filtered
// by status. An empty status lists everything.
func (s *Store) ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	query := `
SELECT id, applicant_name, applicant_email, submission_folder_id, status, error_message, created_at, updated_at
FROM submissions
`
	var args []any
	if status != "" {
		query += "WHERE status = $1\n"
		args = append(args, string(status))
	}
	query += "ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		var st string
		if err := rows.Scan(&sub.ID, &sub.ApplicantName, &sub.ApplicantEmail, &sub.FolderID, &st, &sub.ErrorMessage, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Status = domain.SubmissionStatus(st)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) UpdateSubmissionStatus(ctx context.Context, id int64, status domain.SubmissionStatus, errorMessage string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE submissions
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errorMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("postgres.update_submission_status: %w: id %d", domain.ErrSubmissionNotFound, id)
	}
	return nil
}

// TransitionSubmission performs a conditional status change in one
// statement so concurrent workers cannot both claim a submission.
func (s *Store) TransitionSubmission(ctx context.Context, id int64, from []domain.SubmissionStatus, to domain.SubmissionStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("postgres.transition_submission: %w: empty source status set", domain.ErrInvalidInput)
	}

	placeholders := make([]string, len(from))
	args := []any{id, string(to), time.Now().UTC()}
	for i, st := range from {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, string(st))
	}

	query := fmt.Sprintf(`
UPDATE submissions
SET status = $2, error_message = '', updated_at = $3
WHERE id = $1 AND status IN (%s)
`, strings.Join(placeholders, ","))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition submission: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var sub domain.Submission
	var status string
	err := row.Scan(&sub.ID, &sub.ApplicantName, &sub.ApplicantEmail, &sub.FolderID, &status, &sub.ErrorMessage, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSubmissionNotFound, "postgres.get_submission", err)
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	sub.Status = domain.SubmissionStatus(status)
	return &sub, nil
}
