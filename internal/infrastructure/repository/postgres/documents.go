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

// CreateDocument inserts the document and fills in its id. A
// conflicting source item id yields domain.ErrAlreadyExists.
func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) error {
	doc.CreatedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
INSERT INTO documents (submission_id, name, source_item_id, mime_type, category, file_size, processed, error_message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id
`,
		doc.SubmissionID, doc.Name, doc.SourceItemID, doc.MimeType, doc.Category, doc.FileSize, doc.Processed, doc.ErrorMessage, doc.CreatedAt,
	).Scan(&doc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrAlreadyExists, "postgres.create_document", err)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, submission_id, name, source_item_id, mime_type, category, file_size, processed, error_message, created_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	err := row.Scan(&doc.ID, &doc.SubmissionID, &doc.Name, &doc.SourceItemID, &doc.MimeType, &doc.Category, &doc.FileSize, &doc.Processed, &doc.ErrorMessage, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "postgres.get_document", err)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, submissionID int64) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, submission_id, name, source_item_id, mime_type, category, file_size, processed, error_message, created_at
FROM documents
WHERE submission_id = $1
ORDER BY id
`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.SubmissionID, &doc.Name, &doc.SourceItemID, &doc.MimeType, &doc.Category, &doc.FileSize, &doc.Processed, &doc.ErrorMessage, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateDocument writes only the fields set in the update. An empty
// update is a no-op.
func (s *Store) UpdateDocument(ctx context.Context, id int64, update domain.DocumentUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	var sets []string
	args := []any{id}
	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Category != nil {
		appendSet("category", *update.Category)
	}
	if update.Processed != nil {
		appendSet("processed", *update.Processed)
	}
	if update.ErrorMessage != nil {
		appendSet("error_message", *update.ErrorMessage)
	}

	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("postgres.update_document: %w: id %d", domain.ErrDocumentNotFound, id)
	}
	return nil
}
