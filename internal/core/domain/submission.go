package domain

import "time"

type SubmissionStatus string

const (
	StatusPending    SubmissionStatus = "pending"
	StatusProcessing SubmissionStatus = "processing"
	StatusCompleted  SubmissionStatus = "completed"
	StatusError      SubmissionStatus = "error"
)

// Submission is one applicant's set of documents, tracked as a single
// unit with its own lifecycle status. FolderID is the natural key from
// the document source and is unique across all submissions.
type Submission struct {
	ID             int64            `json:"id"`
	ApplicantName  string           `json:"applicant_name"`
	ApplicantEmail string           `json:"applicant_email"`
	FolderID       string           `json:"submission_folder_id"`
	Status         SubmissionStatus `json:"status"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Document belongs to exactly one Submission. SourceItemID is the
// natural key from the document source and is unique across all
// documents. Category is empty until classified; Processed means the
// pipeline finished handling the document, graded or not.
type Document struct {
	ID           int64     `json:"id"`
	SubmissionID int64     `json:"submission_id"`
	Name         string    `json:"name"`
	SourceItemID string    `json:"source_item_id"`
	MimeType     string    `json:"mime_type"`
	Category     string    `json:"category,omitempty"`
	FileSize     int64     `json:"file_size"`
	Processed    bool      `json:"processed"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentUpdate is a partial update for a Document. Only non-nil
// fields are written; unknown fields cannot be expressed at all.
type DocumentUpdate struct {
	Category     *string
	Processed    *bool
	ErrorMessage *string
}

// IsEmpty reports whether the update would change nothing.
func (u DocumentUpdate) IsEmpty() bool {
	return u.Category == nil && u.Processed == nil && u.ErrorMessage == nil
}

// Score is one grading attempt for a Document. Scores are append-only:
// re-grading creates a new row, existing rows are never updated.
type Score struct {
	ID             int64              `json:"id"`
	DocumentID     int64              `json:"document_id"`
	SubmissionID   int64              `json:"submission_id"`
	Category       string             `json:"category"`
	TotalScore     float64            `json:"total_score"`
	MaxScore       float64            `json:"max_score"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Feedback       string             `json:"feedback,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}
