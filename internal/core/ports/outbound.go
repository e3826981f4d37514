package ports

import (
	"context"
	"time"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

// Container is a source-side grouping unit holding one applicant's
// documents (a folder in the source system).
type Container struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Item is one file inside a container.
type Item struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// DocumentSource lists containers/items and fetches raw content from
// the external submission store.
type DocumentSource interface {
	ListContainers(ctx context.Context, parentID string) ([]Container, error)
	ListItems(ctx context.Context, containerID string) ([]Item, error)
	GetContent(ctx context.Context, itemID string) ([]byte, error)
}

// TextExtractor converts raw item bytes to text, best effort. It
// returns an empty string for unsupported or broken formats instead of
// failing the pipeline.
type TextExtractor interface {
	Extract(ctx context.Context, item Item, source DocumentSource) (string, error)
}

// Classifier assigns a category to a document. Implementations are
// total: they always resolve to at least the fallback category.
type Classifier interface {
	Classify(fileName, mimeType, content string) string
}

// Grader scores a document against the rubric for its category.
// Grading never fails; degraded outcomes carry explanatory feedback.
type Grader interface {
	Grade(ctx context.Context, category, content, fileName string) domain.GradeResult
}

// SubmissionStore is the durable record of submissions, documents and
// scores. Natural keys (folder/item ids) deduplicate re-runs; creates
// with a conflicting natural key return domain.ErrAlreadyExists.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub *domain.Submission) error
	GetSubmission(ctx context.Context, id int64) (*domain.Submission, error)
	GetSubmissionByFolderID(ctx context.Context, folderID string) (*domain.Submission, error)
	ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, id int64, status domain.SubmissionStatus, errorMessage string) error
	// TransitionSubmission moves a submission from any of the given
	// statuses to the target status as one atomic read-modify-write.
	// It reports whether the transition happened.
	TransitionSubmission(ctx context.Context, id int64, from []domain.SubmissionStatus, to domain.SubmissionStatus) (bool, error)

	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)
	ListDocuments(ctx context.Context, submissionID int64) ([]domain.Document, error)
	UpdateDocument(ctx context.Context, id int64, update domain.DocumentUpdate) error

	CreateScore(ctx context.Context, score *domain.Score) error
	GetScores(ctx context.Context, documentID int64) ([]domain.Score, error)
	GetSubmissionScores(ctx context.Context, submissionID int64) ([]domain.Score, error)
}

// TextGenerator is the delegated scoring/classification service: it
// turns a prompt into free text in the grammars the callers parse.
// Absence of the service is not an error; callers fall back to their
// rule-based paths.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EventPublisher fans submission lifecycle events out to interested
// consumers. Publishing is best effort and never part of control flow.
type EventPublisher interface {
	PublishSubmissionProcessed(ctx context.Context, event SubmissionProcessedEvent) error
}

// SubmissionProcessedEvent announces a terminal status for one
// submission within a batch run.
type SubmissionProcessedEvent struct {
	EventID        string                  `json:"event_id"`
	FolderID       string                  `json:"submission_folder_id"`
	ApplicantName  string                  `json:"applicant_name"`
	Status         domain.SubmissionStatus `json:"status"`
	DocumentCount  int                     `json:"document_count"`
	ProcessedAtUTC time.Time               `json:"processed_at_utc"`
}
