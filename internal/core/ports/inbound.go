package ports

import (
	"context"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
)

// BatchProcessor is the inbound contract for running the submission
// pipeline over a source folder.
type BatchProcessor interface {
	ProcessSubmissions(ctx context.Context, parentFolderID string) ([]int64, error)
}

// SubmissionReader is the inbound read model for submission state.
type SubmissionReader interface {
	GetSubmission(ctx context.Context, id int64) (*domain.Submission, error)
	ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error)
}

// ReportService aggregates stored submissions and scores into reports.
type ReportService interface {
	SubmissionSummary(ctx context.Context, submissionID int64) (*SubmissionSummary, error)
	BatchSummary(ctx context.Context) (*BatchSummary, error)
	CategoryReport(ctx context.Context) (map[string]CategoryStats, error)
	TopApplicants(ctx context.Context, limit int) ([]ApplicantRank, error)
}

// DocumentScores pairs one document with its grading attempts.
type DocumentScores struct {
	Document domain.Document `json:"document"`
	Scores   []domain.Score  `json:"scores"`
}

// SubmissionSummary joins a submission with its documents and scores.
type SubmissionSummary struct {
	Submission    domain.Submission `json:"submission"`
	Documents     []DocumentScores  `json:"documents"`
	TotalScore    float64           `json:"total_score"`
	DocumentCount int               `json:"document_count"`
}

// BatchSummary aggregates the whole store.
type BatchSummary struct {
	TotalSubmissions int     `json:"total_submissions"`
	Completed        int     `json:"completed"`
	Processing       int     `json:"processing"`
	Errors           int     `json:"errors"`
	TotalDocuments   int     `json:"total_documents"`
	AverageScore     float64 `json:"average_score"`
	HighScore        float64 `json:"high_score"`
	LowScore         float64 `json:"low_score"`
}

// CategoryStats aggregates scores of one category.
type CategoryStats struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
	MinScore     float64 `json:"min_score"`
	MaxScore     float64 `json:"max_score"`
}

// ApplicantRank is one row of the top-applicants report.
type ApplicantRank struct {
	ApplicantName  string                  `json:"applicant_name"`
	ApplicantEmail string                  `json:"applicant_email"`
	TotalScore     float64                 `json:"total_score"`
	DocumentCount  int                     `json:"document_count"`
	Status         domain.SubmissionStatus `json:"status"`
}
