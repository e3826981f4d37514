package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
	"github.com/scholarworks/submission-pipeline/internal/core/ports"
)

// ReportUseCase aggregates stored submissions and scores into the read
// models served by the API. It never mutates state.
type ReportUseCase struct {
	store ports.SubmissionStore
}

func NewReportUseCase(store ports.SubmissionStore) *ReportUseCase {
	return &ReportUseCase{store: store}
}

func (uc *ReportUseCase) GetSubmission(ctx context.Context, id int64) (*domain.Submission, error) {
	return uc.store.GetSubmission(ctx, id)
}

func (uc *ReportUseCase) ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	return uc.store.ListSubmissions(ctx, status)
}

// SubmissionSummary joins one submission with its documents and all
// their grading attempts. TotalScore sums every stored score.
func (uc *ReportUseCase) SubmissionSummary(ctx context.Context, submissionID int64) (*ports.SubmissionSummary, error) {
	sub, err := uc.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	docs, err := uc.store.ListDocuments(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	scores, err := uc.store.GetSubmissionScores(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	byDocument := make(map[int64][]domain.Score, len(docs))
	total := 0.0
	for _, score := range scores {
		byDocument[score.DocumentID] = append(byDocument[score.DocumentID], score)
		total += score.TotalScore
	}

	summary := &ports.SubmissionSummary{
		Submission:    *sub,
		TotalScore:    total,
		DocumentCount: len(docs),
	}
	for _, doc := range docs {
		summary.Documents = append(summary.Documents, ports.DocumentScores{
			Document: doc,
			Scores:   byDocument[doc.ID],
		})
	}
	return summary, nil
}

// BatchSummary aggregates every stored submission into one overview.
func (uc *ReportUseCase) BatchSummary(ctx context.Context) (*ports.BatchSummary, error) {
	subs, err := uc.store.ListSubmissions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	summary := &ports.BatchSummary{TotalSubmissions: len(subs)}
	var scoreCount int
	var scoreSum float64

	for _, sub := range subs {
		switch sub.Status {
		case domain.StatusCompleted:
			summary.Completed++
		case domain.StatusProcessing:
			summary.Processing++
		case domain.StatusError:
			summary.Errors++
		}

		docs, err := uc.store.ListDocuments(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		summary.TotalDocuments += len(docs)

		scores, err := uc.store.GetSubmissionScores(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("list scores: %w", err)
		}
		for _, score := range scores {
			if scoreCount == 0 {
				summary.HighScore = score.TotalScore
				summary.LowScore = score.TotalScore
			}
			if score.TotalScore > summary.HighScore {
				summary.HighScore = score.TotalScore
			}
			if score.TotalScore < summary.LowScore {
				summary.LowScore = score.TotalScore
			}
			scoreSum += score.TotalScore
			scoreCount++
		}
	}

	if scoreCount > 0 {
		summary.AverageScore = scoreSum / float64(scoreCount)
	}
	return summary, nil
}

// CategoryReport groups stored scores by category.
func (uc *ReportUseCase) CategoryReport(ctx context.Context) (map[string]ports.CategoryStats, error) {
	subs, err := uc.store.ListSubmissions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	type bucket struct {
		count       int
		sum, lo, hi float64
	}
	buckets := map[string]*bucket{}

	for _, sub := range subs {
		scores, err := uc.store.GetSubmissionScores(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("list scores: %w", err)
		}
		for _, score := range scores {
			b, ok := buckets[score.Category]
			if !ok {
				b = &bucket{lo: score.TotalScore, hi: score.TotalScore}
				buckets[score.Category] = b
			}
			b.count++
			b.sum += score.TotalScore
			if score.TotalScore < b.lo {
				b.lo = score.TotalScore
			}
			if score.TotalScore > b.hi {
				b.hi = score.TotalScore
			}
		}
	}

	report := make(map[string]ports.CategoryStats, len(buckets))
	for category, b := range buckets {
		report[category] = ports.CategoryStats{
			Count:        b.count,
			AverageScore: b.sum / float64(b.count),
			MinScore:     b.lo,
			MaxScore:     b.hi,
		}
	}
	return report, nil
}

// TopApplicants ranks submissions by their summed score, descending.
func (uc *ReportUseCase) TopApplicants(ctx context.Context, limit int) ([]ports.ApplicantRank, error) {
	if limit <= 0 {
		limit = 10
	}

	subs, err := uc.store.ListSubmissions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	ranks := make([]ports.ApplicantRank, 0, len(subs))
	for _, sub := range subs {
		docs, err := uc.store.ListDocuments(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		scores, err := uc.store.GetSubmissionScores(ctx, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("list scores: %w", err)
		}

		total := 0.0
		for _, score := range scores {
			total += score.TotalScore
		}
		ranks = append(ranks, ports.ApplicantRank{
			ApplicantName:  sub.ApplicantName,
			ApplicantEmail: sub.ApplicantEmail,
			TotalScore:     total,
			DocumentCount:  len(docs),
			Status:         sub.Status,
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].TotalScore > ranks[j].TotalScore
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}
