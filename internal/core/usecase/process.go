package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
	"github.com/scholarworks/submission-pipeline/internal/core/ports"
	"github.com/scholarworks/submission-pipeline/internal/observability/metrics"
)

// ProcessConfig tunes one batch run.
type ProcessConfig struct {
	// ApplicantDelimiter splits a container name into name and email.
	ApplicantDelimiter string
	// Workers bounds concurrent submission processing. 1 keeps the
	// batch strictly sequential.
	Workers int
}

func (c ProcessConfig) normalize() ProcessConfig {
	if c.ApplicantDelimiter == "" {
		c.ApplicantDelimiter = " - "
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

// ProcessSubmissionsUseCase drives the submission state machine over a
// batch of source containers: claim, extract, classify, grade, persist.
// Fault isolation is layered: a failed document never aborts its
// submission, a failed submission never aborts the batch.
type ProcessSubmissionsUseCase struct {
	store      ports.SubmissionStore
	source     ports.DocumentSource
	extractor  ports.TextExtractor
	classifier ports.Classifier
	grader     ports.Grader
	publisher  ports.EventPublisher
	metrics    *metrics.PipelineMetrics
	config     ProcessConfig
	logger     *slog.Logger
}

func NewProcessSubmissionsUseCase(
	store ports.SubmissionStore,
	source ports.DocumentSource,
	extractor ports.TextExtractor,
	classifier ports.Classifier,
	grader ports.Grader,
	publisher ports.EventPublisher,
	pipelineMetrics *metrics.PipelineMetrics,
	config ProcessConfig,
	logger *slog.Logger,
) *ProcessSubmissionsUseCase {
	if pipelineMetrics == nil {
		pipelineMetrics = metrics.NewPipelineMetrics("pipeline")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessSubmissionsUseCase{
		store:      store,
		source:     source,
		extractor:  extractor,
		classifier: classifier,
		grader:     grader,
		publisher:  publisher,
		metrics:    pipelineMetrics,
		config:     config.normalize(),
		logger:     logger,
	}
}

// ProcessSubmissions runs the pipeline over every container under the
// parent folder and returns the ids of submissions processed in this
// invocation. Submissions already completed or in flight are skipped.
func (uc *ProcessSubmissionsUseCase) ProcessSubmissions(ctx context.Context, parentFolderID string) ([]int64, error) {
	containers, err := uc.source.ListContainers(ctx, parentFolderID)
	if err != nil {
		return nil, fmt.Errorf("list submission folders: %w", err)
	}
	uc.logger.Info("batch started", "parent_folder_id", parentFolderID, "containers", len(containers))

	var mu sync.Mutex
	var processed []int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.config.Workers)

	for _, container := range containers {
		g.Go(func() error {
			// A cancelled batch stops claiming new submissions but
			// lets claimed ones run to a terminal status.
			if gctx.Err() != nil {
				return nil
			}
			id, ok := uc.processSubmission(ctx, container)
			if ok {
				mu.Lock()
				processed = append(processed, id)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	uc.logger.Info("batch finished", "parent_folder_id", parentFolderID, "processed", len(processed))
	return processed, ctx.Err()
}

// processSubmission claims one container and drives it to a terminal
// status. It reports whether this invocation actually processed it.
func (uc *ProcessSubmissionsUseCase) processSubmission(ctx context.Context, container ports.Container) (int64, bool) {
	sub, claimed := uc.claimSubmission(ctx, container)
	if !claimed {
		return 0, false
	}

	uc.metrics.StartSubmission()
	start := time.Now()

	docCount, procErr := uc.processDocuments(ctx, sub)

	status := domain.StatusCompleted
	errorMessage := ""
	if procErr != nil {
		status = domain.StatusError
		errorMessage = procErr.Error()
		uc.logger.Error("submission failed", "submission_id", sub.ID, "folder_id", sub.FolderID, "error", procErr)
	}

	if err := uc.store.UpdateSubmissionStatus(ctx, sub.ID, status, errorMessage); err != nil {
		uc.logger.Error("terminal status write failed", "submission_id", sub.ID, "status", status, "error", err)
	}
	uc.metrics.FinishSubmission("pipeline", string(status), time.Since(start))

	uc.publishProcessed(ctx, sub, status, docCount)
	return sub.ID, true
}

// claimSubmission resolves the container to a submission in status
// processing, creating the record when the container is new. The
// existence check and the transition are each atomic in the store, so
// two concurrent workers can never both claim the same submission.
func (uc *ProcessSubmissionsUseCase) claimSubmission(ctx context.Context, container ports.Container) (*domain.Submission, bool) {
	sub, err := uc.store.GetSubmissionByFolderID(ctx, container.ID)
	switch {
	case err == nil:
		if sub.Status == domain.StatusCompleted || sub.Status == domain.StatusProcessing {
			uc.logger.Info("skipping submission", "folder_id", container.ID, "status", sub.Status)
			return nil, false
		}
		ok, terr := uc.store.TransitionSubmission(ctx, sub.ID,
			[]domain.SubmissionStatus{domain.StatusPending, domain.StatusError}, domain.StatusProcessing)
		if terr != nil {
			uc.logger.Error("claim transition failed", "submission_id", sub.ID, "error", terr)
			return nil, false
		}
		if !ok {
			uc.logger.Info("submission claimed elsewhere", "submission_id", sub.ID)
			return nil, false
		}
		sub.Status = domain.StatusProcessing
		return sub, true

	case domain.IsKind(err, domain.ErrSubmissionNotFound):
		name, email := splitApplicant(container.Name, uc.config.ApplicantDelimiter)
		sub = &domain.Submission{
			ApplicantName:  name,
			ApplicantEmail: email,
			FolderID:       container.ID,
			Status:         domain.StatusProcessing,
		}
		if cerr := uc.store.CreateSubmission(ctx, sub); cerr != nil {
			if domain.IsKind(cerr, domain.ErrAlreadyExists) {
				// Lost the creation race; the other worker owns it.
				uc.logger.Info("submission created elsewhere", "folder_id", container.ID)
				return nil, false
			}
			uc.logger.Error("create submission failed", "folder_id", container.ID, "error", cerr)
			return nil, false
		}
		uc.logger.Info("submission created", "submission_id", sub.ID, "applicant", name)
		return sub, true

	default:
		uc.logger.Error("submission lookup failed", "folder_id", container.ID, "error", err)
		return nil, false
	}
}

// processDocuments iterates every item in the submission's container.
// Document failures are logged and skipped; only container listing and
// prior-document lookup failures escape to fail the submission.
func (uc *ProcessSubmissionsUseCase) processDocuments(ctx context.Context, sub *domain.Submission) (int, error) {
	items, err := uc.source.ListItems(ctx, sub.FolderID)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	existing, err := uc.store.ListDocuments(ctx, sub.ID)
	if err != nil {
		return 0, fmt.Errorf("list stored documents: %w", err)
	}
	prior := make(map[string]domain.Document, len(existing))
	for _, doc := range existing {
		prior[doc.SourceItemID] = doc
	}

	for _, item := range items {
		if err := uc.processDocument(ctx, sub, item, prior); err != nil {
			uc.logger.Error("document failed", "submission_id", sub.ID, "item", item.Name, "error", err)
			uc.metrics.ObserveDocument("pipeline", domain.FallbackCategory, "failed")
		}
	}
	return len(items), nil
}

// processDocument handles one source item: extract, classify, record,
// grade when gradable, and mark the document handled. Processed=true
// means a decision was recorded for the document, graded or not.
func (uc *ProcessSubmissionsUseCase) processDocument(ctx context.Context, sub *domain.Submission, item ports.Item, prior map[string]domain.Document) error {
	if before, ok := prior[item.ID]; ok && before.Processed {
		uc.logger.Info("document already handled", "submission_id", sub.ID, "item", item.Name)
		uc.metrics.ObserveDocument("pipeline", before.Category, "skipped")
		return nil
	}

	content, err := uc.extractor.Extract(ctx, item, uc.source)
	if err != nil {
		// Extraction trouble degrades to empty content so the
		// document still gets recorded and a decision made.
		uc.logger.Warn("extraction failed, treating as empty", "item", item.Name, "error", err)
		content = ""
	}

	category := uc.classifier.Classify(item.Name, item.MimeType, content)

	doc, found := prior[item.ID]
	if !found {
		doc = domain.Document{
			SubmissionID: sub.ID,
			Name:         item.Name,
			SourceItemID: item.ID,
			MimeType:     item.MimeType,
			Category:     category,
			FileSize:     item.Size,
		}
		if err := uc.store.CreateDocument(ctx, &doc); err != nil {
			if !domain.IsKind(err, domain.ErrAlreadyExists) {
				return fmt.Errorf("create document: %w", err)
			}
			// Concurrent duplicate; the other writer owns it.
			uc.logger.Info("document created elsewhere", "item", item.Name)
			return nil
		}
	}

	outcome := "ungraded"
	if category != domain.FallbackCategory && content != "" {
		result := uc.grader.Grade(ctx, category, content, item.Name)
		score := &domain.Score{
			DocumentID:     doc.ID,
			SubmissionID:   sub.ID,
			Category:       result.Category,
			TotalScore:     result.TotalScore,
			MaxScore:       result.MaxScore,
			CriteriaScores: result.CriteriaScores,
			Feedback:       result.Feedback,
		}
		if err := uc.store.CreateScore(ctx, score); err != nil {
			return fmt.Errorf("persist score: %w", err)
		}
		uc.metrics.ObserveGrade("pipeline", category)
		outcome = "graded"
	}

	processed := true
	update := domain.DocumentUpdate{Processed: &processed}
	if found && doc.Category != category {
		update.Category = &category
	}
	if err := uc.store.UpdateDocument(ctx, doc.ID, update); err != nil {
		return fmt.Errorf("mark document handled: %w", err)
	}

	uc.metrics.ObserveDocument("pipeline", category, outcome)
	uc.logger.Info("document handled", "submission_id", sub.ID, "item", item.Name, "category", category, "outcome", outcome)
	return nil
}

func (uc *ProcessSubmissionsUseCase) publishProcessed(ctx context.Context, sub *domain.Submission, status domain.SubmissionStatus, docCount int) {
	if uc.publisher == nil {
		return
	}
	event := ports.SubmissionProcessedEvent{
		FolderID:       sub.FolderID,
		ApplicantName:  sub.ApplicantName,
		Status:         status,
		DocumentCount:  docCount,
		ProcessedAtUTC: time.Now().UTC(),
	}
	if err := uc.publisher.PublishSubmissionProcessed(ctx, event); err != nil {
		uc.logger.Warn("event publish failed", "submission_id", sub.ID, "error", err)
	}
}

// RecoverInterrupted resets submissions left in processing by a
// previous interrupted run back to pending, so the next batch revisits
// them instead of skipping them forever. Call it on worker startup,
// before any batch is running.
func (uc *ProcessSubmissionsUseCase) RecoverInterrupted(ctx context.Context) (int, error) {
	stuck, err := uc.store.ListSubmissions(ctx, domain.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list in-flight submissions: %w", err)
	}

	recovered := 0
	for _, sub := range stuck {
		ok, err := uc.store.TransitionSubmission(ctx, sub.ID,
			[]domain.SubmissionStatus{domain.StatusProcessing}, domain.StatusPending)
		if err != nil {
			return recovered, fmt.Errorf("reset submission %d: %w", sub.ID, err)
		}
		if ok {
			recovered++
			uc.logger.Warn("recovered interrupted submission", "submission_id", sub.ID, "folder_id", sub.FolderID)
		}
	}
	return recovered, nil
}

// splitApplicant derives applicant identity from a container name,
// splitting once on the delimiter. No delimiter means the whole name is
// the applicant and the email stays empty.
func splitApplicant(containerName, delimiter string) (name, email string) {
	before, after, found := strings.Cut(containerName, delimiter)
	if !found {
		return strings.TrimSpace(containerName), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
