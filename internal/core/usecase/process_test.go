package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
	"github.com/scholarworks/submission-pipeline/internal/core/ports"
)

type memStore struct {
	mu          sync.Mutex
	nextID      int64
	submissions map[int64]*domain.Submission
	byFolder    map[string]int64
	documents   map[int64]*domain.Document
	byItem      map[string]int64
	scores      []*domain.Score

	failScoreForDoc string
}

func newMemStore() *memStore {
	return &memStore{
		submissions: map[int64]*domain.Submission{},
		byFolder:    map[string]int64{},
		documents:   map[int64]*domain.Document{},
		byItem:      map[string]int64{},
	}
}

func (m *memStore) CreateSubmission(_ context.Context, sub *domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byFolder[sub.FolderID]; ok {
		return domain.ErrAlreadyExists
	}
	m.nextID++
	sub.ID = m.nextID
	cp := *sub
	m.submissions[sub.ID] = &cp
	m.byFolder[sub.FolderID] = sub.ID
	return nil
}

func (m *memStore) GetSubmission(_ context.Context, id int64) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memStore) GetSubmissionByFolderID(_ context.Context, folderID string) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byFolder[folderID]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	cp := *m.submissions[id]
	return &cp, nil
}

func (m *memStore) ListSubmissions(_ context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var subs []domain.Submission
	for _, sub := range m.submissions {
		if status == "" || sub.Status == status {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (m *memStore) UpdateSubmissionStatus(_ context.Context, id int64, status domain.SubmissionStatus, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	sub.Status = status
	sub.ErrorMessage = errorMessage
	return nil
}

func (m *memStore) TransitionSubmission(_ context.Context, id int64, from []domain.SubmissionStatus, to domain.SubmissionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if sub.Status == st {
			sub.Status = to
			sub.ErrorMessage = ""
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byItem[doc.SourceItemID]; ok {
		return domain.ErrAlreadyExists
	}
	m.nextID++
	doc.ID = m.nextID
	cp := *doc
	m.documents[doc.ID] = &cp
	m.byItem[doc.SourceItemID] = doc.ID
	return nil
}

func (m *memStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *memStore) ListDocuments(_ context.Context, submissionID int64) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []domain.Document
	for _, doc := range m.documents {
		if doc.SubmissionID == submissionID {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (m *memStore) UpdateDocument(_ context.Context, id int64, update domain.DocumentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	if update.Category != nil {
		doc.Category = *update.Category
	}
	if update.Processed != nil {
		doc.Processed = *update.Processed
	}
	if update.ErrorMessage != nil {
		doc.ErrorMessage = *update.ErrorMessage
	}
	return nil
}

func (m *memStore) CreateScore(_ context.Context, score *domain.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failScoreForDoc != "" {
		if doc, ok := m.documents[score.DocumentID]; ok && doc.Name == m.failScoreForDoc {
			return errors.New("score insert failed")
		}
	}
	m.nextID++
	score.ID = m.nextID
	cp := *score
	m.scores = append(m.scores, &cp)
	return nil
}

func (m *memStore) GetScores(_ context.Context, documentID int64) ([]domain.Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Score
	for _, score := range m.scores {
		if score.DocumentID == documentID {
			out = append(out, *score)
		}
	}
	return out, nil
}

func (m *memStore) GetSubmissionScores(_ context.Context, submissionID int64) ([]domain.Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Score
	for _, score := range m.scores {
		if score.SubmissionID == submissionID {
			out = append(out, *score)
		}
	}
	return out, nil
}

type fakeSource struct {
	containers []ports.Container
	items      map[string][]ports.Item
	listErrFor string
}

func (s *fakeSource) ListContainers(context.Context, string) ([]ports.Container, error) {
	return s.containers, nil
}

func (s *fakeSource) ListItems(_ context.Context, containerID string) ([]ports.Item, error) {
	if containerID == s.listErrFor {
		return nil, errors.New("folder listing failed")
	}
	return s.items[containerID], nil
}

func (s *fakeSource) GetContent(context.Context, string) ([]byte, error) {
	return nil, errors.New("unused")
}

type fakeExtractor struct {
	content map[string]string
	errFor  string
}

func (e *fakeExtractor) Extract(_ context.Context, item ports.Item, _ ports.DocumentSource) (string, error) {
	if item.ID == e.errFor {
		return "", errors.New("extraction blew up")
	}
	return e.content[item.ID], nil
}

type suffixClassifier struct{}

func (suffixClassifier) Classify(fileName, _, _ string) string {
	switch {
	case strings.Contains(strings.ToLower(fileName), "essay"):
		return "essay"
	case strings.Contains(strings.ToLower(fileName), "transcript"):
		return "transcript"
	default:
		return domain.FallbackCategory
	}
}

type fixedGrader struct{}

func (fixedGrader) Grade(_ context.Context, category, _, _ string) domain.GradeResult {
	return domain.GradeResult{Category: category, TotalScore: 80, MaxScore: 100, CriteriaScores: map[string]float64{}}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.SubmissionProcessedEvent
}

func (p *recordingPublisher) PublishSubmissionProcessed(_ context.Context, event ports.SubmissionProcessedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func newTestPipeline(store *memStore, source *fakeSource, extractor *fakeExtractor, publisher ports.EventPublisher) *ProcessSubmissionsUseCase {
	return NewProcessSubmissionsUseCase(
		store, source, extractor, suffixClassifier{}, fixedGrader{}, publisher, nil,
		ProcessConfig{ApplicantDelimiter: " - ", Workers: 2}, nil,
	)
}

func TestProcessSubmissionsCreatesAndCompletes(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{
		containers: []ports.Container{{ID: "folder-1", Name: "Jane Smith - jane@example.com"}},
		items: map[string][]ports.Item{
			"folder-1": {
				{ID: "item-1", Name: "Essay.pdf", MimeType: "application/pdf", Size: 100},
				{ID: "item-2", Name: "photo.png", MimeType: "image/png", Size: 50},
			},
		},
	}
	extractor := &fakeExtractor{content: map[string]string{"item-1": "my essay text"}}
	publisher := &recordingPublisher{}
	uc := newTestPipeline(store, source, extractor, publisher)

	ids, err := uc.ProcessSubmissions(context.Background(), "parent")
	if err != nil {
		t.Fatalf("ProcessSubmissions() error = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 processed submission, got %d", len(ids))
	}

	sub, err := store.GetSubmissionByFolderID(context.Background(), "folder-1")
	if err != nil {
		t.Fatalf("submission missing: %v", err)
	}
	if sub.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", sub.Status, sub.ErrorMessage)
	}
	if sub.ApplicantName != "Jane Smith" || sub.ApplicantEmail != "jane@example.com" {
		t.Fatalf("applicant parsing wrong: %q / %q", sub.ApplicantName, sub.ApplicantEmail)
	}

	docs, _ := store.ListDocuments(context.Background(), sub.ID)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	for _, doc := range docs {
		if !doc.Processed {
			t.Fatalf("document %s not marked handled", doc.Name)
		}
	}

	scores, _ := store.GetSubmissionScores(context.Background(), sub.ID)
	if len(scores) != 1 {
		t.Fatalf("expected 1 score (essay only), got %d", len(scores))
	}
	if scores[0].Category != "essay" {
		t.Fatalf("unexpected score category %q", scores[0].Category)
	}

	if len(publisher.events) != 1 || publisher.events[0].Status != domain.StatusCompleted {
		t.Fatalf("unexpected events: %+v", publisher.events)
	}
}

func TestProcessSubmissionsSecondRunIsNoop(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{
		containers: []ports.Container{{ID: "folder-1", Name: "Jane Smith"}},
		items: map[string][]ports.Item{
			"folder-1": {{ID: "item-1", Name: "Essay.pdf"}},
		},
	}
	extractor := &fakeExtractor{content: map[string]string{"item-1": "essay text"}}
	uc := newTestPipeline(store, source, extractor, nil)

	if _, err := uc.ProcessSubmissions(context.Background(), "parent"); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	docsBefore := len(store.documents)
	scoresBefore := len(store.scores)

	ids, err := uc.ProcessSubmissions(context.Background(), "parent")
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("completed submission should be skipped, processed %v", ids)
	}
	if len(store.documents) != docsBefore || len(store.scores) != scoresBefore {
		t.Fatalf("second run created rows: docs %d->%d scores %d->%d",
			docsBefore, len(store.documents), scoresBefore, len(store.scores))
	}
}

func TestProcessSubmissionsDocumentFailureIsIsolated(t *testing.T) {
	store := newMemStore()
	store.failScoreForDoc = "Essay_B.pdf"
	source := &fakeSource{
		containers: []ports.Container{{ID: "folder-1", Name: "Jane Smith"}},
		items: map[string][]ports.Item{
			"folder-1": {
				{ID: "item-1", Name: "Essay_A.pdf"},
				{ID: "item-2", Name: "Essay_B.pdf"},
				{ID: "item-3", Name: "Transcript.pdf"},
			},
		},
	}
	extractor := &fakeExtractor{content: map[string]string{
		"item-1": "text a", "item-2": "text b", "item-3": "text c",
	}}
	uc := newTestPipeline(store, source, extractor, nil)

	if _, err := uc.ProcessSubmissions(context.Background(), "parent"); err != nil {
		t.Fatalf("ProcessSubmissions() error = %v", err)
	}

	sub, _ := store.GetSubmissionByFolderID(context.Background(), "folder-1")
	if sub.Status != domain.StatusCompleted {
		t.Fatalf("one bad document must not fail the submission, got %s", sub.Status)
	}

	scores, _ := store.GetSubmissionScores(context.Background(), sub.ID)
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores for the healthy documents, got %d", len(scores))
	}

	docs, _ := store.ListDocuments(context.Background(), sub.ID)
	for _, doc := range docs {
		if doc.Name == "Essay_B.pdf" && doc.Processed {
			t.Fatalf("failed document must stay unhandled for the retry path")
		}
	}
}

func TestProcessSubmissionsListFailureMarksError(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{
		containers: []ports.Container{
			{ID: "folder-1", Name: "Jane Smith"},
			{ID: "folder-2", Name: "John Doe"},
		},
		items:      map[string][]ports.Item{"folder-2": {{ID: "item-9", Name: "Essay.pdf"}}},
		listErrFor: "folder-1",
	}
	extractor := &fakeExtractor{content: map[string]string{"item-9": "essay"}}
	uc := newTestPipeline(store, source, extractor, nil)

	if _, err := uc.ProcessSubmissions(context.Background(), "parent"); err != nil {
		t.Fatalf("ProcessSubmissions() error = %v", err)
	}

	bad, _ := store.GetSubmissionByFolderID(context.Background(), "folder-1")
	if bad.Status != domain.StatusError || bad.ErrorMessage == "" {
		t.Fatalf("expected error status with message, got %s %q", bad.Status, bad.ErrorMessage)
	}

	good, _ := store.GetSubmissionByFolderID(context.Background(), "folder-2")
	if good.Status != domain.StatusCompleted {
		t.Fatalf("one bad submission must not abort the batch, got %s", good.Status)
	}
}

func TestProcessSubmissionsRetriesErroredSubmission(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{
		containers: []ports.Container{{ID: "folder-1", Name: "Jane Smith"}},
		items:      map[string][]ports.Item{"folder-1": {{ID: "item-1", Name: "Essay.pdf"}}},
		listErrFor: "folder-1",
	}
	extractor := &fakeExtractor{content: map[string]string{"item-1": "essay"}}
	uc := newTestPipeline(store, source, extractor, nil)

	if _, err := uc.ProcessSubmissions(context.Background(), "parent"); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	sub, _ := store.GetSubmissionByFolderID(context.Background(), "folder-1")
	if sub.Status != domain.StatusError {
		t.Fatalf("setup: expected error status, got %s", sub.Status)
	}

	source.listErrFor = ""
	ids, err := uc.ProcessSubmissions(context.Background(), "parent")
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("errored submission should be reprocessed, got %v", ids)
	}

	sub, _ = store.GetSubmissionByFolderID(context.Background(), "folder-1")
	if sub.Status != domain.StatusCompleted || sub.ErrorMessage != "" {
		t.Fatalf("expected recovery to completed, got %s %q", sub.Status, sub.ErrorMessage)
	}
}

func TestProcessDocumentExtractionFailureDegradesToUngraded(t *testing.T) {
	store := newMemStore()
	source := &fakeSource{
		containers: []ports.Container{{ID: "folder-1", Name: "Jane Smith"}},
		items:      map[string][]ports.Item{"folder-1": {{ID: "item-1", Name: "Essay.pdf"}}},
	}
	extractor := &fakeExtractor{errFor: "item-1"}
	uc := newTestPipeline(store, source, extractor, nil)

	if _, err := uc.ProcessSubmissions(context.Background(), "parent"); err != nil {
		t.Fatalf("ProcessSubmissions() error = %v", err)
	}

	sub, _ := store.GetSubmissionByFolderID(context.Background(), "folder-1")
	if sub.Status != domain.StatusCompleted {
		t.Fatalf("extraction failure must not fail the submission, got %s", sub.Status)
	}

	docs, _ := store.ListDocuments(context.Background(), sub.ID)
	if len(docs) != 1 || !docs[0].Processed {
		t.Fatalf("document should be recorded and handled: %+v", docs)
	}
	scores, _ := store.GetSubmissionScores(context.Background(), sub.ID)
	if len(scores) != 0 {
		t.Fatalf("empty content must not be graded, got %d scores", len(scores))
	}
}

func TestRecoverInterrupted(t *testing.T) {
	store := newMemStore()
	stuck := &domain.Submission{FolderID: "folder-1", Status: domain.StatusProcessing}
	if err := store.CreateSubmission(context.Background(), stuck); err != nil {
		t.Fatalf("setup: %v", err)
	}
	done := &domain.Submission{FolderID: "folder-2", Status: domain.StatusCompleted}
	if err := store.CreateSubmission(context.Background(), done); err != nil {
		t.Fatalf("setup: %v", err)
	}

	uc := newTestPipeline(store, &fakeSource{}, &fakeExtractor{}, nil)
	recovered, err := uc.RecoverInterrupted(context.Background())
	if err != nil {
		t.Fatalf("RecoverInterrupted() error = %v", err)
	}
	if recovered != 1 {
		t.Fatalf("expected 1 recovered, got %d", recovered)
	}

	sub, _ := store.GetSubmission(context.Background(), stuck.ID)
	if sub.Status != domain.StatusPending {
		t.Fatalf("expected pending after recovery, got %s", sub.Status)
	}
	other, _ := store.GetSubmission(context.Background(), done.ID)
	if other.Status != domain.StatusCompleted {
		t.Fatalf("completed submission must not be touched, got %s", other.Status)
	}
}

func TestSplitApplicant(t *testing.T) {
	name, email := splitApplicant("Jane Smith - jane@example.com", " - ")
	if name != "Jane Smith" || email != "jane@example.com" {
		t.Fatalf("got %q / %q", name, email)
	}

	name, email = splitApplicant("Jane Smith", " - ")
	if name != "Jane Smith" || email != "" {
		t.Fatalf("got %q / %q", name, email)
	}
}
