package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
	"github.com/scholarworks/submission-pipeline/internal/core/ports"
)

type fakeBatch struct {
	lastParent string
	ids        []int64
	err        error
}

func (b *fakeBatch) ProcessSubmissions(_ context.Context, parentFolderID string) ([]int64, error) {
	b.lastParent = parentFolderID
	return b.ids, b.err
}

type fakeReader struct {
	submissions map[int64]*domain.Submission
}

func (r *fakeReader) GetSubmission(_ context.Context, id int64) (*domain.Submission, error) {
	sub, ok := r.submissions[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (r *fakeReader) ListSubmissions(_ context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	var out []domain.Submission
	for _, sub := range r.submissions {
		if status == "" || sub.Status == status {
			out = append(out, *sub)
		}
	}
	return out, nil
}

type fakeReports struct {
	summary *ports.SubmissionSummary
}

func (f *fakeReports) SubmissionSummary(_ context.Context, submissionID int64) (*ports.SubmissionSummary, error) {
	if f.summary == nil || f.summary.Submission.ID != submissionID {
		return nil, domain.ErrSubmissionNotFound
	}
	return f.summary, nil
}

func (f *fakeReports) BatchSummary(context.Context) (*ports.BatchSummary, error) {
	return &ports.BatchSummary{TotalSubmissions: 2, Completed: 2}, nil
}

func (f *fakeReports) CategoryReport(context.Context) (map[string]ports.CategoryStats, error) {
	return map[string]ports.CategoryStats{"essay": {Count: 1, AverageScore: 80}}, nil
}

func (f *fakeReports) TopApplicants(_ context.Context, limit int) ([]ports.ApplicantRank, error) {
	ranks := []ports.ApplicantRank{
		{ApplicantName: "Jane Smith", TotalScore: 155},
		{ApplicantName: "John Doe", TotalScore: 65},
	}
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

func newTestRouter(batch *fakeBatch) *Router {
	reader := &fakeReader{submissions: map[int64]*domain.Submission{
		7: {ID: 7, ApplicantName: "Jane Smith", FolderID: "folder-7", Status: domain.StatusCompleted},
	}}
	reports := &fakeReports{summary: &ports.SubmissionSummary{
		Submission: domain.Submission{ID: 7}, TotalScore: 155, DocumentCount: 2,
	}}
	classify := func(_ *http.Request, fileName, content string) domain.Classification {
		if strings.Contains(strings.ToLower(fileName), "essay") {
			return domain.Classification{Category: "essay", Confidence: 0.9}
		}
		return domain.Classification{Category: domain.FallbackCategory, Confidence: 0.5}
	}
	return NewRouter(batch, reports, reader, classify, nil, "default-parent")
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()
	rec := doRequest(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRunBatchUsesDefaultParent(t *testing.T) {
	batch := &fakeBatch{ids: []int64{1, 2}}
	handler := newTestRouter(batch).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/v1/batches", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if batch.lastParent != "default-parent" {
		t.Fatalf("expected default parent, got %q", batch.lastParent)
	}

	var resp struct {
		ProcessedIDs []int64 `json:"processed_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.ProcessedIDs) != 2 {
		t.Fatalf("unexpected ids: %v", resp.ProcessedIDs)
	}
}

func TestRunBatchExplicitParent(t *testing.T) {
	batch := &fakeBatch{}
	handler := newTestRouter(batch).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/v1/batches", `{"parent_folder_id":"custom"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if batch.lastParent != "custom" {
		t.Fatalf("expected custom parent, got %q", batch.lastParent)
	}
}

func TestRunBatchRejectsGet(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()
	rec := doRequest(t, handler, http.MethodGet, "/v1/batches", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListSubmissionsRejectsUnknownStatus(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()
	rec := doRequest(t, handler, http.MethodGet, "/v1/submissions?status=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetSubmission(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()

	rec := doRequest(t, handler, http.MethodGet, "/v1/submissions/7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var sub domain.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub.ApplicantName != "Jane Smith" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}

func TestGetSubmissionNotFoundMapsTo404(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()
	rec := doRequest(t, handler, http.MethodGet, "/v1/submissions/999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetSubmissionRejectsBadID(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()
	rec := doRequest(t, handler, http.MethodGet, "/v1/submissions/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetSubmissionSummary(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()

	rec := doRequest(t, handler, http.MethodGet, "/v1/submissions/7/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var summary ports.SubmissionSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.TotalScore != 155 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestTopApplicantsLimitValidation(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()

	rec := doRequest(t, handler, http.MethodGet, "/v1/reports/top?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/v1/reports/top?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var ranks []ports.ApplicantRank
	if err := json.Unmarshal(rec.Body.Bytes(), &ranks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ranks) != 1 || ranks[0].ApplicantName != "Jane Smith" {
		t.Fatalf("unexpected ranks: %+v", ranks)
	}
}

func TestClassifyPreview(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/v1/classify", `{"file_name":"Essay.pdf","content":"my statement"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var result domain.Classification
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Category != "essay" {
		t.Fatalf("unexpected classification: %+v", result)
	}

	rec = doRequest(t, handler, http.MethodPost, "/v1/classify", `{"content":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestRouter(&fakeBatch{}).Handler()
	rec := doRequest(t, handler, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}
