// Package httpadapter exposes the pipeline over HTTP: batch runs,
// submission state, reports and advisory classification.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/scholarworks/submission-pipeline/internal/core/domain"
	"github.com/scholarworks/submission-pipeline/internal/core/ports"
	"github.com/scholarworks/submission-pipeline/internal/observability/metrics"
)

type Router struct {
	batch       ports.BatchProcessor
	reports     ports.ReportService
	reader      ports.SubmissionReader
	classify    ClassifyPreviewFunc
	httpMetrics *metrics.HTTPMetrics

	defaultParentFolderID string
}

// ClassifyPreviewFunc resolves an advisory classification for one
// document preview.
type ClassifyPreviewFunc func(r *http.Request, fileName, content string) domain.Classification

func NewRouter(
	batch ports.BatchProcessor,
	reports ports.ReportService,
	reader ports.SubmissionReader,
	classify ClassifyPreviewFunc,
	httpMetrics *metrics.HTTPMetrics,
	defaultParentFolderID string,
) *Router {
	if httpMetrics == nil {
		httpMetrics = metrics.NewHTTPMetrics("api")
	}
	return &Router{
		batch:                 batch,
		reports:               reports,
		reader:                reader,
		classify:              classify,
		httpMetrics:           httpMetrics,
		defaultParentFolderID: defaultParentFolderID,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.httpMetrics.Handler())
	mux.HandleFunc("/v1/batches", rt.runBatch)
	mux.HandleFunc("/v1/submissions", rt.listSubmissions)
	mux.HandleFunc("/v1/submissions/", rt.getSubmission)
	mux.HandleFunc("/v1/reports/summary", rt.batchSummary)
	mux.HandleFunc("/v1/reports/categories", rt.categoryReport)
	mux.HandleFunc("/v1/reports/top", rt.topApplicants)
	mux.HandleFunc("/v1/classify", rt.classifyPreview)

	return requestIDMiddleware(accessLogMiddleware(metricsMiddleware(rt.httpMetrics, mux)))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runBatch drives one synchronous pipeline run over the parent folder.
// The response lists the submissions this run actually processed.
func (rt *Router) runBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		ParentFolderID string `json:"parent_folder_id"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}
	parentID := req.ParentFolderID
	if parentID == "" {
		parentID = rt.defaultParentFolderID
	}
	if parentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parent_folder_id is required"})
		return
	}

	ids, err := rt.batch.ProcessSubmissions(r.Context(), parentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"parent_folder_id": parentID,
		"processed_ids":    ids,
	})
}

func (rt *Router) listSubmissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status := domain.SubmissionStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted, domain.StatusError:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}

	subs, err := rt.reader.ListSubmissions(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	if subs == nil {
		subs = []domain.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (rt *Router) getSubmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/submissions/")
	idPart, wantSummary := strings.CutSuffix(rest, "/summary")
	id, err := strconv.ParseInt(strings.TrimSuffix(idPart, "/"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "submission id must be a positive integer"})
		return
	}

	if wantSummary {
		summary, err := rt.reports.SubmissionSummary(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	sub, err := rt.reader.GetSubmission(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (rt *Router) batchSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	summary, err := rt.reports.BatchSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) categoryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	report, err := rt.reports.CategoryReport(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) topApplicants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	ranks, err := rt.reports.TopApplicants(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if ranks == nil {
		ranks = []ports.ApplicantRank{}
	}
	writeJSON(w, http.StatusOK, ranks)
}

// classifyPreview runs classification over an inline document preview,
// without persisting anything.
func (rt *Router) classifyPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.classify == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "classification preview not configured"})
		return
	}

	var req struct {
		FileName string `json:"file_name"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file_name is required"})
		return
	}

	writeJSON(w, http.StatusOK, rt.classify(r, req.FileName, req.Content))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
