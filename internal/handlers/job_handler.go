package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
	"github.com/ternarybob/copyscope/internal/services/jobs"
)

// JobHandler handles HTTP requests for analysis jobs
type JobHandler struct {
	jobService *jobs.Service
	validate   *validator.Validate
	logger     arbor.ILogger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobService *jobs.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		validate:   validator.New(),
		logger:     logger,
	}
}

// CreateJobRequest is the POST /api/jobs payload.
type CreateJobRequest struct {
	URL   string `json:"url" validate:"required,min=4"`
	Email string `json:"email" validate:"omitempty,email"`
}

// EnrichRequest is the POST /api/jobs/{id}/enrich payload.
type EnrichRequest struct {
	Competitors []string `json:"competitors" validate:"omitempty,max=20,dive,min=3"`
	SocialURLs  []string `json:"social_urls" validate:"omitempty,max=10,dive,url"`
	Email       string   `json:"email" validate:"omitempty,email"`
}

// CreateJobHandler handles POST /api/jobs. The job is persisted pending;
// the pipeline only starts on the first status poll.
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	job, err := h.jobService.CreateJob(r.Context(), req.URL, req.Email)
	if err != nil {
		h.logger.Warn().Err(err).Str("url", req.URL).Msg("Job creation rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, jobView(job))
}

// GetJobHandler handles GET /api/jobs/{id}. A poll on a pending job claims
// it and starts the pipeline before returning the snapshot.
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := jobIDFromPath(r.URL.Path)
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing job id")
		return
	}

	job, err := h.jobService.GetStatus(r.Context(), id)
	if err != nil {
		h.writeJobError(w, id, err)
		return
	}

	WriteJSON(w, http.StatusOK, jobView(job))
}

// EnrichJobHandler handles POST /api/jobs/{id}/enrich.
func (h *JobHandler) EnrichJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	id := jobIDFromPath(r.URL.Path)
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing job id")
		return
	}

	var req EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	job, err := h.jobService.Enrich(r.Context(), id, req.Competitors, req.SocialURLs, req.Email)
	if err != nil {
		h.writeJobError(w, id, err)
		return
	}

	WriteJSON(w, http.StatusOK, jobView(job))
}

// MarkPaidHandler handles POST /api/jobs/{id}/paid. Idempotent; extends the
// record retention window.
func (h *JobHandler) MarkPaidHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	id := jobIDFromPath(r.URL.Path)
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing job id")
		return
	}

	job, err := h.jobService.MarkPaid(r.Context(), id)
	if err != nil {
		h.writeJobError(w, id, err)
		return
	}

	WriteJSON(w, http.StatusOK, jobView(job))
}

func (h *JobHandler) writeJobError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, interfaces.ErrJobNotFound) {
		WriteError(w, http.StatusNotFound, "Job not found or expired")
		return
	}
	h.logger.Error().Err(err).Str("job_id", id).Msg("Job request failed")
	WriteError(w, http.StatusInternalServerError, err.Error())
}

// jobView shapes a job for the API: full results (issues, findings, voice
// summary) are gated until the job is paid, while the preview summary and
// the competitor comparison are always visible.
func jobView(job *models.Job) map[string]interface{} {
	view := map[string]interface{}{
		"id":            job.ID,
		"url":           job.URL,
		"status":        job.Status,
		"progress":      job.Progress,
		"message":       job.Message,
		"pages_crawled": job.PagesCrawled,
		"pages_found":   job.PagesFound,
		"current_path":  job.CurrentPath,
		"paid":          job.Paid,
		"created_at":    job.CreatedAt,
		"updated_at":    job.UpdatedAt,
	}
	if job.CompletedAt != nil {
		view["completed_at"] = job.CompletedAt
	}
	if len(job.CrawledPaths) > 0 {
		view["crawled_paths"] = job.CrawledPaths
	}
	if job.Preview != nil {
		view["preview"] = job.Preview
	}
	if job.Results != nil && job.Results.Comparison != nil {
		view["competitors"] = job.Results.Comparison
	}
	if job.Paid && job.Results != nil {
		view["results"] = job.Results
	}
	if job.Enrichment.Status != "" {
		view["enrichment"] = job.Enrichment
	}
	return view
}

// jobIDFromPath extracts the job id from /api/jobs/{id}[/suffix].
func jobIDFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/jobs/")
	if trimmed == path {
		return ""
	}
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
