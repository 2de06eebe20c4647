// Package httpx provides the HTTP surface of the jobshop delta API.
package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fabworks/jobshop/internal/domain/delta"
	"github.com/fabworks/jobshop/internal/domain/model"
	"github.com/fabworks/jobshop/internal/service"
)

// JobHandlers provides HTTP handlers for job lifecycle operations.
type JobHandlers struct {
	Svc *service.JobService
}

// CreateJob handles HTTP requests to create a new job.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	w.Header().Set("ETag", jobETag(job))
	WriteJSON(w, http.StatusCreated, job)
}

// GetJob returns a single job. The response carries the job's current
// version token in the ETag header for later conditional writes.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, etag, err := h.Svc.Get(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	w.Header().Set("ETag", etag)
	WriteJSON(w, http.StatusOK, job)
}

// ListJobs returns jobs filtered by tenant and status query parameters.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	opts := &model.JobListOptions{
		TenantID: r.URL.Query().Get("tenant_id"),
		Limit:    parseIntQuery(r, "limit", 0),
		Offset:   parseIntQuery(r, "offset", 0),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		st := model.JobStatus(status)
		if !st.Valid() {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("unknown status filter")})
			return
		}
		opts.Status = st
	}

	jobs, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// DeleteJob removes an archived job.
func (h *JobHandlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	if err := h.Svc.Delete(r.Context(), jobID); err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func jobETag(job *model.JobRecord) string {
	return delta.FormatETag(job.Version)
}

func parseIntQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
