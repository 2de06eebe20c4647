package httpx

import (
	"errors"
	"net/http"

	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/domain/model"
	"github.com/fabworks/jobshop/internal/service"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// DeltaHandlers provides HTTP handlers for the delta-validated write path:
// conditional PATCH, undo, and the event and rejection timelines.
type DeltaHandlers struct {
	Svc *service.DeltaService
}

// appliedResponse is the success body for apply and undo.
type appliedResponse struct {
	Job   *model.JobRecord `json:"job,omitempty"`
	Event *model.JobEvent  `json:"event"`
}

// ApplyDelta handles the conditional PATCH carrying a delta envelope. The
// version token arrives in the If-Match header, the envelope body, or both.
func (h *DeltaHandlers) ApplyDelta(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	var env model.DeltaEnvelope
	if !DecodeJSON(w, r, &env) {
		return
	}
	if env.JobID == "" {
		env.JobID = jobID
	}
	if env.JobID != jobID {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: errors.New("envelope job_id does not match URL")})
		return
	}
	headerActor := ActorFromContext(r.Context())
	if env.ActorID == "" {
		env.ActorID = headerActor
	} else if headerActor != "" && env.ActorID != headerActor {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: errors.New("envelope actor_id does not match attribution header")})
		return
	}

	job, event, err := h.Svc.Apply(r.Context(), service.ApplyParams{
		Envelope: &env,
		IfMatch:  r.Header.Get("If-Match"),
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	w.Header().Set("ETag", jobETag(job))
	WriteJSON(w, http.StatusOK, appliedResponse{Job: job, Event: event})
}

// UndoChange reverses a previously applied change by change_id.
func (h *DeltaHandlers) UndoChange(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	var req model.UndoRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	headerActor := ActorFromContext(r.Context())
	if req.ActorID == "" {
		req.ActorID = headerActor
	} else if headerActor != "" && req.ActorID != headerActor {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: errors.New("actor_id does not match attribution header")})
		return
	}

	event, err := h.Svc.Undo(r.Context(), jobID, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, appliedResponse{Event: event})
}

// ListEvents returns the job's event timeline, oldest first.
func (h *DeltaHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	events, err := h.Svc.Events(r.Context(), jobID, pageFromQuery(r))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// ListRejections returns the job's rejection telemetry, newest first.
func (h *DeltaHandlers) ListRejections(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	rejections, err := h.Svc.Rejections(r.Context(), jobID, pageFromQuery(r))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"rejections": rejections, "count": len(rejections)})
}

func pageFromQuery(r *http.Request) core.Page {
	limit := parseIntQuery(r, "limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return core.Page{Limit: limit, Offset: offset}
}
