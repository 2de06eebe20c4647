package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fabworks/jobshop/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs   *service.JobService
	Deltas *service.DeltaService
	// Ready probes downstream dependencies for the readiness endpoint.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	deltaHandlers := &DeltaHandlers{Svc: services.Deltas}

	registerJobRoutes(mux, jobHandlers)
	registerDeltaRoutes(mux, deltaHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Ready))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = ActorAttribution()(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

// registerJobRoutes wires the job lifecycle endpoints. Paths keep the
// trailing slash of the legacy API; {$} pins each pattern to an exact
// match instead of a subtree.
func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /job-rest/jobs/{$}", h.CreateJob)
	mux.HandleFunc("GET /job-rest/jobs/{$}", h.ListJobs)
	mux.HandleFunc("GET /job-rest/jobs/{job_id}/{$}", h.GetJob)
	mux.HandleFunc("DELETE /job-rest/jobs/{job_id}/{$}", h.DeleteJob)
}

// registerDeltaRoutes wires the validated write path and its timelines.
func registerDeltaRoutes(mux *http.ServeMux, h *DeltaHandlers) {
	mux.HandleFunc("PATCH /job-rest/jobs/{job_id}/{$}", h.ApplyDelta)
	mux.HandleFunc("POST /job-rest/jobs/{job_id}/undo-change/{$}", h.UndoChange)
	mux.HandleFunc("GET /job-rest/jobs/{job_id}/events/{$}", h.ListEvents)
	mux.HandleFunc("GET /job-rest/jobs/{job_id}/rejections/{$}", h.ListRejections)
}
