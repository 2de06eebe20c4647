// Package workflowtest provides an end-to-end harness that runs the full
// HTTP stack against a real database, for exercising complete delta
// workflows: create, conditional patch, rejection, undo.
package workflowtest

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/fabworks/jobshop/internal/data"
	"github.com/fabworks/jobshop/internal/domain/model"
	httpx "github.com/fabworks/jobshop/internal/http"
	"github.com/fabworks/jobshop/internal/service"
	"github.com/fabworks/jobshop/internal/testutil"
)

// DefaultActor is the attribution header value the harness sends unless a
// request overrides it.
const DefaultActor = "workflow@jobshop"

// Harness runs the router over real repositories and a test database.
type Harness struct {
	T  testutil.TestingTB
	DB *sql.DB

	JobRepo       *data.JobRepo
	EventRepo     *data.EventRepo
	RejectionRepo *data.RejectionRepo

	Jobs   *service.JobService
	Deltas *service.DeltaService

	Server *httptest.Server
	Client *http.Client
}

// Setup builds the harness. The test is skipped when no test database is
// available.
func Setup(t testutil.TestingTB) *Harness {
	t.Helper()

	db := testutil.SetupAutoDB(t)

	jobRepo := data.NewJobRepo(db, data.RepoConfig{})
	eventRepo := data.NewEventRepo(db)
	rejectionRepo := data.NewRejectionRepo(db)

	jobs := service.MustNewJobService(service.JobServiceOptions{Jobs: jobRepo})
	deltas := service.MustNewDeltaService(service.DeltaServiceOptions{
		Jobs:       jobRepo,
		Events:     eventRepo,
		Rejections: rejectionRepo,
	})

	router := httpx.NewRouter(httpx.RouterServices{
		Jobs:   jobs,
		Deltas: deltas,
	})
	server := httptest.NewServer(router)

	return &Harness{
		T:             t,
		DB:            db,
		JobRepo:       jobRepo,
		EventRepo:     eventRepo,
		RejectionRepo: rejectionRepo,
		Jobs:          jobs,
		Deltas:        deltas,
		Server:        server,
		Client:        server.Client(),
	}
}

// Close shuts down the HTTP server. Database teardown is owned by the
// testutil setup that created the connection.
func (h *Harness) Close() {
	h.Server.Close()
}

// Response captures a decoded HTTP exchange.
type Response struct {
	Status int
	ETag   string
	Body   []byte
}

// Decode unmarshals the response body into out.
func (r *Response) Decode(out any) error {
	return json.Unmarshal(r.Body, out)
}

// Do sends a JSON request through the running server. Headers may be nil.
func (h *Harness) Do(method, path string, body any, headers map[string]string) *Response {
	h.T.Helper()

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.T.Fatalf("marshal request body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, payload)
	if err != nil {
		h.T.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(httpx.ActorHeader, DefaultActor)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		h.T.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			h.T.Logf("warning: close response body: %v", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		h.T.Fatalf("read response body: %v", err)
	}

	return &Response{
		Status: resp.StatusCode,
		ETag:   resp.Header.Get("ETag"),
		Body:   raw,
	}
}

// CreateJob creates a job through the API and fails the test on a
// non-201 response.
func (h *Harness) CreateJob(req *model.CreateJobRequest) (*model.JobRecord, string) {
	h.T.Helper()

	resp := h.Do(http.MethodPost, "/job-rest/jobs/", req, nil)
	if resp.Status != http.StatusCreated {
		h.T.Fatalf("create job: status %d, body %s", resp.Status, resp.Body)
	}

	var job model.JobRecord
	if err := resp.Decode(&job); err != nil {
		h.T.Fatalf("decode created job: %v", err)
	}
	return &job, resp.ETag
}

// GetJob fetches a job through the API.
func (h *Harness) GetJob(jobID string) (*model.JobRecord, string) {
	h.T.Helper()

	resp := h.Do(http.MethodGet, "/job-rest/jobs/"+jobID+"/", nil, nil)
	if resp.Status != http.StatusOK {
		h.T.Fatalf("get job: status %d, body %s", resp.Status, resp.Body)
	}

	var job model.JobRecord
	if err := resp.Decode(&job); err != nil {
		h.T.Fatalf("decode job: %v", err)
	}
	return &job, resp.ETag
}

// PatchDelta submits an envelope through the conditional write endpoint and
// returns the raw response for status assertions.
func (h *Harness) PatchDelta(env *model.DeltaEnvelope, ifMatch string) *Response {
	h.T.Helper()

	headers := map[string]string{}
	// The attribution header must agree with the envelope's actor.
	if env.ActorID != "" {
		headers[httpx.ActorHeader] = env.ActorID
	}
	if ifMatch != "" {
		headers["If-Match"] = ifMatch
	}
	return h.Do(http.MethodPatch, "/job-rest/jobs/"+env.JobID+"/", env, headers)
}

// Undo submits an undo request for the given change.
func (h *Harness) Undo(jobID string, req *model.UndoRequest) *Response {
	h.T.Helper()

	headers := map[string]string{}
	if req != nil && req.ActorID != "" {
		headers[httpx.ActorHeader] = req.ActorID
	}
	return h.Do(http.MethodPost, "/job-rest/jobs/"+jobID+"/undo-change/", req, headers)
}

// ListEvents fetches the event timeline for a job.
func (h *Harness) ListEvents(jobID string) []*model.JobEvent {
	h.T.Helper()

	resp := h.Do(http.MethodGet, "/job-rest/jobs/"+jobID+"/events/", nil, nil)
	if resp.Status != http.StatusOK {
		h.T.Fatalf("list events: status %d, body %s", resp.Status, resp.Body)
	}

	var body struct {
		Events []*model.JobEvent `json:"events"`
	}
	if err := resp.Decode(&body); err != nil {
		h.T.Fatalf("decode events: %v", err)
	}
	return body.Events
}

// ListRejections fetches the rejection telemetry for a job.
func (h *Harness) ListRejections(jobID string) []*model.JobDeltaRejection {
	h.T.Helper()

	resp := h.Do(http.MethodGet, "/job-rest/jobs/"+jobID+"/rejections/", nil, nil)
	if resp.Status != http.StatusOK {
		h.T.Fatalf("list rejections: status %d, body %s", resp.Status, resp.Body)
	}

	var body struct {
		Rejections []*model.JobDeltaRejection `json:"rejections"`
	}
	if err := resp.Decode(&body); err != nil {
		h.T.Fatalf("decode rejections: %v", err)
	}
	return body.Rejections
}

// WaitForRejections polls until the job has at least n rejection records or
// the timeout elapses. Rejection recording is asynchronous.
func (h *Harness) WaitForRejections(jobID string, n int, timeout time.Duration) []*model.JobDeltaRejection {
	h.T.Helper()

	deadline := time.Now().Add(timeout)
	for {
		rejections := h.ListRejections(jobID)
		if len(rejections) >= n {
			return rejections
		}
		if time.Now().After(deadline) {
			h.T.Fatalf("timed out waiting for %d rejections, have %d", n, len(rejections))
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// AppliedResponse mirrors the apply/undo success body.
type AppliedResponse struct {
	Job   *model.JobRecord `json:"job"`
	Event *model.JobEvent  `json:"event"`
}

// DecodeApplied decodes an apply/undo success body, failing the test on
// malformed JSON.
func (h *Harness) DecodeApplied(resp *Response) *AppliedResponse {
	h.T.Helper()

	var applied AppliedResponse
	if err := resp.Decode(&applied); err != nil {
		h.T.Fatalf("decode applied response: %v (body %s)", err, resp.Body)
	}
	return &applied
}

// UniqueOrderNumber returns an order number unique to this test run.
func UniqueOrderNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
