package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/widescreen/internal/job"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.Service
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
	running            sync.WaitGroup
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, create handlers only persist the job and return
// without running it.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateConvertJob handles POST /jobs/convert requests.
func (h *Handlers) CreateConvertJob(w http.ResponseWriter, r *http.Request) {
	var req ConvertJobRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.service.CreateConvertJob(r.Context(), job.ConvertInput{
		VideoBase64: req.VideoBase64,
		SourceJobID: req.SourceJobID,
		PushToS3:    req.PushToS3,
	})
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	h.start(r.Context(), created)
	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     created.ID,
		Kind:   string(created.Kind),
		Status: string(created.Status),
	})
}

// CreateFetchJob handles POST /jobs/fetch requests.
func (h *Handlers) CreateFetchJob(w http.ResponseWriter, r *http.Request) {
	var req FetchJobRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.service.CreateFetchJob(r.Context(), job.FetchInput{
		URL:        req.URL,
		UseCookies: req.UseCookies,
		Browser:    req.Browser,
		PushToS3:   req.PushToS3,
	})
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	h.start(r.Context(), created)
	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     created.ID,
		Kind:   string(created.Kind),
		Status: string(created.Status),
	})
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, newJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(found))
}

// GetJobVideo handles GET /jobs/{id}/video requests by serving the local
// output file.
func (h *Handlers) GetJobVideo(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}
	if found.Status != job.StatusCompleted {
		writeError(w, http.StatusConflict, "job is "+string(found.Status), "JOB_NOT_COMPLETED")
		return
	}
	if found.OutputPath == "" {
		writeError(w, http.StatusNotFound, "video not available", "VIDEO_NOT_FOUND")
		return
	}
	if _, err := os.Stat(found.OutputPath); err != nil {
		h.logger.Warn("output video missing",
			slog.String("job_id", found.ID),
			slog.String("path", found.OutputPath),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusNotFound, "video not available", "VIDEO_NOT_FOUND")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, found.OutputPath)
}

// DeleteJobVideo handles DELETE /jobs/{id}/video requests.
func (h *Handlers) DeleteJobVideo(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	err := h.service.DeleteJobVideo(r.Context(), jobID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrJobNotFinished):
		writeError(w, http.StatusConflict, err.Error(), "JOB_NOT_FINISHED")
	default:
		h.logger.Error("failed to delete job video",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete video", "VIDEO_DELETE_FAILED")
	}
}

// decode reads and validates a JSON body, writing the error response
// itself when it returns false.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// findJob loads the job named by the {id} path value, writing the error
// response itself when it returns false.
func (h *Handlers) findJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return nil, false
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return nil, false
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return nil, false
	}
	return found, true
}

func (h *Handlers) writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, job.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "SOURCE_JOB_NOT_FOUND")
	case errors.Is(err, job.ErrSourceNotReady):
		writeError(w, http.StatusConflict, err.Error(), "SOURCE_JOB_NOT_READY")
	default:
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
	}
}

// start runs the job in the background with a context detached from the
// request, so the run outlives the response.
func (h *Handlers) start(ctx context.Context, created *job.Job) {
	h.logger.Info("job created",
		slog.String("job_id", created.ID),
		slog.String("kind", string(created.Kind)),
	)
	if !h.enableAsyncProcess {
		return
	}

	runCtx := context.WithoutCancel(ctx)
	h.running.Go(func() {
		if err := h.service.Run(runCtx, created.ID); err != nil {
			h.logger.Error("background processing failed",
				slog.String("job_id", created.ID),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Wait blocks until every background run started by the handlers returns.
func (h *Handlers) Wait() {
	h.running.Wait()
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
