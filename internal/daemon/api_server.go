package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"timelapse/internal/api"
	"timelapse/internal/config"
	"timelapse/internal/jobs"
	"timelapse/internal/logging"
	"timelapse/internal/services"
	"timelapse/internal/staging"
	"timelapse/internal/workflow"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	s := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeMessage(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.Use(requestIDMiddleware, metricsMiddleware(d.metrics, s.log()))

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if d.metrics != nil {
		router.Handle("/metrics", d.metrics.Handler()).Methods(http.MethodGet)
	}

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(authMiddleware(strings.TrimSpace(cfg.Paths.APIToken)))
	apiRouter.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	apiRouter.HandleFunc("/preview/{jobId}/{index}", s.handlePreview).Methods(http.MethodGet)
	apiRouter.HandleFunc("/create-timelapse", s.handleCreate).Methods(http.MethodPost)
	apiRouter.HandleFunc("/job-status/{jobId}", s.handleJobStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs", s.handleJobs).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs/{jobId}", s.handleRemove).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/download/{jobId}", s.handleDownload).Methods(http.MethodGet)
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.handler = withCORS(router)
	return s
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.log().Info("api server disabled; paths.api_bind is empty")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.server = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, "expected a multipart/form-data upload")
		return
	}

	layout := s.daemon.layout
	jobID, err := layout.Create()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	discard := func() {
		if err := layout.Cleanup(jobID); err != nil {
			s.log().Debug("upload cleanup failed", logging.String(logging.FieldJobID, jobID), logging.Error(err))
		}
	}

	names := make([]string, 0, 16)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			discard()
			s.writeError(w, r, services.Wrap(services.ErrValidation, "upload", "read part", "malformed multipart body", err))
			return
		}
		filename := part.FileName()
		if filename == "" {
			_ = part.Close()
			continue
		}
		stored, ok, err := layout.Ingest(jobID, filename, part)
		_ = part.Close()
		if err != nil {
			discard()
			s.writeError(w, r, err)
			return
		}
		if ok {
			names = append(names, stored)
		}
	}

	if len(names) == 0 {
		discard()
		s.writeMessage(w, http.StatusBadRequest, "no valid image files uploaded")
		return
	}

	logging.WithContext(r.Context(), s.log()).Info("frames uploaded",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("file_count", len(names)),
		logging.String(logging.FieldEventType, "frames_uploaded"),
	)
	s.writeJSON(w, http.StatusOK, api.UploadResponse{JobID: jobID, FileCount: len(names), Filenames: names})
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid frame index %q", vars["index"]))
		return
	}
	path, contentType, err := s.daemon.layout.Preview(vars["jobId"], index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	s.serveFile(w, r, path)
}

func (s *apiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.daemon.workflow.Submit(r.Context(), workflow.Request{
		JobID:    strings.TrimSpace(req.JobID),
		FPS:      req.FPS,
		Rotation: req.Rotation,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CreateResponse{JobID: req.JobID, Status: string(jobs.StateProcessing)})
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if err := staging.ValidateJobID(jobID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobs.View(s.daemon.store.Get(jobID)))
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	snapshot := s.daemon.store.Snapshot()
	dirs, err := staging.ListJobs(s.daemon.layout.Root)
	if err != nil {
		s.log().Debug("job directory listing failed", logging.Error(err))
	}
	for _, dir := range dirs {
		if _, ok := snapshot[dir.ID]; !ok {
			snapshot[dir.ID] = jobs.Status{State: jobs.StatePending}
		}
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromSnapshot(snapshot)})
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if err := staging.ValidateJobID(jobID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if state := s.daemon.store.Get(jobID).State; state != jobs.StateCompleted {
		s.writeMessage(w, http.StatusNotFound, fmt.Sprintf("video not ready (job is %s)", state))
		return
	}
	path, err := s.daemon.layout.Output(jobID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	header := w.Header()
	header.Set("Content-Type", "video/mp4")
	header.Set("Content-Disposition", fmt.Sprintf("inline; filename=\"timelapse_%s.mp4\"", jobID))
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	s.serveFile(w, r, path)
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if err := s.daemon.workflow.Remove(jobID); err != nil {
		s.writeError(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.log()).Info("job removed",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEventType, "job_removed"),
	)
	s.writeJSON(w, http.StatusOK, api.RemoveResponse{Removed: true})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		SessionID:    status.SessionID,
		StorageDir:   status.StorageDir,
		LockFilePath: status.LockFilePath,
		Jobs:         api.MergeCounts(status.Jobs),
		Dependencies: api.FromDependencies(status.Dependencies),
	})
}

func (s *apiServer) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	file, err := os.Open(path)
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrNotFound, "api", "open", "file unavailable", err))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeMessage(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage_dir permissions and free space"),
			logging.String(logging.FieldImpact, "client request was not served"),
		)
	}
	s.writeMessage(w, status, services.Detail(err))
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
