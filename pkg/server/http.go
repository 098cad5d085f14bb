package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/polyglot/pkg/service"
	"github.com/dasmlab/polyglot/pkg/translate"
)

const maxBodyBytes = 10 << 20

// HTTPServer exposes the translation service as a JSON API alongside health
// and metrics endpoints.
type HTTPServer struct {
	svc    *service.TranslationService
	logger *logrus.Logger
	port   int
	srv    *http.Server
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(svc *service.TranslationService, logger *logrus.Logger, port int) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}
	s := &HTTPServer{
		svc:    svc,
		logger: logger,
		port:   port,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routing table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/translate", s.handleTranslate)
	mux.HandleFunc("POST /api/v1/translate/batch", s.handleBatch)
	mux.HandleFunc("POST /api/v1/detect", s.handleDetect)

	// Document jobs
	mux.HandleFunc("POST /api/v1/documents", s.handleSubmitDocument)
	mux.HandleFunc("GET /api/v1/jobs/{jobID}", s.handleJobStatus)

	// Sessions and tasks
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/v1/sessions/{sessionID}/tasks", s.handleTask)
	mux.HandleFunc("GET /api/v1/sessions/{sessionID}/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/v1/sessions/{sessionID}/history", s.handleClearHistory)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"port": s.port,
	}).Info("Starting HTTP server")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req service.TranslateRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Translate(r.Context(), &req)
	s.respond(w, http.StatusOK, resp, err)
}

func (s *HTTPServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req service.BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.TranslateBatch(r.Context(), &req)
	s.respond(w, http.StatusOK, resp, err)
}

func (s *HTTPServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req service.DetectRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.DetectLanguage(r.Context(), &req)
	s.respond(w, http.StatusOK, resp, err)
}

func (s *HTTPServer) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	var req service.DocumentRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.SubmitDocument(r.Context(), &req)
	s.respond(w, http.StatusAccepted, resp, err)
}

func (s *HTTPServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.GetJob(r.Context(), &service.JobRequest{JobID: r.PathValue("jobID")})
	s.respond(w, http.StatusOK, resp, err)
}

func (s *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.svc.CreateSession(r.Context())
	s.respond(w, http.StatusCreated, map[string]string{"session_id": id}, err)
}

func (s *HTTPServer) handleTask(w http.ResponseWriter, r *http.Request) {
	var req service.TaskRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.SessionID = r.PathValue("sessionID")
	resp, err := s.svc.ProcessTask(r.Context(), &req)
	s.respond(w, http.StatusOK, resp, err)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.History(r.Context(), &service.HistoryRequest{SessionID: r.PathValue("sessionID")})
	s.respond(w, http.StatusOK, resp, err)
}

func (s *HTTPServer) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	err := s.svc.ClearHistory(r.Context(), &service.HistoryRequest{SessionID: r.PathValue("sessionID")})
	if err != nil {
		s.respond(w, 0, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth provides a liveness check.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleReady reports 503 until at least one backend answers.
func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := s.svc.CheckReady(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func (s *HTTPServer) respond(w http.ResponseWriter, code int, v any, err error) {
	if err == nil {
		s.writeJSON(w, code, v)
		return
	}

	code = http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrJobNotFound), errors.Is(err, service.ErrSessionNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrTranslationFailed), errors.Is(err, translate.ErrProviderUnavailable),
		errors.Is(err, translate.ErrProviderRequestFailed), errors.Is(err, translate.ErrEmptyResult):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
