// Package bridge exposes the scanner over a local HTTP endpoint for editor
// extensions that cannot spawn processes themselves.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dockerscanner/scanner-bridge/internal/models"
	"github.com/dockerscanner/scanner-bridge/pkg/auth"
	"github.com/dockerscanner/scanner-bridge/pkg/config"
	"github.com/dockerscanner/scanner-bridge/pkg/logging"
	"github.com/dockerscanner/scanner-bridge/pkg/scanner"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// ContentTypeNDJSON is the media type of the scan stream
const ContentTypeNDJSON = "application/x-ndjson"

// ScanBody is the JSON body of POST /scans
type ScanBody struct {
	Image      string `json:"image"`
	Dockerfile string `json:"dockerfile,omitempty"`
	Workspace  string `json:"workspace,omitempty"`
}

// StreamLine is one line of the scan stream. Output lines carry Stream and
// Text; the final line has type "outcome" and the outcome fields.
type StreamLine struct {
	Type      string        `json:"type"`
	RequestID string        `json:"request_id,omitempty"`
	Stream    models.Stream `json:"stream,omitempty"`
	Text      string        `json:"text,omitempty"`

	*models.Outcome
}

// Server represents the HTTP bridge server
type Server struct {
	config        *config.Config
	backend       scanner.Backend
	workspaceRoot string
	router        *mux.Router
	httpServer    *http.Server
	logger        *logrus.Logger
	auth          *auth.Authenticator
	ready         atomic.Bool

	mu     sync.Mutex
	active map[string]*scanner.Invocation
}

// NewServer creates a new bridge server. workspaceRoot is used for requests
// that do not name a workspace.
func NewServer(cfg *config.Config, backend scanner.Backend, workspaceRoot string, logger *logrus.Logger) *Server {
	s := &Server{
		config:        cfg,
		backend:       backend,
		workspaceRoot: workspaceRoot,
		router:        mux.NewRouter(),
		logger:        logger,
		auth:          auth.NewAuthenticator(cfg.Server.Token, logger),
		active:        make(map[string]*scanner.Invocation),
	}

	s.setupRoutes()

	readTimeout, _ := cfg.ParseDuration(cfg.Server.ReadTimeout)

	// no WriteTimeout: scan responses stream for as long as the scanner runs
	s.httpServer = &http.Server{
		Addr:           cfg.Server.Address,
		Handler:        s.router,
		ReadTimeout:    readTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.requestSizeLimitMiddleware)

	scans := s.router.PathPrefix("/scans").Subrouter()
	scans.Use(s.auth.Middleware)
	scans.HandleFunc("", s.handleScan).Methods(http.MethodPost)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReadiness).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server is shut down
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Server.Address)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until the server is shut down
func (s *Server) Serve(listener net.Listener) error {
	s.logger.WithFields(logrus.Fields{
		"address": listener.Addr().String(),
		"auth":    s.auth.Enabled(),
	}).Info("Starting HTTP server")

	s.SetReady(true)

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown stops accepting requests and waits for running scans. Scans still
// running when ctx expires are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.SetReady(false)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		cancelled := s.cancelActive()
		s.logger.WithField("cancelled_scans", cancelled).Warn("Cancelled scans still running at shutdown")
		s.httpServer.Close()
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// SetReady sets the readiness status
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// ActiveScans returns the number of scans currently streaming
func (s *Server) ActiveScans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// handleScan validates the request, launches the scanner and streams its
// output as NDJSON. The request context owns the invocation, so a client
// that disconnects cancels the scan.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body ScanBody
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	workspace := body.Workspace
	if workspace == "" {
		workspace = s.workspaceRoot
	}

	req, err := s.backend.NewRequest(body.Image, body.Dockerfile, workspace)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spec, err := s.backend.BuildCommand(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := logging.LogWithRequestID(s.logger, req.RequestID).WithFields(logrus.Fields{
		"image_ref":  req.Image,
		"dockerfile": req.DockerfilePath,
	})
	logger.Info("Scan requested")

	inv := s.backend.Invoke(r.Context(), spec, req.WorkspaceRoot)
	s.track(inv)
	defer s.untrack(inv)

	w.Header().Set("Content-Type", ContentTypeNDJSON)
	w.Header().Set("X-Request-ID", req.RequestID)
	w.WriteHeader(http.StatusOK)

	stream := &lineWriter{w: w, encoder: json.NewEncoder(w)}
	stream.flusher, _ = w.(http.Flusher)

	sentOutcome := false
	for ev := range inv.Events() {
		line := StreamLine{Type: "output"}
		if ev.IsOutcome() {
			line = StreamLine{Type: "outcome", RequestID: req.RequestID, Outcome: ev.Outcome}
			sentOutcome = true
		} else {
			line.Stream = ev.Chunk.Stream
			line.Text = ev.Chunk.Text
		}

		if err := stream.write(line); err != nil {
			logger.WithError(err).Warn("Client went away, cancelling scan")
			inv.Cancel()
			inv.Wait()
			return
		}
	}

	outcome := inv.Wait()
	if !sentOutcome && r.Context().Err() == nil {
		stream.write(StreamLine{Type: "outcome", RequestID: req.RequestID, Outcome: &outcome})
	}
}

// handleHealth returns the health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// handleReadiness reports ready once the server runs and the scanner resolves
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	if err := s.backend.ValidateConfig(s.workspaceRoot); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) track(inv *scanner.Invocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[inv.ID()] = inv
}

func (s *Server) untrack(inv *scanner.Invocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, inv.ID())
}

func (s *Server) cancelActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.active {
		inv.Cancel()
	}
	return len(s.active)
}

// loggingMiddleware logs all HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"status_code": rw.statusCode,
			"duration_ms": duration.Milliseconds(),
		}).Info("HTTP request")
	})
}

// requestSizeLimitMiddleware enforces maximum request size
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limit := s.config.Server.MaxRequestSize; limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working behind the wrapper
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// lineWriter writes one JSON document per line and flushes after each
type lineWriter struct {
	w       http.ResponseWriter
	encoder *json.Encoder
	flusher http.Flusher
}

func (lw *lineWriter) write(line StreamLine) error {
	if err := lw.encoder.Encode(line); err != nil {
		return err
	}
	if lw.flusher != nil {
		lw.flusher.Flush()
	}
	return nil
}
