// Package api exposes the HTTP interface for the crawl config service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kayiwa/browsertrix-cloud/internal/config"
	"github.com/kayiwa/browsertrix-cloud/internal/crawlconfig"
	"github.com/kayiwa/browsertrix-cloud/internal/metrics"
)

// Server wires HTTP handlers to the crawl config coordination service.
// Authentication and archive membership are resolved upstream; the archive id
// path segment is the ownership boundary this layer enforces on every lookup.
type Server struct {
	router chi.Router
	ops    *crawlconfig.Ops
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(ops *crawlconfig.Ops, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		ops:    ops,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout()))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/archives/{aid}/crawlconfigs", func(r chi.Router) {
		r.Get("/", s.listCrawlConfigs)
		r.Post("/", s.addCrawlConfig)
		r.Delete("/", s.deleteCrawlConfigs)
		r.Route("/{cid}", func(r chi.Router) {
			r.Get("/", s.getCrawlConfig)
			r.Patch("/schedule", s.updateSchedule)
			r.Post("/run", s.runNow)
			r.Post("/done", s.crawlDone)
			r.Delete("/", s.deleteCrawlConfig)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) archive(r *http.Request) crawlconfig.Archive {
	return crawlconfig.Archive{
		ID: chi.URLParam(r, "aid"),
		Storage: crawlconfig.StorageTarget{
			Name:     s.cfg.Storage.Name,
			Endpoint: s.cfg.Storage.Endpoint,
			Bucket:   s.cfg.Storage.Bucket,
		},
	}
}

func (s *Server) listCrawlConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.ops.List(r.Context(), chi.URLParam(r, "aid"))
	if err != nil {
		writeOpsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crawl_configs": configs})
}

func (s *Server) getCrawlConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.ops.Get(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "aid"))
	if err != nil {
		writeOpsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) addCrawlConfig(w http.ResponseWriter, r *http.Request) {
	var in crawlconfig.CrawlConfigIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result, err := s.ops.Add(r.Context(), in, s.archive(r), r.Header.Get("X-User-ID"))
	if err != nil {
		var regErr *crawlconfig.RegistrationError
		var syncErr *crawlconfig.SyncError
		switch {
		case errors.As(err, &regErr):
			// Record persisted; registration pending. Surface both so the
			// caller can retry just the orchestrator step.
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"added": regErr.ConfigID,
				"error": err.Error(),
			})
		case errors.As(err, &syncErr):
			// Registered, but the runNow crawl did not start.
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"added": syncErr.ConfigID,
				"error": err.Error(),
			})
		default:
			writeOpsError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	cid := chi.URLParam(r, "cid")
	if err := s.ops.UpdateSchedule(r.Context(), cid, chi.URLParam(r, "aid"), req.Schedule); err != nil {
		writeOpsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"updated": cid})
}

func (s *Server) runNow(w http.ResponseWriter, r *http.Request) {
	crawlID, err := s.ops.Run(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "aid"))
	if err != nil {
		writeOpsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"started": crawlID})
}

// crawlDone is the orchestrator's run completion callback.
func (s *Server) crawlDone(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.IncrementCrawlCount(r.Context(), chi.URLParam(r, "cid")); err != nil {
		writeOpsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) deleteCrawlConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.ops.Delete(r.Context(), chi.URLParam(r, "cid"), chi.URLParam(r, "aid")); err != nil {
		writeOpsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": 1})
}

func (s *Server) deleteCrawlConfigs(w http.ResponseWriter, r *http.Request) {
	result, err := s.ops.DeleteAllForArchive(r.Context(), chi.URLParam(r, "aid"))
	if err != nil {
		writeOpsError(w, err)
		return
	}
	status := http.StatusOK
	if len(result.Remaining) > 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

// writeOpsError maps coordination service error kinds to HTTP statuses.
func writeOpsError(w http.ResponseWriter, err error) {
	var valErr *crawlconfig.ValidationError
	var syncErr *crawlconfig.SyncError
	switch {
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, crawlconfig.ErrNotFound):
		writeError(w, http.StatusNotFound, "crawl config not found")
	case errors.Is(err, crawlconfig.ErrDuplicateKey):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, crawlconfig.ErrManagerUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &syncErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
