// Package server provides the HTTP REST API for issue triage, commit intake
// and requisition review.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/taskmatch/internal/pipeline"
	"github.com/jonathan/taskmatch/internal/server/ratelimit"
	"github.com/jonathan/taskmatch/internal/types"
)

// IssueService triages issues and reads work items.
type IssueService interface {
	Process(ctx context.Context, req types.IssueRequest) (*pipeline.IssueResult, error)
	TriageBatch(ctx context.Context, reqs []types.IssueRequest, parallelism int) []pipeline.BatchResult
	Get(ctx context.Context, id string) (*types.WorkItem, error)
}

// CommitService ingests commits.
type CommitService interface {
	Process(ctx context.Context, req types.CommitRequest) (*pipeline.CommitResult, error)
}

// RequisitionService reads and moves requisitions.
type RequisitionService interface {
	List(ctx context.Context, status types.RequisitionStatus) ([]types.Requisition, error)
	Get(ctx context.Context, id string) (*types.Requisition, error)
	Approve(ctx context.Context, id string) (*types.Requisition, error)
	Close(ctx context.Context, id string) (*types.Requisition, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Issues       IssueService
	Commits      CommitService
	Requisitions RequisitionService
	Logger       *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port      int
	RateLimit ratelimit.Config
	// BatchParallelism bounds POST /issues/batch; zero means 4.
	BatchParallelism int
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	deps        Deps
	logger      *zap.Logger
	rateLimiter *ratelimit.Limiter
	parallelism int
}

// New creates a new server instance. Call Start to serve, or Handler to mount
// the routes elsewhere.
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{
		deps:        deps,
		logger:      deps.Logger.Named("http"),
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit, nil),
		parallelism: cfg.BatchParallelism,
	}
	if s.parallelism <= 0 {
		s.parallelism = 4
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /issues", s.handleCreateIssue)
	mux.HandleFunc("POST /issues/stream", s.handleCreateIssueStream)
	mux.HandleFunc("POST /issues/batch", s.handleBatchIssues)
	mux.HandleFunc("GET /issues/{id}", s.handleGetIssue)

	mux.HandleFunc("POST /commits", s.handleCreateCommit)

	mux.HandleFunc("GET /requisitions", s.handleListRequisitions)
	mux.HandleFunc("GET /requisitions/{id}", s.handleGetRequisition)
	mux.HandleFunc("POST /requisitions/{id}/approve", s.handleApproveRequisition)
	mux.HandleFunc("POST /requisitions/{id}/close", s.handleCloseRequisition)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // oracle calls are slow
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.rateLimiter.Stop()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close releases background resources without serving. Used by tests.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming handlers working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// withRateLimit throttles the intake routes per client IP.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := s.rateLimiter.Allow(clientID(r), r.Method, r.URL.Path)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		}
		if !info.Allowed {
			retry := int(info.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.logger.Warn("rate limit exceeded",
				zap.String("client", clientID(r)),
				zap.String("path", r.URL.Path))
			s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "Rate limit exceeded. Please try again later.",
				"retry_after": retry,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID is the request's remote IP, or the raw address if it has no port.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to a status and writes it. Server errors are logged.
func (s *Server) failure(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}
