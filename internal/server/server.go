// Package server exposes the query engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"policyrag/internal/domain"
	"policyrag/internal/logger"
	"policyrag/internal/metrics"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnsupportedTask = errors.New("unsupported task")
)

const (
	maxBodyBytes = 1 << 20
	limiterIdle  = 10 * time.Minute
)

// Engine is the part of the query service the transport needs.
type Engine interface {
	ProcessQuery(ctx context.Context, question string, topK int) (*domain.QueryResponse, error)
	Documents() []domain.Document
	Len() int
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RateLimitRPS   float64 // zero disables rate limiting
	RateLimitBurst int
	MinConfidence  float64
}

// Server serves /run, /health, /documents and /metrics.
type Server struct {
	server   *http.Server
	engine   Engine
	cfg      Config
	log      *logger.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	limiter  *ClientLimiter
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a server. A nil gatherer serves the default Prometheus registry.
func New(engine Engine, cfg Config, log *logger.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		engine:   engine,
		cfg:      cfg,
		log:      log.Component("http"),
		metrics:  m,
		gatherer: gatherer,
		done:     make(chan struct{}),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = NewClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /documents", s.handleDocuments)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return s.observe(s.recoverPanics(s.limit(mux)))
}

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.LogServerStart(s.cfg.Addr, s.engine.Len())
	if s.limiter != nil {
		go s.pruneLimiters(s.done)
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.LogServerShutdown()
	s.stopOnce.Do(func() { close(s.done) })
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed JSON body: %v", ErrInvalidRequest, err))
		return
	}
	if req.Task != "" && req.Task != domain.TaskRAGQA {
		writeError(w, fmt.Errorf("%w: %s. Only '%s' is supported", ErrUnsupportedTask, req.Task, domain.TaskRAGQA))
		return
	}
	question := req.Question()
	if question == "" {
		writeError(w, fmt.Errorf("%w: question is required in input_data", ErrInvalidRequest))
		return
	}
	if req.Params.TopK < 0 {
		writeError(w, fmt.Errorf("%w: params.top_k must not be negative", ErrInvalidRequest))
		return
	}
	minConfidence := s.cfg.MinConfidence
	if req.Params.MinConfidence != nil {
		minConfidence = *req.Params.MinConfidence
		if minConfidence < 0 || minConfidence > 1 {
			writeError(w, fmt.Errorf("%w: params.min_confidence must be in [0,1]", ErrInvalidRequest))
			return
		}
	}

	resp, err := s.engine.ProcessQuery(r.Context(), question, req.Params.TopK)
	if err != nil {
		s.log.Error().Err(err).Str("question", question).Msg("Query failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.NewRunResponse(resp, minConfidence))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           domain.StatusOK,
		"service":          "policyrag",
		"documents_loaded": s.engine.Len(),
	})
}

type documentView struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Date          string `json:"date"`
	Version       string `json:"version"`
	Category      string `json:"category"`
	ContentLength int    `json:"content_length"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.engine.Documents()
	views := make([]documentView, len(docs))
	for i, d := range docs {
		views[i] = documentView{
			ID:            d.ID,
			Title:         d.Title,
			Date:          d.DateString(),
			Version:       d.Version,
			Category:      d.Category,
			ContentLength: len([]rune(d.Content)),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(views),
		"documents": views,
	})
}

// writeError maps err onto an HTTP status and a status=error body.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := "internal server error: " + err.Error()
	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrUnsupportedTask) {
		code = http.StatusBadRequest
		msg = err.Error()
	}
	writeStatus(w, code, msg)
}

func writeStatus(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, domain.RunResponse{Status: domain.StatusError, Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
