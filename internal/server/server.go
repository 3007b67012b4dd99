// Package server exposes the collaboration pipeline over HTTP. A run is
// streamed to the client as Server-Sent Events, one frame per pipeline
// event, and can be mirrored to NATS and JSONL transcripts on the way.
package server

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Iron-Ham/codepair/internal/config"
	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/logging"
	"github.com/Iron-Ham/codepair/internal/pipeline"
)

// Runner prepares and executes collaboration requests. *pipeline.Pipeline
// implements it.
type Runner interface {
	Prepare(req pipeline.Request) (pipeline.Request, error)
	Run(ctx context.Context, req pipeline.Request) iter.Seq[event.Event]
}

// Discoverer lists locally installed models. *llm.Discoverer implements it.
type Discoverer interface {
	Discover(ctx context.Context) llm.Discovery
}

// Server serves the collaboration API.
type Server struct {
	cfg        config.ServerConfig
	runner     atomic.Pointer[runnerBox]
	discoverer Discoverer
	logger     *logging.Logger

	publisher     event.Publisher
	subjectPrefix string
	transcriptDir string

	engine *gin.Engine

	mu     sync.Mutex
	server *http.Server
}

// runnerBox lets an interface value live in an atomic.Pointer.
type runnerBox struct{ Runner }

// Option customizes server construction.
type Option func(*Server)

// WithPublisher mirrors every run's events to pub under prefix.
func WithPublisher(pub event.Publisher, prefix string) Option {
	return func(s *Server) {
		if pub != nil {
			s.publisher = pub
			s.subjectPrefix = prefix
		}
	}
}

// WithTranscriptDir writes one <runID>.jsonl transcript per run into dir.
func WithTranscriptDir(dir string) Option {
	return func(s *Server) {
		s.transcriptDir = dir
	}
}

// New creates a Server. A nil logger discards logs.
func New(cfg config.ServerConfig, runner Runner, discoverer Discoverer, logger *logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Server{
		cfg:        cfg,
		discoverer: discoverer,
		logger:     logger,
	}
	s.runner.Store(&runnerBox{runner})
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.engine = s.routes()
	return s
}

// SetRunner swaps the runner used for new requests. Runs already streaming
// keep the runner they started with.
func (s *Server) SetRunner(r Runner) {
	s.runner.Store(&runnerBox{r})
}

func (s *Server) currentRunner() Runner {
	return s.runner.Load().Runner
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	if s.cfg.GinMode != "" {
		gin.SetMode(s.cfg.GinMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", s.handleHealth)
	api := engine.Group("/api")
	api.POST("/collaborate", s.handleCollaborate)
	api.GET("/models/ollama", s.handleOllamaModels)
	return engine
}

// ListenAndServe binds cfg.Addr and serves until ctx is canceled or
// Shutdown is called. Request contexts derive from ctx, so canceling it
// interrupts every streaming run.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		_ = listener.Close()
		return fmt.Errorf("server already started")
	}
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("server listening", "addr", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight streams. If
// ctx has no deadline, cfg.ShutdownTimeout applies.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	s.logger.Info("server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		// Streams that outlive the deadline are cut.
		_ = srv.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request. Streaming requests are logged
// when the stream ends.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
