package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"speech-transcriber/application/pipeline"
	"speech-transcriber/domain/distribution"
	"speech-transcriber/infrastructure/logging"

	"github.com/gin-gonic/gin"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Config contains HTTP server settings
type Config struct {
	Address           string
	MaxUploadBytes    int64
	MaxConcurrentRuns int
	ShutdownTimeout   time.Duration
}

// Server exposes the pipeline over HTTP
type Server struct {
	cfg       Config
	runner    Runner
	artifacts distribution.ArtifactReader
	runs      chan struct{}
	engine    *gin.Engine
	log       *logging.Logger
}

// New creates a server. artifacts may be nil when stored audio is not served.
func New(cfg Config, runner Runner, artifacts distribution.ArtifactReader, log *logging.Logger) *Server {
	if cfg.MaxConcurrentRuns < 1 {
		cfg.MaxConcurrentRuns = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}

	s := &Server{
		cfg:       cfg,
		runner:    runner,
		artifacts: artifacts,
		runs:      make(chan struct{}, cfg.MaxConcurrentRuns),
		log:       log,
	}

	engine := gin.New()
	engine.Use(requestLogger(log), recovery())
	engine.GET("/healthz", s.health)
	api := engine.Group("/api")
	api.POST("/transcriptions", s.transcribe)
	api.GET("/artifacts/:key/:filename", s.artifact)
	s.engine = engine

	return s
}

// Handler returns the HTTP handler, for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on l until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	s.log.WithField("addr", l.Addr().String()).Info("HTTP server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// ListenAndServe binds the configured address and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, l)
}

// acquire waits for a free run slot or the request to go away
func (s *Server) acquire(ctx context.Context) (func(), error) {
	select {
	case s.runs <- struct{}{}:
		return func() { <-s.runs }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
