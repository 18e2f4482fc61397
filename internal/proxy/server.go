package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/maxpantech/mongodb-proxy-service/internal/proxy/handler"
	"github.com/maxpantech/mongodb-proxy-service/internal/proxy/pool"
	"github.com/maxpantech/mongodb-proxy-service/internal/proxy/query"
	"github.com/maxpantech/mongodb-proxy-service/internal/proxy/router"
)

// Server ties the session pool, the dispatcher, the idle reaper and the
// HTTP listener together.
type Server struct {
	opts   *Options
	pool   *pool.Manager
	reaper *pool.Reaper
	http   *http.Server
}

// NewServer builds a Server from the options.
func NewServer(opts *Options) *Server {
	gin.SetMode(opts.Server.Mode)

	mgr := pool.NewManager()
	dispatcher := query.NewDispatcher(opts.Coercion)

	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, handler.NewProxyHandler(mgr, dispatcher))

	return &Server{
		opts:   opts,
		pool:   mgr,
		reaper: pool.NewReaper(mgr, opts.Pool.ReapInterval, opts.Pool.IdleTTL),
		http: &http.Server{
			Addr:         opts.Server.Addr,
			Handler:      engine,
			ReadTimeout:  opts.Server.ReadTimeout,
			WriteTimeout: opts.Server.WriteTimeout,
		},
	}
}

// Run starts the HTTP listener and the idle reaper, then blocks until a
// termination signal arrives. Every live session is closed and its
// credential material removed before Run returns.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go s.reaper.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Server.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		s.pool.CloseAll(context.Background())
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.Server.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("HTTP server shutdown failed", "error", err)
	}

	s.pool.CloseAll(shutdownCtx)
	logger.Info("Server stopped")
	return nil
}
