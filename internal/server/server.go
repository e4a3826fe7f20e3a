// Package server exposes the HyperWork store over an HTTP JSON API
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hyperworkchat/hyperwork/internal/config"
)

// HTTPServer is the API server.
type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	log    zerolog.Logger
}

// NewEngine returns the gin router with the middleware chain and every
// route registered.
func NewEngine(cfg *config.Config, log zerolog.Logger, h HandlerSet) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = true
	engine.RedirectFixedPath = true

	engine.Use(
		RequestID(),
		Logger(log),
		Recovery(log),
		CORS(cfg.Server.AllowOrigins),
	)

	h.Register(engine.Group("/api"))

	return engine
}

func NewHTTPServer(cfg *config.Config, log zerolog.Logger, h HandlerSet) *HTTPServer {
	engine := NewEngine(cfg, log, h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &HTTPServer{
		engine: engine,
		server: srv,
		log:    log,
	}
}

// Start serves requests until the server is shut down.
func (s *HTTPServer) Start() error {
	s.log.Info().
		Str("addr", s.server.Addr).
		Msg("http server starting")

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown stops accepting requests and waits for active ones to finish.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}
