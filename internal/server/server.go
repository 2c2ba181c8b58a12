// Package server serves the exported catalog and the harvester's
// operational endpoints over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester"
	"github.com/agentstation/harvester/internal/server/cache"
	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/metrics"
	pkgsync "github.com/agentstation/harvester/pkg/sync"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	client    harvester.Client
	cache     *cache.Cache
	metrics   *metrics.Metrics
	logger    *zerolog.Logger
	config    Config
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// New creates a new server for client. m may be nil when metrics are disabled.
func New(client harvester.Client, m *metrics.Metrics, cfg Config, logger *zerolog.Logger) *Server {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = constants.CacheTTL
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "X-API-Key"
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		client:    client,
		cache:     cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		metrics:   m,
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	s.connectHooks()
	return s
}

// connectHooks drops the rendered catalog whenever a run changes records.
func (s *Server) connectHooks() {
	s.client.OnHarvestCompleted(func(result *pkgsync.Result) {
		if !result.HasChanges() {
			return
		}
		s.cache.Delete(cache.CatalogKey)
		s.logger.Debug().
			Str("source_id", result.SourceID.String()).
			Msg("Catalog cache invalidated")
	})
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// HTTPServer returns an http.Server bound to the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Shutdown stops background services.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()
	return nil
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}
