// Package handlers provides the HTTP handlers of the harvester server.
package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester"
	"github.com/agentstation/harvester/internal/server/cache"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	client    harvester.Client
	cache     *cache.Cache
	logger    *zerolog.Logger
	startTime time.Time
}

// New creates a new Handlers instance.
func New(client harvester.Client, cache *cache.Cache, logger *zerolog.Logger, startTime time.Time) *Handlers {
	return &Handlers{
		client:    client,
		cache:     cache,
		logger:    logger,
		startTime: startTime,
	}
}
