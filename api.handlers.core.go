package main

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

var EmptyData = struct{}{}

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger         *zap.Logger
	config         *Config
	stats          *Statistics
	mode           *Maintenance
	clock          Clocker
	idsHandler     UIDHandler
	catalogService CatalogServiceProvider
	archive        BookArchive
	schema         graphql.Schema
}

// NewAPIHandler provides a new instance of APIHandler. The graphql
// schema is built once from the catalog operations table.
func NewAPIHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	ids UIDHandler,
	cs CatalogServiceProvider,
) (*APIHandler, error) {
	schema, err := NewGraphQLSchema(NewOperations(cs))
	if err != nil {
		return nil, err
	}
	m := &Maintenance{}
	m.enabled.Store(false)
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	return &APIHandler{
		logger:         logger,
		config:         config,
		stats:          stats,
		mode:           m,
		clock:          clock,
		idsHandler:     ids,
		catalogService: cs,
		schema:         schema,
	}, nil
}

// WithArchive enables the ops journal endpoint.
func (api *APIHandler) WithArchive(archive BookArchive) *APIHandler {
	api.archive = archive
	return api
}
