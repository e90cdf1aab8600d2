package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/platekit/internal/adapters/postgres"
	"github.com/samirrijal/platekit/internal/adapters/valkey"
	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/usecases"
	"github.com/samirrijal/platekit/internal/workflows"
)

// CollectionLister lists stored collections.
type CollectionLister interface {
	List(ctx context.Context) ([]domain.CollectionInfo, error)
}

// BatchService submits batch filter workflows and reports on them.
type BatchService interface {
	StartBatch(ctx context.Context, input workflows.BatchInput) (string, error)
	BatchStatus(ctx context.Context, id string) (*workflows.BatchStatus, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Filter      *usecases.FilterService
	Collections CollectionLister
	Batches     BatchService
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
	// RunTimeout bounds POST /v1/filter; zero means no extra bound.
	RunTimeout time.Duration
	Version    string
	// OpenAPIPath is served at /docs/openapi.yaml.
	OpenAPIPath string
	Logger      *slog.Logger
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
