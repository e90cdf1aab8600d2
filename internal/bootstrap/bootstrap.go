// Package bootstrap connects the optional backends named in the
// configuration and assembles the filter service on top of them. Every
// command that runs filters goes through Open so they all see the same
// collection sources.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	natsadapter "github.com/samirrijal/platekit/internal/adapters/nats"
	"github.com/samirrijal/platekit/internal/adapters/geojson"
	"github.com/samirrijal/platekit/internal/adapters/postgres"
	"github.com/samirrijal/platekit/internal/adapters/source"
	"github.com/samirrijal/platekit/internal/adapters/valkey"
	"github.com/samirrijal/platekit/internal/core/ports"
	"github.com/samirrijal/platekit/internal/core/usecases"
	"github.com/samirrijal/platekit/internal/pkg/config"
)

// Backends holds the connected stores and brokers. Disabled or unreachable
// optional backends are nil.
type Backends struct {
	DB        *postgres.DB
	Repo      *postgres.CollectionRepo
	Cache     *valkey.Cache
	Publisher *natsadapter.Publisher
	// Router reads and writes files and, with a database, "pg:" collections.
	Router *source.Router
	// Reader is Router behind the collection cache when valkey is up.
	Reader ports.CollectionReader

	cfg    *config.Config
	logger *slog.Logger
}

// Open connects every enabled backend. A configured database that cannot
// be reached is an error; valkey and NATS failures only degrade the run.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backends{cfg: cfg, logger: logger}

	var database source.Backend
	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		b.DB = db
		b.Repo = postgres.NewCollectionRepo(db)
		database = b.Repo
	}
	b.Router = source.NewRouter(geojson.NewStore(), database)
	b.Reader = b.Router

	if cfg.Valkey.Enabled {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			logger.Warn("valkey unavailable, collection cache disabled", "error", err)
		} else {
			b.Cache = cache
			b.Reader = source.NewCachedReader(b.Router, b.Router, cache, int(cfg.Filter.CacheTTL.Seconds()), logger)
		}
	}

	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn("nats unavailable, run events disabled", "error", err)
		} else {
			b.Publisher = pub
		}
	}

	return b, nil
}

// Events returns the run event publisher, or nil without NATS.
func (b *Backends) Events() ports.EventPublisher {
	if b.Publisher == nil {
		return nil
	}
	return b.Publisher
}

// FilterService builds a filter service over the connected backends.
func (b *Backends) FilterService() *usecases.FilterService {
	return usecases.NewFilterService(b.Reader, b.Router, b.Events(), b.cfg.Filter.OutputDir, b.logger)
}

// RemoteFilterService is FilterService confined to filter.data_dir and
// filter.output_dir, for runs requested over the network.
func (b *Backends) RemoteFilterService() *usecases.FilterService {
	return b.FilterService().Confine(b.cfg.Filter.DataDir)
}

// Close releases every connected backend.
func (b *Backends) Close() {
	if b.Publisher != nil {
		b.Publisher.Close()
	}
	if b.Cache != nil {
		b.Cache.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
}
