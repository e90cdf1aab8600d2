// Command ingestor imports GeoJSON collections listed in a manifest into
// the database, where filter runs address them as pg:<name>.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samirrijal/platekit/internal/adapters/postgres"
	"github.com/samirrijal/platekit/internal/pkg/config"
	"github.com/samirrijal/platekit/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("platekit-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	// Optional CLI arg: comma separated collection names
	var only []string
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			only = append(only, strings.TrimSpace(s))
		}
	}

	slog.Info("ingesting collections", "count", len(manifest.Collections), "source", manifest.Source)

	ing := &Ingestor{
		Writer:      postgres.NewCollectionRepo(db),
		Client:      &http.Client{Timeout: 120 * time.Second},
		Concurrency: 4,
		Logger:      slog.Default(),
	}
	stats := ing.Run(ctx, manifest.Select(only))

	slog.Info("ingestion complete", "collections", stats.Collections, "features", stats.Features, "failed", stats.Failed)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
