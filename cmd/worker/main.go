package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/platekit/internal/adapters/nats"
	"github.com/samirrijal/platekit/internal/bootstrap"
	"github.com/samirrijal/platekit/internal/core/usecases"
	"github.com/samirrijal/platekit/internal/pkg/config"
	"github.com/samirrijal/platekit/internal/pkg/logging"
	"github.com/samirrijal/platekit/internal/pkg/telemetry"
	"github.com/samirrijal/platekit/internal/workflows"
)

func main() {
	cfg, err := config.Load("platekit-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	backends, err := bootstrap.Open(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("backends: %v", err)
	}
	defer backends.Close()

	// Run feed: every finished run is re-broadcast as a compact digest.
	if backends.Publisher != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("run feed disabled", "error", err)
		} else {
			defer sub.Close()
			feed := usecases.NewRunFeedService(backends.Publisher)
			if err := feed.Follow(ctx, sub); err != nil {
				slog.Warn("subscribe run events failed", "error", err)
			}
		}
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	workflows.Register(w, &workflows.FilterActivities{
		Filter:  backends.RemoteFilterService(),
		Outputs: backends.Router,
		Logger:  slog.Default(),
	})

	slog.Info("filter worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
