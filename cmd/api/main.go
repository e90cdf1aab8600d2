package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/platekit/internal/adapters/http"
	natsadapter "github.com/samirrijal/platekit/internal/adapters/nats"
	"github.com/samirrijal/platekit/internal/bootstrap"
	"github.com/samirrijal/platekit/internal/pkg/config"
	"github.com/samirrijal/platekit/internal/pkg/logging"
	"github.com/samirrijal/platekit/internal/pkg/telemetry"
	"github.com/samirrijal/platekit/internal/workflows"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("platekit-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Database, cache, event publisher
	backends, err := bootstrap.Open(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("backends: %v", err)
	}
	defer backends.Close()

	if backends.DB != nil {
		go backends.DB.ReportPoolStats(ctx, 15*time.Second)
	}

	deps := &http.Dependencies{
		Filter:     backends.RemoteFilterService(),
		DB:         backends.DB,
		Cache:      backends.Cache,
		RunTimeout: cfg.Filter.RunTimeout,
		Version:    version,
		Logger:     slog.Default(),
	}
	if backends.Repo != nil {
		deps.Collections = backends.Repo
	}

	// Raw NATS connection for WebSocket relay
	if cfg.NATS.Enabled {
		natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Close()
			deps.NATS = natsConn
		}
	}

	// Temporal client for batch runs
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    slog.Default(),
		})
		if err != nil {
			slog.Warn("temporal unavailable, batch endpoints disabled", "error", err)
		} else {
			defer tc.Close()
			deps.Batches = workflows.NewBatchClient(tc, cfg.Temporal.TaskQueue)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "Platekit API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match, X-Request-ID",
		ExposeHeaders:    "ETag, X-Request-ID, Deprecation, Sunset, Link, Location",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// In-flight filter runs get the configured run timeout to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Filter.RunTimeout+5*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
