package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/platekit/internal/pkg/metrics"
)

// kernelTimeout bounds the cheap numeric endpoints. Filter runs are bounded
// by Dependencies.RunTimeout instead.
const kernelTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	logger := deps.logger()

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware(logger))
	app.Use(AccessLogMiddleware(logger))

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(DeprecatedRoutes))

	// Health & readiness
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Filter runs
	v1.Post("/filter", FilterHandler(deps))
	v1.Get("/filter/stages", StagesHandler())
	v1.Get("/collections", timeout.NewWithContext(ListCollectionsHandler(deps), kernelTimeout))
	v1.Post("/batches", timeout.NewWithContext(StartBatchHandler(deps), kernelTimeout))
	v1.Get("/batches/:id", timeout.NewWithContext(BatchStatusHandler(deps), kernelTimeout))

	// Numeric kernels
	v1.Get("/geo/distance", timeout.NewWithContext(DistanceHandler(), kernelTimeout))
	v1.Get("/geo/box", timeout.NewWithContext(BoxHandler(), kernelTimeout))
	v1.Get("/geo/sample", timeout.NewWithContext(SampleHandler(), kernelTimeout))
	v1.Get("/geo/normalize", timeout.NewWithContext(NormalizeHandler(), kernelTimeout))
	v1.Get("/paleomag/precision", timeout.NewWithContext(PrecisionHandler(), kernelTimeout))
	v1.Get("/geo/precision", timeout.NewWithContext(PrecisionHandler(), kernelTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	specPath := deps.OpenAPIPath
	if specPath == "" {
		specPath = "api/openapi.yaml"
	}
	SetupDocs(app, specPath, deps.logger())

	// WebSocket relay needs a broker.
	if deps.NATS == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS, logger)))
}
