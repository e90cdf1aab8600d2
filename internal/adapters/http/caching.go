package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on
// endpoint, unless the handler already set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/v1/filter/stages":
			ttl = "public, max-age=86400" // stage table changes only with a release

		case path == "/v1/geo/sample" && c.Query("method") == "random" && c.Query("seed") == "":
			ttl = "no-store" // unseeded draws differ on every call

		case strings.HasPrefix(path, "/v1/geo/"), strings.HasPrefix(path, "/v1/paleomag/"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/collections"):
			ttl = "private, max-age=30"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
