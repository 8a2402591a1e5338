package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const currentAPIVersion = "1.0.0"

// VersionMiddleware resolves the X-Api-Version header, expanding the "1.0"
// alias, and stores the result under the "apiVersion" local.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", currentAPIVersion)
		if version == "1.0" {
			version = currentAPIVersion
		}
		c.Locals("apiVersion", version)
		return c.Next()
	}
}
