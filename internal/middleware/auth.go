package middleware

import (
	"fmt"

	"github.com/fieldvault/revisiondb/internal/services"
	"github.com/fieldvault/revisiondb/internal/types"
	"github.com/gofiber/fiber/v2"
)

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"admin"}, "revisions.authorization.admin")
	}
}

// AuthEditor validates that the request has editor role authorization
func AuthEditor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"editor"}, "revisions.authorization.editor")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, roles []string, errorType string) error {
	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return types.NewCustomError(fiber.StatusForbidden,
			"Authorizer cookie \"cookie_session\" not found", errorType)
	}

	// Validate session
	data, err := services.ValidateSession(session, roles)
	if err != nil {
		return types.NewCustomError(fiber.StatusForbidden,
			fmt.Sprintf("Invalid session: %v", err), errorType)
	}

	// Set user data in context
	if user, ok := data["user"]; ok {
		c.Locals("user", user)
	}

	return c.Next()
}
