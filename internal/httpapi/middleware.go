package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// EnsureViewerID resolves the requesting viewer from the X-Viewer-ID header
// or the viewerId query parameter and stores it in request locals.
// Authentication proper is the surrounding platform's job; this only
// establishes identity for turn checks and display state.
func EnsureViewerID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		viewerID := strings.TrimSpace(c.Get("X-Viewer-ID"))
		if viewerID == "" {
			viewerID = strings.TrimSpace(c.Query("viewerId"))
		}
		if viewerID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "viewer id is required",
			})
		}
		c.Locals("viewerID", viewerID)
		return c.Next()
	}
}

func viewerID(c *fiber.Ctx) string {
	if v, ok := c.Locals("viewerID").(string); ok {
		return v
	}
	return ""
}
