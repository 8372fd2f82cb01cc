package web

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed dashboard.html
var dashboardHTML []byte

// handleDashboard serves the built-in monitor page.
func (s *Server) handleDashboard(c *fiber.Ctx) error {
	c.Type("html")
	return c.Send(dashboardHTML)
}
