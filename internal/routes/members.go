package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pointbank/pointbank/internal/member"
	"github.com/pointbank/pointbank/internal/points"
)

// RegisterMemberRoutes wires member lifecycle and audit-view endpoints.
func RegisterMemberRoutes(api fiber.Router, members *member.Handler, pts *points.Handler) {
	api.Post("/members", members.Register)
	api.Get("/members/:id", members.Get)
	api.Get("/members/:id/wallets", pts.Wallets)
}
