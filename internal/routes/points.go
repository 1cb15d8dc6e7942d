package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pointbank/pointbank/internal/middleware"
	"github.com/pointbank/pointbank/internal/points"
)

const mutationMaxPerMin = 30

// RegisterPointRoutes wires the transaction endpoint. Mutations always get a
// structured audit log and, when Redis is available, the idempotency and
// rate-limit guards.
func RegisterPointRoutes(api fiber.Router, pts *points.Handler, d Deps) {
	guards := []fiber.Handler{middleware.Audit(d.Logger)}
	if d.Cache != nil {
		guards = append(guards,
			middleware.MutationRateLimit(d.Cache, mutationMaxPerMin),
			middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		)
	}

	group := api.Group("/points")
	for _, g := range guards {
		group.Use(g)
	}
	group.Post("/transactions", pts.Transact)
}
