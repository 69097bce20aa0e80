package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stablevault/stablevault/internal/paylink"
)

// RegisterLinkRoutes wires the payment-link endpoints. Claim attempts are
// rate limited per link and caller.
func RegisterLinkRoutes(r fiber.Router, h *paylink.Handler, claimLimiter fiber.Handler) {
	links := r.Group("/links")
	links.Post("", h.Create)
	links.Get("/:id", h.Get)
	links.Post("/:id/claim", claimLimiter, h.Claim)
	links.Post("/:id/refund", h.Refund)
}
