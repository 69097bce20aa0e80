package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stablevault/stablevault/internal/subscription"
)

// RegisterSubscriptionRoutes wires the subscription endpoints. Charge is
// intentionally open: any keeper may trigger a due charge.
func RegisterSubscriptionRoutes(r fiber.Router, h *subscription.Handler) {
	subs := r.Group("/subscriptions")
	subs.Post("", h.Create)
	subs.Get("/:id", h.Get)
	subs.Post("/:id/charge", h.Charge)
	subs.Post("/:id/cancel", h.Cancel)
}
