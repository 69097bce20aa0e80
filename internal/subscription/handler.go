package subscription

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/asset"
	"github.com/stablevault/stablevault/internal/vault"
)

// Handler exposes the subscription endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a subscription HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createSubscriptionRequest struct {
	Merchant      string `json:"merchant"`
	Asset         string `json:"asset"`
	Amount        uint64 `json:"amount"`
	PeriodSeconds int64  `json:"period_seconds"`
}

// Create opens a subscription with the actor as subscriber.
func (h *Handler) Create(c *fiber.Ctx) error {
	actor := vault.Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	var req createSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	sub, err := h.service.Create(c.UserContext(), CreateInput{
		Subscriber: actor,
		Merchant:   req.Merchant,
		Asset:      req.Asset,
		Amount:     req.Amount,
		Period:     time.Duration(req.PeriodSeconds) * time.Second,
	})
	if err != nil {
		return subscriptionError(err)
	}
	return c.Status(http.StatusCreated).JSON(subscriptionView(sub))
}

// Cancel deactivates the subscription for its subscriber or an administrator.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	actor := vault.Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	if err := h.service.Cancel(c.UserContext(), c.Params("id"), actor); err != nil {
		return subscriptionError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Charge is the permissionless keeper entrypoint: anyone may trigger a due
// charge. charged=false means the subscriber lacked funds this cycle.
func (h *Handler) Charge(c *fiber.Ctx) error {
	ok, err := h.service.AttemptCharge(c.UserContext(), c.Params("id"))
	if err != nil {
		return subscriptionError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"id":      c.Params("id"),
		"charged": ok,
	})
}

// Get returns subscription metadata plus whether a charge is currently due.
func (h *Handler) Get(c *fiber.Ctx) error {
	sub, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return subscriptionError(err)
	}
	due, err := h.service.Due(c.UserContext(), sub.ID)
	if err != nil {
		return subscriptionError(err)
	}
	view := subscriptionView(sub)
	view["due"] = due
	return c.Status(http.StatusOK).JSON(view)
}

func subscriptionView(sub Subscription) fiber.Map {
	return fiber.Map{
		"id":             sub.ID,
		"subscriber":     sub.Subscriber,
		"merchant":       sub.Merchant,
		"asset":          sub.Asset,
		"amount":         sub.Amount,
		"period_seconds": int64(sub.Period / time.Second),
		"next_due":       sub.NextDue,
		"active":         sub.Active,
		"created_at":     sub.CreatedAt,
	}
}

func subscriptionError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotActive), errors.Is(err, ErrNotDue):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, admin.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, asset.ErrNotAllowed):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
