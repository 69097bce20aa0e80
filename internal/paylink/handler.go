package paylink

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/asset"
	"github.com/stablevault/stablevault/internal/ledger"
	"github.com/stablevault/stablevault/internal/vault"
)

// Handler exposes the payment-link endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a payment-link HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createLinkRequest struct {
	ID         string `json:"id"`
	Asset      string `json:"asset"`
	Amount     uint64 `json:"amount"`
	SecretHash string `json:"secret_hash"`
	Expiry     string `json:"expiry"`
}

// Create escrows funds from the actor behind a secret hash.
func (h *Handler) Create(c *fiber.Ctx) error {
	actor := vault.Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	var req createLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	expiry, err := time.Parse(time.RFC3339, req.Expiry)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "expiry must be RFC3339")
	}
	link, err := h.service.Create(c.UserContext(), CreateInput{
		ID:         req.ID,
		Creator:    actor,
		Asset:      req.Asset,
		Amount:     req.Amount,
		SecretHash: req.SecretHash,
		Expiry:     expiry,
	})
	if err != nil {
		return linkError(err)
	}
	return c.Status(http.StatusCreated).JSON(linkView(link))
}

type claimRequest struct {
	Secret string `json:"secret"`
}

// Claim releases an escrowed link to the actor when the secret matches.
func (h *Handler) Claim(c *fiber.Ctx) error {
	actor := vault.Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	var req claimRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	link, err := h.service.Claim(c.UserContext(), c.Params("id"), req.Secret, actor)
	if err != nil {
		return linkError(err)
	}
	return c.Status(http.StatusOK).JSON(linkView(link))
}

// Refund returns an expired, unclaimed link's funds to its creator.
func (h *Handler) Refund(c *fiber.Ctx) error {
	actor := vault.Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	link, err := h.service.Refund(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return linkError(err)
	}
	return c.Status(http.StatusOK).JSON(linkView(link))
}

// Get returns link metadata. The secret hash is included; the secret never is.
func (h *Handler) Get(c *fiber.Ctx) error {
	link, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return linkError(err)
	}
	return c.Status(http.StatusOK).JSON(linkView(link))
}

func linkView(link Link) fiber.Map {
	return fiber.Map{
		"id":          link.ID,
		"creator":     link.Creator,
		"asset":       link.Asset,
		"amount":      link.Amount,
		"secret_hash": link.SecretHash,
		"expiry":      link.Expiry,
		"claimed":     link.Claimed,
		"claimed_by":  link.ClaimedBy,
		"refunded":    link.Refunded,
		"created_at":  link.CreatedAt,
	}
}

func linkError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrExpired):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, ErrAlreadyClaimed), errors.Is(err, ErrAlreadyRefunded),
		errors.Is(err, ErrExists), errors.Is(err, ErrNotExpired):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidSecret), errors.Is(err, admin.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, asset.ErrNotAllowed), errors.Is(err, ledger.ErrArithmetic):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
