package vault

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/ledger"
)

// ActorHeader names the authenticated account the upstream gateway verified.
// The ledger itself never authenticates; it only checks capabilities.
const ActorHeader = "X-Actor"

// Handler exposes the vault's HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a vault HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Actor extracts the acting account from the request.
func Actor(c *fiber.Ctx) string {
	return c.Get(ActorHeader)
}

type depositRequest struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

// Deposit credits the actor's balance after pulling funds over the rail.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	actor := Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.DepositStable(c.UserContext(), actor, req.Asset, req.Amount)
	if err != nil {
		return errorFor(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account": actor,
		"asset":   req.Asset,
		"balance": balance,
	})
}

type swapDepositRequest struct {
	AssetIn      string   `json:"asset_in"`
	AmountIn     uint64   `json:"amount_in"`
	AssetOut     string   `json:"asset_out"`
	MinAmountOut uint64   `json:"min_amount_out"`
	Route        []string `json:"route"`
	Deadline     string   `json:"deadline"`
}

// DepositAndSwap pulls assetIn, swaps it, and credits what the router
// actually delivered.
func (h *Handler) DepositAndSwap(c *fiber.Ctx) error {
	actor := Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	var req swapDepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "deadline must be RFC3339")
	}
	credited, err := h.service.DepositAndSwap(c.UserContext(), actor, req.AssetIn, req.AmountIn,
		req.AssetOut, req.MinAmountOut, req.Route, deadline)
	if err != nil {
		return errorFor(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account":  actor,
		"asset":    req.AssetOut,
		"credited": credited,
	})
}

type withdrawRequest struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
	To     string `json:"to"`
}

// Withdraw debits the actor and pushes the net amount out over the rail.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	actor := Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Withdraw(c.UserContext(), actor, req.Asset, req.Amount, req.To)
	if err != nil {
		return errorFor(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account": actor,
		"asset":   req.Asset,
		"net":     res.Net,
		"fee":     res.Fee,
	})
}

type offchainCreditRequest struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
}

// CreditOffchain reconciles a fiat deposit; the actor must hold the
// operator capability.
func (h *Handler) CreditOffchain(c *fiber.Ctx) error {
	actor := Actor(c)
	if actor == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing actor")
	}
	var req offchainCreditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.CreditOffchain(c.UserContext(), actor, req.Account, req.Asset, req.Amount)
	if err != nil {
		return errorFor(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account": req.Account,
		"asset":   req.Asset,
		"balance": balance,
	})
}

// Balance returns the custody balance for (account, asset).
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.BalanceOf(c.UserContext(), c.Params("account"), c.Params("asset"))
	if err != nil {
		return errorFor(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account":   c.Params("account"),
		"asset":     c.Params("asset"),
		"balance":   balance,
		"timestamp": time.Now().UTC(),
	})
}

// ListAssets returns the custody allow-list.
func (h *Handler) ListAssets(c *fiber.Ctx) error {
	assets, err := h.service.ListAssets(c.UserContext())
	if err != nil {
		return errorFor(err)
	}
	if assets == nil {
		assets = []string{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"assets": assets})
}

type allowAssetRequest struct {
	Asset string `json:"asset"`
}

// AllowAsset adds an asset to the custody allow-list.
func (h *Handler) AllowAsset(c *fiber.Ctx) error {
	var req allowAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.AllowAsset(c.UserContext(), Actor(c), req.Asset); err != nil {
		return errorFor(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// RevokeAsset removes an asset from the allow-list.
func (h *Handler) RevokeAsset(c *fiber.Ctx) error {
	if err := h.service.RevokeAsset(c.UserContext(), Actor(c), c.Params("asset")); err != nil {
		return errorFor(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type setOperatorRequest struct {
	Account string `json:"account"`
	Enabled bool   `json:"enabled"`
}

// SetOperator grants or revokes the operator capability.
func (h *Handler) SetOperator(c *fiber.Ctx) error {
	var req setOperatorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SetOperator(c.UserContext(), Actor(c), req.Account, req.Enabled); err != nil {
		return errorFor(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type setFeeRequest struct {
	Bps       uint64 `json:"bps"`
	Recipient string `json:"recipient"`
}

// SetFee replaces the platform fee configuration.
func (h *Handler) SetFee(c *fiber.Ctx) error {
	var req setFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SetFee(c.UserContext(), Actor(c), req.Bps, req.Recipient); err != nil {
		return errorFor(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type lendingRequest struct {
	Adapter string `json:"adapter"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
}

// LendingDeposit moves surplus custody to a registered yield venue.
func (h *Handler) LendingDeposit(c *fiber.Ctx) error {
	var req lendingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.DepositToLending(c.UserContext(), Actor(c), req.Adapter, req.Asset, req.Amount); err != nil {
		return errorFor(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// LendingWithdraw recalls funds from a yield venue into custody.
func (h *Handler) LendingWithdraw(c *fiber.Ctx) error {
	var req lendingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	returned, err := h.service.WithdrawFromLending(c.UserContext(), Actor(c), req.Adapter, req.Asset, req.Amount)
	if err != nil {
		return errorFor(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"adapter":  req.Adapter,
		"asset":    req.Asset,
		"returned": returned,
	})
}

// errorFor maps domain errors to HTTP errors carrying the specific kind, so
// the UI can present different messaging per case.
func errorFor(err error) error {
	switch {
	case errors.Is(err, admin.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownAdapter):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		// asset.ErrNotAllowed, ledger.ErrArithmetic, slippage, deadline,
		// transfer and solvency failures are all caller errors.
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
