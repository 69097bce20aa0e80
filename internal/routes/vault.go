package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stablevault/stablevault/internal/vault"
)

// RegisterVaultRoutes wires the balance and movement endpoints.
func RegisterVaultRoutes(r fiber.Router, h *vault.Handler) {
	r.Post("/deposits", h.Deposit)
	r.Post("/deposits/swap", h.DepositAndSwap)
	r.Post("/withdrawals", h.Withdraw)
	r.Post("/credits/offchain", h.CreditOffchain)
	r.Get("/balances/:account/:asset", h.Balance)
	r.Get("/assets", h.ListAssets)
}

// RegisterAdminRoutes wires the administrative endpoints. Authorization is
// capability-based inside the service, not route-based.
func RegisterAdminRoutes(r fiber.Router, h *vault.Handler) {
	adm := r.Group("/admin")
	adm.Post("/assets", h.AllowAsset)
	adm.Delete("/assets/:asset", h.RevokeAsset)
	adm.Post("/operators", h.SetOperator)
	adm.Post("/fee", h.SetFee)
	adm.Post("/lending/deposits", h.LendingDeposit)
	adm.Post("/lending/withdrawals", h.LendingWithdraw)
}
