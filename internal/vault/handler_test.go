package vault

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/asset"
	"github.com/stablevault/stablevault/internal/event"
	"github.com/stablevault/stablevault/internal/ledger"
	"github.com/stablevault/stablevault/internal/logging"
	"github.com/stablevault/stablevault/internal/swap"
	"github.com/stablevault/stablevault/internal/token"
)

func setupHandlerApp(t *testing.T) (*fiber.App, ledger.Store) {
	t.Helper()

	store := ledger.NewInMemory()
	registry := asset.NewMemoryRegistry()
	admins := admin.NewMemoryRepository("acct:admin")
	svc := NewService(store, registry, admins,
		token.StaticMover{}, swap.NewFixedRateAdapter(), event.NewMemoryEmitter(), logging.Discard())

	h := NewHandler(svc)
	app := fiber.New()
	app.Post("/deposits", h.Deposit)
	app.Post("/withdrawals", h.Withdraw)
	app.Get("/balances/:account/:asset", h.Balance)
	app.Get("/assets", h.ListAssets)
	app.Post("/admin/assets", h.AllowAsset)
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path, actor, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s %s: %v", method, path, err)
	}
	return resp
}

func TestDepositRequiresActor(t *testing.T) {
	app, _ := setupHandlerApp(t)

	resp := doJSON(t, app, fiber.MethodPost, "/deposits", "", `{"asset":"USDC","amount":100}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected %d, got %d", http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestDepositAndBalanceOverHTTP(t *testing.T) {
	app, _ := setupHandlerApp(t)

	// allow the asset as the bootstrap admin first
	resp := doJSON(t, app, fiber.MethodPost, "/admin/assets", "acct:admin", `{"asset":"USDC"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("allow asset: expected %d, got %d", http.StatusNoContent, resp.StatusCode)
	}

	resp = doJSON(t, app, fiber.MethodPost, "/deposits", "acct:alice", `{"asset":"USDC","amount":250}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("deposit: expected %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	resp = doJSON(t, app, fiber.MethodGet, "/balances/acct:alice/USDC", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var out struct {
		Balance uint64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	resp.Body.Close()
	if out.Balance != 250 {
		t.Fatalf("expected balance 250, got %d", out.Balance)
	}
}

func TestDepositOfUnlistedAssetRejected(t *testing.T) {
	app, _ := setupHandlerApp(t)

	resp := doJSON(t, app, fiber.MethodPost, "/deposits", "acct:alice", `{"asset":"DOGE","amount":100}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestAllowAssetRequiresAdmin(t *testing.T) {
	app, _ := setupHandlerApp(t)

	resp := doJSON(t, app, fiber.MethodPost, "/admin/assets", "acct:mallory", `{"asset":"USDC"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected %d, got %d", http.StatusForbidden, resp.StatusCode)
	}
}

func TestWithdrawOverdraftConflict(t *testing.T) {
	app, store := setupHandlerApp(t)

	resp := doJSON(t, app, fiber.MethodPost, "/admin/assets", "acct:admin", `{"asset":"USDC"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("allow asset: got %d", resp.StatusCode)
	}
	ledger.SeedBalance(store, "acct:alice", "USDC", 50)

	resp = doJSON(t, app, fiber.MethodPost, "/withdrawals", "acct:alice", `{"asset":"USDC","amount":100,"to":"0xdest"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected %d, got %d", http.StatusConflict, resp.StatusCode)
	}

	resp = doJSON(t, app, fiber.MethodPost, "/withdrawals", "acct:alice", `{"asset":"USDC","amount":50,"to":"0xdest"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	var out struct {
		Net uint64 `json:"net"`
		Fee uint64 `json:"fee"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode withdrawal: %v", err)
	}
	resp.Body.Close()
	if out.Net != 50 || out.Fee != 0 {
		t.Fatalf("expected net 50 fee 0, got net %d fee %d", out.Net, out.Fee)
	}

	resp = doJSON(t, app, fiber.MethodGet, "/assets", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list assets: got %d", resp.StatusCode)
	}
	var assets struct {
		Assets []string `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		t.Fatalf("decode assets: %v", err)
	}
	resp.Body.Close()
	if len(assets.Assets) != 1 || assets.Assets[0] != "USDC" {
		t.Fatalf("expected [USDC], got %v", assets.Assets)
	}
}
