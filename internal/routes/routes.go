package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stablevault/stablevault/internal/admin"
	"github.com/stablevault/stablevault/internal/asset"
	"github.com/stablevault/stablevault/internal/config"
	"github.com/stablevault/stablevault/internal/event"
	"github.com/stablevault/stablevault/internal/ledger"
	"github.com/stablevault/stablevault/internal/lending"
	"github.com/stablevault/stablevault/internal/middleware"
	"github.com/stablevault/stablevault/internal/paylink"
	"github.com/stablevault/stablevault/internal/subscription"
	"github.com/stablevault/stablevault/internal/swap"
	"github.com/stablevault/stablevault/internal/token"
	"github.com/stablevault/stablevault/internal/vault"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	ctx := context.Background()

	// Storage backends: Postgres when configured, in-memory otherwise.
	var store ledger.Store
	var registry asset.Registry
	var admins admin.Repository
	var linkRepo paylink.Repository
	var subRepo subscription.Repository
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		registry = asset.NewPostgresRegistry(d.DB)
		pgAdmins, err := admin.NewPostgresRepository(ctx, d.DB, d.Cfg.AdminAccount)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		admins = pgAdmins
		linkRepo = paylink.NewPostgresRepository(d.DB)
		subRepo = subscription.NewPostgresRepository(d.DB)
	} else {
		store = ledger.NewInMemory()
		registry = asset.NewMemoryRegistry()
		admins = admin.NewMemoryRepository(d.Cfg.AdminAccount)
		linkRepo = paylink.NewMemoryRepository()
		subRepo = subscription.NewMemoryRepository()
	}

	if err := bootstrap(ctx, d.Cfg, registry, admins); err != nil {
		return err
	}

	var emitter event.Emitter
	if d.Cache != nil {
		emitter = event.NewStreamEmitter(d.Cache, event.DefaultStream)
	} else {
		emitter = event.NewLogEmitter(d.Logger)
	}

	// Rail and venue adapters. Production deployments swap these for real
	// settlement integrations behind the same interfaces.
	vaultSvc := vault.NewService(store, registry, admins,
		token.StaticMover{}, swap.NewFixedRateAdapter(), emitter, d.Logger)
	vaultSvc.RegisterLendingAdapter("mock", lending.NewMockAdapter())

	linkSvc := paylink.NewService(linkRepo, vaultSvc, emitter, d.Logger)
	subSvc := subscription.NewService(subRepo, vaultSvc, registry, admins, emitter, d.Logger)

	vaultHandler := vault.NewHandler(vaultSvc)
	linkHandler := paylink.NewHandler(linkSvc)
	subHandler := subscription.NewHandler(subSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterVaultRoutes(api, vaultHandler)
	RegisterAdminRoutes(api, vaultHandler)
	RegisterLinkRoutes(api, linkHandler, middleware.ClaimRateLimit(d.Cache, 10))
	RegisterSubscriptionRoutes(api, subHandler)

	return nil
}

// bootstrap applies the configured startup state: allow-listed assets and
// the initial fee schedule. The bootstrap administrator is seeded by the
// admin repository itself.
func bootstrap(ctx context.Context, cfg config.Config, registry asset.Registry, admins admin.Repository) error {
	for _, code := range cfg.AllowedAssets {
		if err := registry.Allow(ctx, code); err != nil {
			return fmt.Errorf("allow asset %s: %w", code, err)
		}
	}
	if cfg.FeeBps > 0 && cfg.FeeRecipient != "" {
		current, err := admins.Fee(ctx)
		if err != nil {
			return fmt.Errorf("read fee config: %w", err)
		}
		// Never clobber a fee an administrator already set at runtime.
		if current.Bps == 0 && current.Recipient == "" {
			if err := admins.SetFee(ctx, admin.FeeConfig{Bps: cfg.FeeBps, Recipient: cfg.FeeRecipient}); err != nil {
				return fmt.Errorf("seed fee config: %w", err)
			}
		}
	}
	return nil
}
