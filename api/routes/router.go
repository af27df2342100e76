package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmbridge/farmbridge-backend/api/controllers"
	"github.com/farmbridge/farmbridge-backend/api/middleware"
	"github.com/farmbridge/farmbridge-backend/internal/cart"
	"github.com/farmbridge/farmbridge-backend/internal/catalog"
	"github.com/farmbridge/farmbridge-backend/internal/contracts"
	"github.com/farmbridge/farmbridge-backend/internal/earnings"
	"github.com/farmbridge/farmbridge-backend/internal/notifications"
	"github.com/farmbridge/farmbridge-backend/internal/orders"
	"github.com/farmbridge/farmbridge-backend/internal/pricing"
	"github.com/farmbridge/farmbridge-backend/internal/wallet"
	"github.com/farmbridge/farmbridge-backend/pkg/config"
	"github.com/farmbridge/farmbridge-backend/pkg/db"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
	"github.com/farmbridge/farmbridge-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Catalog       catalog.Service
	Cart          cart.Service
	Orders        orders.Service
	Wallet        wallet.Service
	Earnings      earnings.Service
	Pricing       pricing.Service
	Contracts     contracts.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// A nil *redis.Client must stay a plain nil interface downstream.
	var redisP redis.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		redisP = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(idemStore, logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(redisClient, logg))
		}

		r.Route("/produce", func(r chi.Router) {
			r.Get("/", controllers.ListProduce(svcs.Catalog, logg))
			r.Get("/{produceId}", controllers.GetProduce(svcs.Catalog, logg))
			r.Get("/{produceId}/pricing-tiers", controllers.ListTiers(svcs.Pricing, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleFarmer), logg))
				r.Post("/", controllers.CreateProduce(svcs.Catalog, logg))
				r.Patch("/{produceId}", controllers.UpdateProduce(svcs.Catalog, logg))
				r.Delete("/{produceId}", controllers.DeleteProduce(svcs.Catalog, logg))
				r.Post("/{produceId}/restock", controllers.RestockProduce(svcs.Catalog, logg))
			})
		})

		r.Route("/pricing-tiers", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleFarmer), logg))
			r.Post("/", controllers.CreateTier(svcs.Pricing, logg))
			r.Patch("/{tierId}", controllers.UpdateTier(svcs.Pricing, logg))
			r.Delete("/{tierId}", controllers.DeleteTier(svcs.Pricing, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleBuyer), logg))
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Put("/items/{produceId}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{produceId}", controllers.CartRemoveItem(svcs.Cart, logg))
		})

		r.With(middleware.RequireRole(string(enums.UserRoleBuyer), logg)).
			Post("/checkout", controllers.Checkout(svcs.Orders, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/status", controllers.TransitionOrder(svcs.Orders, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleBuyer), logg)).
				Post("/{orderId}/pay", controllers.PayOrder(svcs.Wallet, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Post("/{orderId}/refund", controllers.RefundOrder(svcs.Wallet, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletFetch(svcs.Wallet, logg))
			r.Post("/deposit", controllers.WalletDeposit(svcs.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(svcs.Wallet, logg))
		})

		r.Route("/earnings", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleFarmer), logg))
			r.Get("/", controllers.ListEarnings(svcs.Earnings, logg))
			r.Post("/payout", controllers.PayoutEarnings(svcs.Earnings, logg))
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleBuyer), logg))
			r.Get("/", controllers.ListContracts(svcs.Contracts, logg))
			r.Post("/", controllers.CreateContract(svcs.Contracts, logg))
			r.Get("/{contractId}", controllers.ContractDetail(svcs.Contracts, logg))
			r.Post("/{contractId}/deactivate", controllers.DeactivateContract(svcs.Contracts, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	return r
}
