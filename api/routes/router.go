package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marketpay/marketpay-backend/api/controllers"
	"github.com/marketpay/marketpay-backend/api/middleware"
	"github.com/marketpay/marketpay-backend/internal/accounts"
	"github.com/marketpay/marketpay-backend/internal/admin"
	"github.com/marketpay/marketpay-backend/internal/auth"
	"github.com/marketpay/marketpay-backend/internal/ledger"
	"github.com/marketpay/marketpay-backend/internal/notifications"
	"github.com/marketpay/marketpay-backend/internal/orders"
	"github.com/marketpay/marketpay-backend/internal/stores"
	"github.com/marketpay/marketpay-backend/pkg/config"
	"github.com/marketpay/marketpay-backend/pkg/db"
	"github.com/marketpay/marketpay-backend/pkg/enums"
	"github.com/marketpay/marketpay-backend/pkg/logger"
	"github.com/marketpay/marketpay-backend/pkg/redis"
)

// Services groups everything the router wires into controllers.
type Services struct {
	Auth          auth.Service
	Accounts      accounts.Service
	Ledger        ledger.Service
	Stores        stores.Service
	Orders        orders.Service
	Notifications notifications.Service
	Admin         admin.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP redis.Pinger
	var limiterStore middleware.RateLimiterStore
	if redisClient != nil {
		redisP = redisClient
		limiterStore = redisClient
	}

	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewRateLimitPolicy(
		"register",
		cfg.RateLimit.RegisterWindow,
		cfg.RateLimit.RegisterIPLimit,
		cfg.RateLimit.RegisterEmailLimit,
	)
	// Transfers are authenticated, so only the IP dimension applies.
	transferPolicy := middleware.NewRateLimitPolicy(
		"transfer",
		cfg.RateLimit.TransferWindow,
		cfg.RateLimit.TransferIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(registerPolicy, limiterStore, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.RateLimit(loginPolicy, limiterStore, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/accounts", func(r chi.Router) {
			r.Get("/balance", controllers.AccountBalance(svcs.Accounts, logg))
			r.Get("/details", controllers.AccountDetails(svcs.Accounts, logg))
			r.Get("/transactions", controllers.AccountTransactions(svcs.Accounts, logg))
		})

		r.With(middleware.RateLimit(transferPolicy, limiterStore, logg)).
			Post("/v1/transfers", controllers.Transfer(svcs.Ledger, logg))

		r.Route("/v1/stores", func(r chi.Router) {
			r.Get("/", controllers.StoreList(svcs.Stores, logg))
			r.Post("/", controllers.StoreCreate(svcs.Stores, logg))
			r.Get("/{storeId}", controllers.StoreGet(svcs.Stores, logg))
			r.Post("/{storeId}/products", controllers.StoreCreateProduct(svcs.Stores, logg))
		})

		r.Get("/v1/products", controllers.ProductList(svcs.Stores, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Post("/", controllers.OrderCreate(svcs.Ledger, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(svcs.Notifications, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

			r.Get("/users", controllers.AdminListUsers(svcs.Admin, logg))
			r.Get("/transactions", controllers.AdminListTransactions(svcs.Admin, logg))
			r.Get("/orders", controllers.AdminListOrders(svcs.Admin, logg))
			r.Post("/reversals", controllers.AdminReverseTransaction(svcs.Admin, logg))
		})
	})

	return r
}
