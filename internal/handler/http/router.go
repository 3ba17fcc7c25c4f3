package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Faraz011/virasat-backend/internal/service"
	"github.com/Faraz011/virasat-backend/pkg/health"
	"github.com/Faraz011/virasat-backend/pkg/middleware"
)

// RouterConfig carries everything the router needs beyond the services.
type RouterConfig struct {
	SecureCookies bool
	CORS          middleware.CORSConfig
	PprofCIDRs    []string
}

// Services bundles the service layer for route registration.
type Services struct {
	Users    *service.UserService
	Sessions *service.SessionService
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Orders   *service.OrderService
	Payments *service.PaymentService
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svcs Services,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("virasat"))
	r.Use(middleware.Tracing("virasat"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	authHandler := NewAuthHandler(svcs.Users, svcs.Sessions, cfg.SecureCookies, logger)
	sessionHandler := NewSessionHandler(svcs.Sessions, cfg.SecureCookies, logger)
	accountHandler := NewAccountHandler(svcs.Users, logger)
	catalogHandler := NewCatalogHandler(svcs.Catalog, logger)
	cartHandler := NewCartHandler(svcs.Cart, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)
	paymentHandler := NewPaymentHandler(svcs.Payments, logger)
	webhookHandler := NewWebhookHandler(svcs.Payments, logger)
	adminHandler := NewAdminHandler(svcs.Catalog, svcs.Orders, svcs.Sessions, logger)

	sessionAuth := middleware.SessionAuth(svcs.Sessions.Resolve)

	// Public storefront
	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(60))

		r.Get("/api/products", catalogHandler.ListProducts)
		r.Get("/api/products/{slug}", catalogHandler.GetProduct)
		r.Get("/api/categories", catalogHandler.ListCategories)
	})

	// Auth flows
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/verify-email", authHandler.VerifyEmail)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
	})

	// Authenticated account area
	r.Route("/api/account", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(ContentTypeJSON)

		r.Get("/profile", accountHandler.GetProfile)
		r.Put("/profile", accountHandler.UpdateProfile)

		r.Get("/addresses", accountHandler.ListAddresses)
		r.Post("/addresses", accountHandler.AddAddress)
		r.Put("/addresses/{id}", accountHandler.UpdateAddress)
		r.Delete("/addresses/{id}", accountHandler.DeleteAddress)

		r.Get("/sessions", sessionHandler.List)
		r.Delete("/sessions/{id}", sessionHandler.Revoke)
		r.Post("/sessions/revoke-all", sessionHandler.RevokeOthers)
		r.Post("/logout", sessionHandler.Logout)
	})

	// Cart
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(ContentTypeJSON)

		r.Get("/", cartHandler.Get)
		r.Delete("/", cartHandler.Clear)
		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{productID}", cartHandler.UpdateItem)
		r.Delete("/items/{productID}", cartHandler.RemoveItem)
	})

	// Orders
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(ContentTypeJSON)

		r.Post("/", orderHandler.Create)
		r.Get("/", orderHandler.List)
		r.Get("/{id}", orderHandler.Get)
		r.Post("/{id}/cancel", orderHandler.Cancel)
		r.Post("/{id}/reorder", orderHandler.Reorder)
	})

	// Online payment
	r.Route("/api/payment", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(ContentTypeJSON)

		r.Post("/gateway", paymentHandler.CreateGatewayOrder)
		r.Post("/gateway/verify", paymentHandler.VerifyPayment)
	})

	// Gateway webhooks authenticate via HMAC signature, not a session.
	r.Post("/api/webhooks/gateway", webhookHandler.HandleGatewayEvent)

	// Admin area
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Use(middleware.RequireAdmin)
		r.Use(ContentTypeJSON)

		r.Get("/orders", adminHandler.ListOrders)
		r.Put("/orders/{id}/status", adminHandler.UpdateOrderStatus)

		r.Post("/products", adminHandler.CreateProduct)
		r.Put("/products/{id}", adminHandler.UpdateProduct)
		r.Delete("/products/{id}", adminHandler.DeleteProduct)

		r.Post("/categories", adminHandler.CreateCategory)
		r.Delete("/categories/{id}", adminHandler.DeleteCategory)

		r.Post("/sessions/cleanup", adminHandler.CleanupSessions)
	})

	return r
}
