package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"ticket-storefront/internal/handlers"
	"ticket-storefront/internal/middleware"
)

// ServiceName identifies the storefront in health responses
const ServiceName = "ticket-storefront"

// Handlers groups the HTTP handlers of the storefront
type Handlers struct {
	Public   *handlers.PublicHandler
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
	Document *handlers.DocumentHandler
	Webhook  *handlers.WebhookHandler
}

// Options configures the router middleware
type Options struct {
	APIKey         string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Sessions       *middleware.SessionMiddleware
	RateLimiter    *middleware.RateLimiter
}

// NewRouter wires the storefront routes. Pages that use the cart run behind
// the session middleware; downloads, webhooks and the API are stateless.
func NewRouter(opts Options, h Handlers, logger *zap.Logger) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.ErrorHandlingMiddleware(logger))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(opts.AllowedOrigins...)))
	r.Use(chimiddleware.CleanPath)
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", handlers.Health(ServiceName))

	// Storefront pages
	r.Group(func(r chi.Router) {
		r.Use(opts.Sessions.Handler)
		if opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(opts.RateLimiter, logger))
		}

		r.Get("/show/{id}/tickets", h.Public.ShowTickets)
		r.Post("/show/{id}/order", h.Public.SubmitOrder)

		r.Post("/cart/increment", h.Cart.Increment)
		r.Post("/cart/quantity", h.Cart.SetQuantity)
		r.Post("/api/validate-coupon", h.Cart.ValidateCoupon)
		r.Post("/api/remove-coupon", h.Cart.RemoveCoupon)

		r.Get("/checkout", h.Checkout.CheckoutPage)
		r.Post("/checkout", h.Checkout.ProcessCheckout)
		r.Get("/thank-you", h.Checkout.ThankYou)
	})

	r.Get("/pdf/download/{token}", h.Document.Download)
	r.Post("/webhook/woocommerce", h.Webhook.WooCommerce)

	r.Get("/api/webhook/health", handlers.Health(ServiceName+"-webhook"))
	r.With(middleware.RequireAPIKey(opts.APIKey, logger)).
		Post("/api/orders/{orderId}/process", h.Webhook.ProcessOrder)

	return r
}
