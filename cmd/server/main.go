package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ticket-storefront/internal/config"
	"ticket-storefront/internal/handlers"
	"ticket-storefront/internal/logging"
	"ticket-storefront/internal/middleware"
	"ticket-storefront/internal/server"
	"ticket-storefront/internal/services"
	"ticket-storefront/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := logging.New(cfg.Server.Env)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer app.Close()

	// The in-memory queue has no separate worker process
	if cfg.Queue.Driver != "sqs" {
		go func() {
			if err := app.Queue.Run(ctx, app.Jobs.Handle); err != nil {
				logger.Error("In-process worker stopped", zap.Error(err))
			}
		}()
		logger.Info("Processing confirmation jobs in-process")
	}

	// Sessions
	cookieStore, err := middleware.NewCookieStore(cfg.Session.Secret, cfg.Session.TTL, !cfg.IsDevelopment())
	if err != nil {
		logger.Fatal("Failed to create session cookie store", zap.Error(err))
	}
	sessionStore := session.NewMemoryStore(cfg.Session.TTL)
	defer sessionStore.Close()

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitWindow)
	defer rateLimiter.Close()

	// Checkout pipeline
	cart := services.NewCartManager(app.WooCommerce, app.Calculator, cfg.Checkout.MaxTicketsPerOrder, logger)
	checkout := services.NewCheckoutService(
		cart,
		app.Calculator,
		services.NewCheckoutTokenGuard(logger),
		app.WooCommerce,
		app.Dispatcher,
		services.NewFormValidator(),
		services.CheckoutOptions{
			BaseURL:  cfg.Server.BaseURL,
			Currency: cfg.Checkout.Currency,
		},
		logger,
	)
	thankYou := services.NewThankYouService(app.WooCommerce, app.Mollie, logger)
	webhooks := services.NewWebhookService(app.WooCommerce, app.Dispatcher, cfg.WooCommerce.WebhookSecret, logger)
	processor := services.NewOrderProcessor(app.WooCommerce, app.Dispatcher, logger)

	// Initialize handlers
	router := server.NewRouter(server.Options{
		APIKey:         cfg.API.Key,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Sessions:       middleware.NewSessionMiddleware(cookieStore, sessionStore, logger),
		RateLimiter:    rateLimiter,
	}, server.Handlers{
		Public:   handlers.NewPublicHandler(app.WooCommerce, cart, app.Calculator, logger),
		Cart:     handlers.NewCartHandler(cart, app.Calculator, services.NewCouponValidator(app.WooCommerce, logger), logger),
		Checkout: handlers.NewCheckoutHandler(checkout, thankYou, logger),
		Document: handlers.NewDocumentHandler(app.Documents, logger),
		Webhook:  handlers.NewWebhookHandler(webhooks, processor, logger),
	}, logger)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("queue", cfg.Queue.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
