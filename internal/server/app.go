package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ticket-storefront/internal/config"
	"ticket-storefront/internal/database"
	"ticket-storefront/internal/jobs"
	"ticket-storefront/internal/services"
)

// memoryQueueSize is the buffer of the in-process queue
const memoryQueueSize = 256

// Queue is a job queue that can also be consumed
type Queue interface {
	jobs.Queue
	jobs.Consumer
}

// App holds the services shared by the web server and the worker
type App struct {
	Config *config.Config
	Logger *zap.Logger

	WooCommerce *services.WooCommerceClient
	Mollie      *services.MollieClient
	TicketAPI   *services.TicketAPIClient
	Mailer      services.Mailer

	Calculator     *services.Calculator
	DocumentTokens *services.DocumentTokenService
	Documents      *services.DocumentService

	Queue      Queue
	Ledger     jobs.DeliveryLedger
	Dispatcher *services.ConfirmationDispatcher
	Jobs       *jobs.Router

	db *database.DB
}

// NewApp builds the adapters, the queue and the confirmation pipeline from
// configuration
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	app.WooCommerce = services.NewWooCommerceClient(services.WooCommerceConfig{
		BaseURL:        cfg.WooCommerce.BaseURL,
		ConsumerKey:    cfg.WooCommerce.ConsumerKey,
		ConsumerSecret: cfg.WooCommerce.ConsumerSecret,
	}, logger)
	app.Mollie = services.NewMollieClient(services.MollieConfig{
		APIKey:  cfg.Mollie.APIKey,
		BaseURL: cfg.Mollie.BaseURL,
	}, logger)
	app.TicketAPI = services.NewTicketAPIClient(services.TicketAPIConfig{
		URL:    cfg.TicketAPI.URL,
		APIKey: cfg.TicketAPI.APIKey,
	}, logger)
	app.Mailer = services.NewMailer(services.ResendConfig{
		APIKey:    cfg.Resend.APIKey,
		FromEmail: cfg.Resend.FromEmail,
		FromName:  cfg.Resend.FromName,
	}, logger)

	app.Calculator = services.NewCalculator(cfg.Checkout.TaxRate, logger)
	app.DocumentTokens = services.NewDocumentTokenService(cfg.Documents.TokenSecret, cfg.Documents.TokenTTL)
	app.Documents = services.NewDocumentService(app.WooCommerce, app.TicketAPI, services.NewPDFRenderer(), app.DocumentTokens, logger)

	queue, err := newQueue(ctx, cfg.Queue, logger)
	if err != nil {
		return nil, err
	}
	app.Queue = queue

	if err := app.openLedger(ctx); err != nil {
		return nil, err
	}

	app.Dispatcher = services.NewConfirmationDispatcher(app.Queue, app.DocumentTokens, logger)

	confirmations := services.NewConfirmationHandler(
		app.WooCommerce,
		app.Documents,
		app.DocumentTokens,
		app.Mailer,
		app.Ledger,
		services.ConfirmationOptions{
			BaseURL:     cfg.Server.BaseURL,
			Currency:    cfg.Checkout.Currency,
			DedupWindow: cfg.Queue.DedupWindow,
		},
		logger,
	)
	app.Jobs = jobs.NewRouter()
	app.Jobs.Register(services.JobOrderConfirmation, confirmations.Handle)

	return app, nil
}

// Close releases the database connection
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// openLedger uses Postgres when a database is configured, otherwise memory
func (a *App) openLedger(ctx context.Context) error {
	if a.Config.Database.URL == "" {
		a.Logger.Info("DATABASE_URL not set, using in-memory delivery ledger")
		a.Ledger = jobs.NewMemoryLedger()
		return nil
	}

	db, err := database.NewConnection(ctx, database.Config{URL: a.Config.Database.URL}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.db = db
	a.Ledger = jobs.NewPostgresLedger(db.DB)
	a.Logger.Info("Database connection established successfully")
	return nil
}

func newQueue(ctx context.Context, cfg config.QueueConfig, logger *zap.Logger) (Queue, error) {
	switch cfg.Driver {
	case "sqs":
		queue, err := jobs.NewSQSQueue(ctx, jobs.SQSConfig{
			QueueURL:        cfg.SQSQueueURL,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Endpoint:        cfg.Endpoint,
			MaxAttempts:     cfg.MaxAttempts,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQS queue: %w", err)
		}
		return queue, nil
	case "memory", "":
		return jobs.NewMemoryQueue(memoryQueueSize, cfg.MaxAttempts, logger), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
