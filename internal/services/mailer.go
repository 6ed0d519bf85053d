package services

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer logs messages instead of sending them. It is used when no email
// provider is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a new log mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message
func (m *LogMailer) Send(ctx context.Context, message *EmailMessage) error {
	names := make([]string, 0, len(message.Attachments))
	for _, attachment := range message.Attachments {
		names = append(names, attachment.Filename)
	}
	m.logger.Info("Mock Email: message not sent",
		zap.String("to", message.To),
		zap.String("subject", message.Subject),
		zap.String("category", message.Category),
		zap.Strings("attachments", names))
	return nil
}

// NewMailer returns a Resend mailer when an API key is configured and a log
// mailer otherwise
func NewMailer(config ResendConfig, logger *zap.Logger) Mailer {
	if config.APIKey != "" {
		logger.Info("Email service: Using Resend API")
		return NewResendMailer(config, logger)
	}
	logger.Info("Email service: Using mock (no Resend API key provided)")
	return NewLogMailer(logger)
}
