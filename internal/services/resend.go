package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const resendAPIURL = "https://api.resend.com/emails"

// ResendConfig represents Resend email service configuration
type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Endpoint  string // defaults to the Resend API
}

// ResendMailer sends email via the Resend API
type ResendMailer struct {
	config ResendConfig
	client *http.Client
	logger *zap.Logger
}

// NewResendMailer creates a new Resend mailer
func NewResendMailer(config ResendConfig, logger *zap.Logger) *ResendMailer {
	if config.Endpoint == "" {
		config.Endpoint = resendAPIURL
	}
	return &ResendMailer{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// ResendEmailRequest represents the request structure for Resend API
type ResendEmailRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html,omitempty"`
	Text        string             `json:"text,omitempty"`
	Tags        []ResendTag        `json:"tags,omitempty"`
	Attachments []ResendAttachment `json:"attachments,omitempty"`
}

// ResendTag represents a tag for email categorization
type ResendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResendAttachment is a base64 encoded attachment
type ResendAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// getFromField constructs the from field properly
func (m *ResendMailer) getFromField() string {
	if m.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", m.config.FromName, m.config.FromEmail)
	}
	return m.config.FromEmail
}

// Send delivers a message
func (m *ResendMailer) Send(ctx context.Context, message *EmailMessage) error {
	request := ResendEmailRequest{
		From:    m.getFromField(),
		To:      []string{message.To},
		Subject: message.Subject,
		HTML:    message.HTML,
		Text:    message.Text,
	}
	if message.Category != "" {
		request.Tags = []ResendTag{{Name: "category", Value: message.Category}}
	}
	for _, attachment := range message.Attachments {
		request.Attachments = append(request.Attachments, ResendAttachment{
			Filename:    attachment.Filename,
			Content:     base64.StdEncoding.EncodeToString(attachment.Content),
			ContentType: attachment.ContentType,
		})
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorResp ResendErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil || errorResp.Message == "" {
			return fmt.Errorf("failed to send email, status: %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to send email: %s", errorResp.Message)
	}

	var response ResendEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	m.logger.Info("Email sent",
		zap.String("email_id", response.ID),
		zap.String("category", message.Category),
		zap.Int("attachments", len(request.Attachments)))
	return nil
}
