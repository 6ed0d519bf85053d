package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

const mollieTimeout = 10 * time.Second

// MollieConfig represents Mollie payment API configuration
type MollieConfig struct {
	APIKey  string
	BaseURL string
}

// MollieClient reads payment status from the Mollie API
type MollieClient struct {
	config MollieConfig
	client *http.Client
	logger *zap.Logger
}

// NewMollieClient creates a new Mollie client
func NewMollieClient(config MollieConfig, logger *zap.Logger) *MollieClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.mollie.com/v2"
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	return &MollieClient{
		config: config,
		client: &http.Client{Timeout: mollieTimeout},
		logger: logger,
	}
}

// MollieError represents an error response from the Mollie API
type MollieError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *MollieError) Error() string {
	return fmt.Sprintf("Mollie Error: %d %s: %s", e.Status, e.Title, e.Detail)
}

type molliePayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Method *string `json:"method"`
	PaidAt *string `json:"paidAt"`
}

// GetPaymentStatus returns the current status of a payment
func (c *MollieClient) GetPaymentStatus(ctx context.Context, reference string) (*models.PaymentStatus, error) {
	c.logger.Info("Getting payment status from Mollie", zap.String("payment_id", reference))

	endpoint := c.config.BaseURL + "/payments/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentStatusUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &MollieError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		c.logger.Error("Mollie API error while getting payment status",
			zap.String("payment_id", reference),
			zap.Int("status_code", resp.StatusCode),
			zap.String("detail", apiErr.Detail))
		return nil, &models.UpstreamError{Kind: models.ErrPaymentStatusUnavailable, Message: apiErr.Detail, Err: apiErr}
	}

	var payment molliePayment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("%w: failed to decode payment: %v", models.ErrPaymentStatusUnavailable, err)
	}

	status := &models.PaymentStatus{
		Status:   payment.Status,
		Amount:   payment.Amount.Value,
		Currency: payment.Amount.Currency,
	}
	if payment.Method != nil {
		status.Method = *payment.Method
	}
	if payment.PaidAt != nil {
		status.PaidAt = *payment.PaidAt
	}

	c.logger.Info("Payment status retrieved successfully",
		zap.String("payment_id", reference),
		zap.String("status", status.Status))
	return status, nil
}
