package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

const ticketAPITimeout = 30 * time.Second

// TicketAPIConfig represents the ticket API configuration
type TicketAPIConfig struct {
	URL    string
	APIKey string
}

// TicketAPIClient fetches the issued tickets and their codes for an order
type TicketAPIClient struct {
	config TicketAPIConfig
	client *http.Client
	logger *zap.Logger
}

// NewTicketAPIClient creates a new ticket API client
func NewTicketAPIClient(config TicketAPIConfig, logger *zap.Logger) *TicketAPIClient {
	return &TicketAPIClient{
		config: config,
		client: &http.Client{Timeout: ticketAPITimeout},
		logger: logger,
	}
}

type ticketAPIRequest struct {
	APIKey  string `json:"api_key"`
	OrderID string `json:"order_id"`
}

// GetTicketInfo returns the ticket information of an order. The response is
// validated before it is returned.
func (c *TicketAPIClient) GetTicketInfo(ctx context.Context, orderID int) (*models.TicketInfo, error) {
	if c.config.URL == "" {
		return nil, fmt.Errorf("ticket API URL not configured")
	}

	payload, err := json.Marshal(ticketAPIRequest{APIKey: c.config.APIKey, OrderID: strconv.Itoa(orderID)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ticket request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ticket API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticket API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Ticket API returned non-200 status code",
			zap.Int("status_code", resp.StatusCode),
			zap.Int("order_id", orderID))
		return nil, fmt.Errorf("ticket API returned status %d", resp.StatusCode)
	}

	var info models.TicketInfo
	if err := json.Unmarshal(body, &info); err != nil {
		snippet := body
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		c.logger.Error("Failed to decode JSON response from ticket API",
			zap.Int("order_id", orderID),
			zap.ByteString("response_content", snippet),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidTicketResponse, err)
	}

	if err := info.Validate(); err != nil {
		return nil, err
	}
	if info.EventDate == "" {
		c.logger.Info("Ticket API response missing optional event_date field",
			zap.String("event_name", info.EventName))
	}

	c.logger.Info("Successfully retrieved ticket information",
		zap.Int("order_id", orderID),
		zap.String("event_name", info.EventName),
		zap.Int("ticket_count", len(info.Tickets)))
	return &info, nil
}
