package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

const (
	wooCreateTimeout  = 30 * time.Second
	wooRequestTimeout = 10 * time.Second
	wooAPIPath        = "/wp-json/wc/v3"
)

// WooCommerceConfig represents WooCommerce REST API configuration
type WooCommerceConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

// WooCommerceClient talks to the shop's REST API over HTTPS with basic
// authentication. It provides the catalog, coupon validation and order
// management.
type WooCommerceClient struct {
	config WooCommerceConfig
	client *http.Client
	logger *zap.Logger
}

// NewWooCommerceClient creates a new WooCommerce client
func NewWooCommerceClient(config WooCommerceConfig, logger *zap.Logger) *WooCommerceClient {
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	return &WooCommerceClient{
		config: config,
		client: &http.Client{Timeout: wooCreateTimeout},
		logger: logger,
	}
}

// WooCommerceError represents an error response from the WooCommerce API
type WooCommerceError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *WooCommerceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("WooCommerce Error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("WooCommerce Error: %s", e.Message)
}

// wooProduct is the part of a product the catalog reads
type wooProduct struct {
	ID            int               `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	StockQuantity *int              `json:"stock_quantity"`
	StockStatus   string            `json:"stock_status"`
	MetaData      []models.MetaData `json:"meta_data"`
}

type wooVariation struct {
	ID          int    `json:"id"`
	Price       string `json:"price"`
	Description string `json:"description"`
	StockStatus string `json:"stock_status"`
	Attributes  []struct {
		Name   string `json:"name"`
		Option string `json:"option"`
	} `json:"attributes"`
}

// GetEvent loads an event product with its ticket variations, cheapest first
func (c *WooCommerceClient) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	var product wooProduct
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, wooCreateTimeout, &product)
	if err != nil {
		if isNotFound(err) {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}

	var variations []wooVariation
	err = c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/variations", id), nil, nil, wooCreateTimeout, &variations)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket types of event %d: %w", id, err)
	}

	event := &models.Event{
		ID:            product.ID,
		Title:         product.Name,
		Description:   product.Description,
		StockQuantity: product.StockQuantity,
		StockStatus:   models.StockStatus(product.StockStatus),
		TicketTypes:   make([]models.TicketType, 0, len(variations)),
	}
	event.EventID, _ = strconv.Atoi(models.FindMeta(product.MetaData, "_event_id"))
	event.Date = models.FindMeta(product.MetaData, "_event_date")
	event.Time = models.FindMeta(product.MetaData, "_event_time")
	event.Location = models.FindMeta(product.MetaData, "_event_location")

	for _, variation := range variations {
		price, err := decimal.NewFromString(strings.TrimSpace(variation.Price))
		if err != nil {
			c.logger.Warn("Skipping ticket type without a valid price",
				zap.Int("event_id", id),
				zap.Int("ticket_type_id", variation.ID),
				zap.String("price", variation.Price))
			continue
		}

		options := make([]string, 0, len(variation.Attributes))
		for _, attr := range variation.Attributes {
			if attr.Option != "" {
				options = append(options, attr.Option)
			}
		}

		event.TicketTypes = append(event.TicketTypes, models.TicketType{
			ID:          variation.ID,
			Name:        strings.Join(options, " - "),
			Description: variation.Description,
			Price:       price,
			StockStatus: models.StockStatus(variation.StockStatus),
		})
	}

	sort.SliceStable(event.TicketTypes, func(i, j int) bool {
		return event.TicketTypes[i].Price.LessThan(event.TicketTypes[j].Price)
	})

	return event, nil
}

// ValidateCoupon asks the shop whether a coupon code is valid. A rejection is
// a result with Valid false; only transport failures are errors.
func (c *WooCommerceClient) ValidateCoupon(ctx context.Context, code string) (*models.CouponValidation, error) {
	query := url.Values{"code": {code}}

	var result models.CouponValidation
	err := c.do(ctx, http.MethodGet, "/validate_coupon", query, nil, wooRequestTimeout, &result)
	if err != nil {
		var apiErr *WooCommerceError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return &models.CouponValidation{Valid: false, Code: code, Message: apiErr.Message}, nil
		}
		return nil, err
	}

	return &result, nil
}

// CreateOrder creates a pending order
func (c *WooCommerceClient) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.Order, error) {
	c.logger.Info("Creating WooCommerce order", zap.Int("line_items", len(payload.LineItems)))

	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, payload, wooCreateTimeout, &order); err != nil {
		return nil, err
	}
	if order.ID <= 0 {
		return nil, &WooCommerceError{StatusCode: http.StatusCreated, Message: "Failed to create order"}
	}

	c.logger.Info("Order created successfully in WooCommerce",
		zap.Int("order_id", order.ID),
		zap.String("status", string(order.Status)))
	return &order, nil
}

// GetOrder returns an order, or models.ErrOrderNotFound
func (c *WooCommerceClient) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	var order models.Order
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, wooRequestTimeout, &order)
	if err != nil {
		if isNotFound(err) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}
	if order.ID <= 0 {
		return nil, models.ErrOrderNotFound
	}
	return &order, nil
}

// UpdateOrderStatus sets the status of an order
func (c *WooCommerceClient) UpdateOrderStatus(ctx context.Context, id int, status models.OrderStatus) error {
	body := map[string]models.OrderStatus{"status": status}

	var order models.Order
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), nil, body, wooRequestTimeout, &order); err != nil {
		return err
	}

	c.logger.Info("Order status updated successfully",
		zap.Int("order_id", id),
		zap.String("status", string(order.Status)))
	return nil
}

// GetCheckoutURL returns the payment page of an order. The payment provider
// redirects to returnURL afterwards.
func (c *WooCommerceClient) GetCheckoutURL(ctx context.Context, id int, returnURL string) (string, error) {
	query := url.Values{
		"order_id":   {strconv.Itoa(id)},
		"return_url": {returnURL},
	}

	var result struct {
		CheckoutURL string          `json:"checkout_url"`
		OrderID     json.RawMessage `json:"order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/get-checkout-url", query, nil, wooRequestTimeout, &result); err != nil {
		return "", err
	}
	if result.CheckoutURL == "" || len(result.OrderID) == 0 {
		return "", &WooCommerceError{StatusCode: http.StatusOK, Message: "response has no checkout url"}
	}
	return result.CheckoutURL, nil
}

// do performs an authenticated API call and decodes a 2xx JSON response
func (c *WooCommerceClient) do(ctx context.Context, method, path string, query url.Values, body interface{}, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.config.BaseURL + wooAPIPath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Credentials stay out of the URL, which ends up in transport errors
	req.SetBasicAuth(c.config.ConsumerKey, c.config.ConsumerSecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &WooCommerceError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		c.logger.Error("WooCommerce request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("code", apiErr.Code))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *WooCommerceError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
