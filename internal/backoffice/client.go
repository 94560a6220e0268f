// Package backoffice is the HTTP client for the business-management API that
// owns sales, payments, cash registers and the client directory.
package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxErrorBody = 64 << 10

// Client wraps interactions with the backoffice API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	newKey     func() string
}

// NewClient constructs a new client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		newKey: func() string { return uuid.NewString() },
	}
}

// Ping checks that the backoffice answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil, nil)
}

// FetchPendingSalesByClient lists the customer's sales that are not fully paid.
func (c *Client) FetchPendingSalesByClient(ctx context.Context, customerID string) ([]PendingSale, error) {
	if customerID == "" {
		return nil, errors.New("backoffice: customer id required")
	}
	var out struct {
		Data []PendingSale `json:"data"`
	}
	query := url.Values{"client_id": {customerID}}
	if err := c.do(ctx, http.MethodGet, "/sales/pending", query, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch pending sales: %w", err)
	}
	return out.Data, nil
}

// CreateSale creates a new sale. Retries must reuse req.IdempotencyKey so the
// backoffice can drop duplicates; without one a fresh key is generated.
func (c *Client) CreateSale(ctx context.Context, req CreateSaleRequest) (*CreateSaleResult, error) {
	var out CreateSaleResult
	key := req.IdempotencyKey
	if key == "" {
		key = c.newKey()
	}
	headers := map[string]string{"Idempotency-Key": key}
	if err := c.do(ctx, http.MethodPost, "/sales", nil, req, headers, &out); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("create sale: %w", &APIError{Status: http.StatusOK, Code: out.Code, Message: out.Message})
	}
	return &out, nil
}

// AddProductsToSale appends line items to an existing sale.
func (c *Client) AddProductsToSale(ctx context.Context, saleID string, req AddProductsRequest) (*AddProductsResult, error) {
	if saleID == "" {
		return nil, errors.New("backoffice: sale id required")
	}
	var out AddProductsResult
	path := "/sales/" + url.PathEscape(saleID) + "/products"
	if err := c.do(ctx, http.MethodPost, path, nil, req, nil, &out); err != nil {
		return nil, fmt.Errorf("add products to sale %s: %w", saleID, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("add products to sale %s: %w", saleID, &APIError{Status: http.StatusOK, Code: out.Code, Message: out.Message})
	}
	return &out, nil
}

// GetOrder loads the payment view of an existing sale.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/sales/"+url.PathEscape(orderID), nil, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &out, nil
}

// RegisterPayment records a payment against an existing sale.
func (c *Client) RegisterPayment(ctx context.Context, orderID string, req RegisterPaymentRequest) (*RegisterPaymentResult, error) {
	var out RegisterPaymentResult
	path := "/sales/" + url.PathEscape(orderID) + "/payments"
	if err := c.do(ctx, http.MethodPost, path, nil, req, nil, &out); err != nil {
		return nil, fmt.Errorf("register payment for %s: %w", orderID, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("register payment for %s: %w", orderID, &APIError{Status: http.StatusOK, Code: out.Code, Message: out.Message})
	}
	return &out, nil
}

// ListOpenCashRegisters lists the registers currently open.
func (c *Client) ListOpenCashRegisters(ctx context.Context) ([]Register, error) {
	var out struct {
		Data []Register `json:"data"`
	}
	query := url.Values{"status": {"open"}}
	if err := c.do(ctx, http.MethodGet, "/cash-registers", query, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list open cash registers: %w", err)
	}
	return out.Data, nil
}

// GetCustomer looks up a client by id.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodGet, "/clients/"+url.PathEscape(customerID), nil, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get customer %s: %w", customerID, err)
	}
	return &out, nil
}

// ListConfirmedReservations lists the customer's confirmed reservations.
func (c *Client) ListConfirmedReservations(ctx context.Context, customerID string) ([]Reservation, error) {
	var out struct {
		Data []Reservation `json:"data"`
	}
	query := url.Values{"client_id": {customerID}, "status": {"confirmed"}}
	if err := c.do(ctx, http.MethodGet, "/reservations", query, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out.Data, nil
}

// ListPaymentMethods lists configured payment methods.
func (c *Client) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	var out struct {
		Data []PaymentMethod `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/payment-methods", nil, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return out.Data, nil
}

// ListCurrencies lists configured currencies.
func (c *Client) ListCurrencies(ctx context.Context) ([]Currency, error) {
	var out struct {
		Data []Currency `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/currencies", nil, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backoffice: encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backoffice: decode response: %w", err)
	}
	return nil
}
