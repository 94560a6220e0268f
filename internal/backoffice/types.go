package backoffice

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is the wire shape of a cart line sent to the sales endpoints.
type LineItem struct {
	ProductID     string           `json:"product_id"`
	Name          string           `json:"name,omitempty"`
	Quantity      decimal.Decimal  `json:"quantity"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	OriginalPrice decimal.Decimal  `json:"original_price"`
	DiscountType  string           `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal `json:"discount_value,omitempty"`
	ReservationID string           `json:"reservation_id,omitempty"`
}

// PendingSaleItem is one line of a pending sale snapshot.
type PendingSaleItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PendingSale is an order of the customer that is not fully paid yet.
type PendingSale struct {
	SaleID        string              `json:"sale_id"`
	SaleDate      time.Time           `json:"sale_date"`
	Items         []PendingSaleItem   `json:"items"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	BalanceDue    decimal.NullDecimal `json:"balance_due"`
	PaymentMethod string              `json:"payment_method"`
	CurrencyCode  string              `json:"currency_code"`
}

// CreateSaleRequest is the payload of POST /sales.
type CreateSaleRequest struct {
	CustomerID      string     `json:"client_id"`
	LineItems       []LineItem `json:"items"`
	PaymentMethodID string     `json:"payment_method_id"`
	CurrencyID      string     `json:"currency_id"`
	ReservationID   string     `json:"reserve_id,omitempty"`
	// IdempotencyKey is sent as a header. A fresh key is generated when empty.
	IdempotencyKey  string     `json:"-"`
}

// CreateSaleResult is the response of POST /sales.
type CreateSaleResult struct {
	Success       bool   `json:"success"`
	SaleID        string `json:"sale_id,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// AddProductsRequest is the payload of POST /sales/{id}/products.
type AddProductsRequest struct {
	LineItems               []LineItem `json:"items"`
	AllowPriceModifications bool       `json:"allow_price_modifications"`
}

// AddProductsResult is the response of POST /sales/{id}/products.
type AddProductsResult struct {
	Success       bool   `json:"success"`
	ProductsAdded int    `json:"products_added"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Order is the payment-relevant view of an existing sale.
type Order struct {
	ID           string              `json:"sale_id"`
	CustomerID   string              `json:"client_id"`
	Status       string              `json:"status"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	PaidAmount   decimal.Decimal     `json:"paid_amount"`
	BalanceDue   decimal.NullDecimal `json:"balance_due"`
	CurrencyCode string              `json:"currency_code"`
}

// RegisterPaymentRequest is the payload of POST /sales/{id}/payments.
type RegisterPaymentRequest struct {
	AmountReceived decimal.Decimal  `json:"amount_received"`
	AmountToApply  *decimal.Decimal `json:"amount_to_apply,omitempty"`
	CashRegisterID string           `json:"cash_register_id,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// RegisterPaymentResult is the response of POST /sales/{id}/payments.
type RegisterPaymentResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Register is a cash register as listed by the backoffice.
type Register struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Status         string              `json:"status"`
	CurrentBalance decimal.NullDecimal `json:"current_balance"`
}

// Customer is the directory view of a client.
type Customer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Reservation is a confirmed scheduled-service record.
type Reservation struct {
	ID          string          `json:"id"`
	ReserveID   string          `json:"reserve_id,omitempty"`
	ProductID   *string         `json:"product_id,omitempty"`
	ServiceName string          `json:"service_name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Status      string          `json:"status"`
}

// PaymentMethod is a configured payment method.
type PaymentMethod struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Currency is a configured currency.
type Currency struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
