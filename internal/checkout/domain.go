package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// LINE ITEMS
// ============================================================================

// DiscountKind names how a discount is expressed.
type DiscountKind string

const (
	DiscountNone        DiscountKind = ""
	DiscountPercentage  DiscountKind = "percentage"
	DiscountFixedAmount DiscountKind = "fixed_amount"
	DiscountDirectPrice DiscountKind = "direct_price"
)

// Discount records how a line's unit price was derived from its original price.
type Discount struct {
	Kind  DiscountKind    `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// DiscountRequest is an operator request to change a line's discount.
// DiscountNone removes the discount.
type DiscountRequest struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// TimeWindow is the scheduled slot of a reservation line.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LineItem is one cart line. Reservation lines carry their window and id.
type LineItem struct {
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	OriginalPrice     decimal.Decimal `json:"original_price"`
	Category          string          `json:"category,omitempty"`
	Unit              string          `json:"unit,omitempty"`
	MinOrderQuantity  decimal.Decimal `json:"min_order_quantity"`
	Discount          *Discount       `json:"discount,omitempty"`
	FromReservation   bool            `json:"from_reservation"`
	ReservationID     string          `json:"reservation_id,omitempty"`
	ReservationWindow *TimeWindow     `json:"reservation_window,omitempty"`
}

// DiscountAmount is the per-unit reduction from the original price.
func (li LineItem) DiscountAmount() decimal.Decimal {
	if li.Discount == nil {
		return decimal.Zero
	}
	return li.OriginalPrice.Sub(li.UnitPrice)
}

// Amount is unit price times quantity.
func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(li.Quantity)
}

// ============================================================================
// RESERVATIONS & CUSTOMERS
// ============================================================================

// Reservation is a confirmed scheduled-service record of the selected customer.
type Reservation struct {
	ID          string          `json:"id"`
	ReserveID   string          `json:"reserve_id,omitempty"`
	ProductID   string          `json:"product_id,omitempty"`
	ServiceName string          `json:"service_name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
}

// Key prefers the reservation-specific id over the record id.
func (r Reservation) Key() string {
	if r.ReserveID != "" {
		return r.ReserveID
	}
	return r.ID
}

// Customer is the directory record of the buyer.
type Customer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ============================================================================
// PENDING SALES
// ============================================================================

// PendingSaleItem is a line of a pending sale as reported by the backoffice.
type PendingSaleItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PendingSale is a read-only snapshot of a customer order not yet fully paid.
type PendingSale struct {
	SaleID        string              `json:"sale_id"`
	SaleDate      time.Time           `json:"sale_date"`
	Items         []PendingSaleItem   `json:"items"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	BalanceDue    decimal.NullDecimal `json:"balance_due"`
	PaymentMethod string              `json:"payment_method"`
	CurrencyCode  string              `json:"currency_code"`
}

// ============================================================================
// PAYMENT REFERENCES
// ============================================================================

// PaymentMethod is a selectable way to pay a new order.
type PaymentMethod struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// CurrencyOption is a selectable currency for a new order.
type CurrencyOption struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ============================================================================
// SUBMISSION PAYLOADS
// ============================================================================

// NewSale is the payload for creating a brand-new order.
type NewSale struct {
	CustomerID      string
	LineItems       []LineItem
	PaymentMethodID string
	CurrencyID      string
	ReservationID   string
	// IdempotencyKey stays the same across retries of one submission.
	IdempotencyKey  string
}

// SaleReceipt identifies a created sale.
type SaleReceipt struct {
	SaleID        string
	InvoiceNumber string
	Message       string
}

// AppendRequest is the payload for adding lines to a pending order.
type AppendRequest struct {
	LineItems               []LineItem
	AllowPriceModifications bool
}

// AppendReceipt reports how many lines were added to a pending sale.
type AppendReceipt struct {
	ProductsAdded int
	Message       string
}
