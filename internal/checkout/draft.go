package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/money"
)

// TaxConfig describes how VAT is derived from line prices.
type TaxConfig struct {
	RatePercent      decimal.Decimal
	PricesIncludeTax bool
}

// TotalBounds limits the sale total. A zero Max means unbounded.
type TotalBounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DraftConfig carries the currency, tax and total limits of a draft.
type DraftConfig struct {
	Currency money.Currency
	Tax      TaxConfig
	Bounds   TotalBounds
}

// Totals are rounded to the draft currency.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Validations is the derived readiness of the draft for submission.
type Validations struct {
	HasItems          bool     `json:"has_items"`
	ItemsValid        bool     `json:"items_valid"`
	CustomerSelected  bool     `json:"customer_selected"`
	TotalWithinBounds bool     `json:"total_within_bounds"`
	BelowMinimum      []string `json:"below_minimum,omitempty"`
	CanProceed        bool     `json:"can_proceed"`
}

// Draft is the in-progress sale: customer, line items and at most one
// reservation.
type Draft struct {
	cfg         DraftConfig
	engine      DiscountEngine
	customerID  string
	items       []LineItem
	reservation *Reservation
}

// NewDraft builds an empty draft.
func NewDraft(cfg DraftConfig) *Draft {
	return &Draft{cfg: cfg, engine: NewDiscountEngine(cfg.Currency)}
}

// CustomerID returns the selected customer, empty when none.
func (d *Draft) CustomerID() string { return d.customerID }

// Items returns a copy of the cart lines.
func (d *Draft) Items() []LineItem {
	out := make([]LineItem, len(d.items))
	copy(out, d.items)
	return out
}

// Reservation returns a copy of the bound reservation or nil.
func (d *Draft) Reservation() *Reservation {
	if d.reservation == nil {
		return nil
	}
	r := *d.reservation
	return &r
}

// SetCustomer selects the customer and drops any reservation together with
// its line. Re-selecting the current customer clears the reservation as well,
// matching the resolver, which forgets its binding on every selection.
func (d *Draft) SetCustomer(customerID string) {
	d.dropReservation()
	d.customerID = customerID
}

// AddItem appends a product line or merges its quantity into an existing one.
func (d *Draft) AddItem(item LineItem) error {
	if item.FromReservation {
		return ErrUseReservationBinder
	}
	if item.ProductID == "" {
		return ErrProductRequired
	}
	if !item.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if item.OriginalPrice.IsZero() {
		item.OriginalPrice = item.UnitPrice
	}
	if item.OriginalPrice.IsNegative() {
		return ErrNegativePrice
	}
	// Lines enter the cart at list price; discounts go through ApplyDiscount.
	item.UnitPrice = item.OriginalPrice
	item.Discount = nil
	if idx := d.indexOf(item.ProductID, false); idx >= 0 {
		d.items[idx].Quantity = d.items[idx].Quantity.Add(item.Quantity)
		return nil
	}
	d.items = append(d.items, item)
	return nil
}

// SetQuantity replaces a product line quantity. Reservation lines keep theirs.
func (d *Draft) SetQuantity(productID string, qty decimal.Decimal) error {
	idx := d.indexOf(productID, true)
	if idx < 0 {
		return ErrItemNotFound
	}
	if d.items[idx].FromReservation {
		return ErrReservationQuantityFixed
	}
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}
	d.items[idx].Quantity = qty
	return nil
}

// RemoveItem deletes a product line. Removing a reservation line unbinds the
// reservation.
func (d *Draft) RemoveItem(productID string) error {
	idx := d.indexOf(productID, true)
	if idx < 0 {
		return ErrItemNotFound
	}
	if d.items[idx].FromReservation {
		return d.UnbindReservation(d.items[idx].ReservationID)
	}
	d.items = append(d.items[:idx], d.items[idx+1:]...)
	return nil
}

// ApplyDiscount changes the discount on the line for productID and returns
// the updated line.
func (d *Draft) ApplyDiscount(productID string, req DiscountRequest) (LineItem, error) {
	idx := d.indexOf(productID, true)
	if idx < 0 {
		return LineItem{}, ErrItemNotFound
	}
	updated, err := d.engine.Apply(d.items[idx], req)
	if err != nil {
		return LineItem{}, err
	}
	d.items[idx] = updated
	return updated, nil
}

// HasDiscounts reports whether any line carries a discount.
func (d *Draft) HasDiscounts() bool {
	for _, item := range d.items {
		if item.Discount != nil {
			return true
		}
	}
	return false
}

// Totals computes subtotal, VAT and total in the draft currency.
func (d *Draft) Totals() Totals {
	sum := decimal.Zero
	for _, item := range d.items {
		sum = sum.Add(item.Amount())
	}
	subtotal := d.cfg.Currency.Round(sum)
	rate := d.cfg.Tax.RatePercent
	if !rate.IsPositive() {
		return Totals{Subtotal: subtotal, Tax: decimal.Zero, Total: subtotal}
	}
	if d.cfg.Tax.PricesIncludeTax {
		tax := d.cfg.Currency.Round(subtotal.Mul(rate).Div(hundred.Add(rate)))
		return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal}
	}
	tax := d.cfg.Currency.Round(subtotal.Mul(rate).Div(hundred))
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

// Validations evaluates the draft against the submission rules.
func (d *Draft) Validations() Validations {
	v := Validations{
		HasItems:         len(d.items) > 0,
		ItemsValid:       true,
		CustomerSelected: d.customerID != "",
	}
	for _, item := range d.items {
		if !item.Quantity.IsPositive() || !item.UnitPrice.IsPositive() {
			v.ItemsValid = false
		}
		if belowMinimum(item) {
			v.BelowMinimum = append(v.BelowMinimum, item.ProductID)
		}
	}
	v.TotalWithinBounds = d.withinBounds(d.Totals().Total)
	v.CanProceed = v.HasItems && v.ItemsValid && v.CustomerSelected &&
		v.TotalWithinBounds && len(v.BelowMinimum) == 0
	return v
}

// ValidateForSubmit returns the first reason the draft cannot be submitted.
func (d *Draft) ValidateForSubmit() error {
	if d.customerID == "" {
		return ErrCustomerRequired
	}
	if len(d.items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range d.items {
		if !item.Quantity.IsPositive() || !item.UnitPrice.IsPositive() {
			return fmt.Errorf("%w: %s", ErrInvalidLineItem, item.Name)
		}
		if belowMinimum(item) {
			return fmt.Errorf("%w: %s requires at least %s", ErrBelowMinimumQuantity, item.Name, item.MinOrderQuantity)
		}
	}
	total := d.Totals().Total
	if !d.withinBounds(total) {
		return fmt.Errorf("%w: %s", ErrTotalOutOfBounds, d.cfg.Currency.Format(total))
	}
	return nil
}

// ClearItems empties the cart but keeps the customer.
func (d *Draft) ClearItems() {
	d.items = nil
	d.reservation = nil
}

// Reset returns the draft to its empty state.
func (d *Draft) Reset() {
	d.ClearItems()
	d.customerID = ""
}

func (d *Draft) withinBounds(total decimal.Decimal) bool {
	if total.LessThan(d.cfg.Bounds.Min) {
		return false
	}
	if d.cfg.Bounds.Max.IsPositive() && total.GreaterThan(d.cfg.Bounds.Max) {
		return false
	}
	return true
}

// indexOf finds the line for productID, preferring regular product lines.
// Reservation lines are only matched when includeReservation is set.
func (d *Draft) indexOf(productID string, includeReservation bool) int {
	fallback := -1
	for i, item := range d.items {
		if item.ProductID != productID {
			continue
		}
		if !item.FromReservation {
			return i
		}
		if includeReservation && fallback < 0 {
			fallback = i
		}
	}
	return fallback
}

// Reservation lines are exempt from the minimum order quantity.
func belowMinimum(item LineItem) bool {
	if item.FromReservation || !item.MinOrderQuantity.IsPositive() {
		return false
	}
	return item.Quantity.LessThan(item.MinOrderQuantity)
}
