// Package payments completes payments against existing orders.
package payments

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/money"
)

// Field errors. Each violation has its own message.
var (
	ErrReceivedRequired     = errors.New("enter the amount received")
	ErrReceivedNotNumeric   = errors.New("the amount received must be a number")
	ErrReceivedNotPositive  = errors.New("the amount received must be greater than zero")
	ErrApplyRequired        = errors.New("enter the amount to apply")
	ErrApplyNotNumeric      = errors.New("the amount to apply must be a number")
	ErrApplyNotPositive     = errors.New("the amount to apply must be greater than zero")
	ErrApplyExceedsReceived = errors.New("the amount to apply cannot exceed the amount received")
	ErrApplyExceedsBalance  = errors.New("the amount to apply cannot exceed the balance due")
	ErrOrderSettled         = errors.New("the order has no balance due")
)

// Application is a validated payment ready to be registered.
type Application struct {
	Received   decimal.Decimal
	Apply      decimal.Decimal
	Change     decimal.Decimal
	RegisterID string
	Notes      string
}

// Check is the result of validating the form as it stands.
type Check struct {
	Received    decimal.Decimal
	Apply       decimal.Decimal
	ReceivedErr error
	ApplyErr    error
}

// Valid reports whether both amounts passed validation.
func (c Check) Valid() bool {
	return c.ReceivedErr == nil && c.ApplyErr == nil
}

// Change is received minus applied, never negative.
func (c Check) Change() decimal.Decimal {
	change := c.Received.Sub(c.Apply)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// Form holds one payment entry for an order. The amount to apply follows the
// amount received until the operator edits it; that override is dropped as
// soon as the amount received falls below it.
type Form struct {
	currency     money.Currency
	balance      decimal.NullDecimal
	receivedText string
	applyText    string
	overridden   bool
	registerID   string
	notes        string
}

// NewForm starts an empty form. The balance due is normalized to the
// currency's minimal unit; an invalid balance means unknown.
func NewForm(balanceDue decimal.NullDecimal, cur money.Currency) *Form {
	return &Form{currency: cur, balance: money.NormalizeBalanceDue(balanceDue, cur)}
}

// BalanceDue is the normalized balance; the other accessors return the fields as entered.
func (f *Form) BalanceDue() decimal.NullDecimal { return f.balance }
func (f *Form) AmountReceived() string          { return f.receivedText }
func (f *Form) AmountToApply() string           { return f.applyText }
func (f *Form) Overridden() bool                { return f.overridden }
func (f *Form) RegisterID() string              { return f.registerID }
func (f *Form) Notes() string                   { return f.notes }

// Settled reports a known balance of zero or less. Such a form is read-only
// and accepts no payment.
func (f *Form) Settled() bool {
	return f.balance.Valid && !f.balance.Decimal.IsPositive()
}

// SetAmountReceived updates the amount received and re-syncs the amount to
// apply when it is not overridden, or when the override now exceeds the
// amount received.
func (f *Form) SetAmountReceived(text string) error {
	if f.Settled() {
		return ErrOrderSettled
	}
	f.receivedText = text
	if !f.overridden {
		f.syncApply()
		return nil
	}
	received, errR := money.ParseGrouped(text)
	apply, errA := money.ParseGrouped(f.applyText)
	if errR == nil && errA == nil && received.LessThan(apply) {
		f.overridden = false
		f.syncApply()
	}
	return nil
}

// SetAmountToApply records a manual edit and marks the field overridden.
func (f *Form) SetAmountToApply(text string) error {
	if f.Settled() {
		return ErrOrderSettled
	}
	f.applyText = text
	f.overridden = true
	return nil
}

// ResetAmountToApply drops the override and re-syncs.
func (f *Form) ResetAmountToApply() error {
	if f.Settled() {
		return ErrOrderSettled
	}
	f.overridden = false
	f.syncApply()
	return nil
}

// SetRegister selects the register the payment is attributed to.
func (f *Form) SetRegister(id string) error {
	if f.Settled() {
		return ErrOrderSettled
	}
	f.registerID = id
	return nil
}

// SetNotes stores free-form notes sent with the payment.
func (f *Form) SetNotes(notes string) error {
	if f.Settled() {
		return ErrOrderSettled
	}
	f.notes = notes
	return nil
}

func (f *Form) syncApply() {
	received, err := money.ParseGrouped(f.receivedText)
	if err != nil || !received.IsPositive() {
		f.applyText = ""
		return
	}
	value := received
	if f.balance.Valid {
		value = money.Min(received, f.balance.Decimal)
	}
	f.applyText = money.FormatGrouped(f.currency.Round(value), f.currency)
}

// Check validates both amounts.
func (f *Form) Check() Check {
	var c Check
	c.Received, c.ReceivedErr = parseAmount(f.receivedText, ErrReceivedRequired, ErrReceivedNotNumeric, ErrReceivedNotPositive)
	c.Apply, c.ApplyErr = parseAmount(f.applyText, ErrApplyRequired, ErrApplyNotNumeric, ErrApplyNotPositive)
	if c.ApplyErr != nil {
		return c
	}
	if c.ReceivedErr == nil && c.Apply.GreaterThan(c.Received) {
		c.ApplyErr = ErrApplyExceedsReceived
		return c
	}
	if f.balance.Valid && c.Apply.GreaterThan(f.balance.Decimal) {
		c.ApplyErr = ErrApplyExceedsBalance
	}
	return c
}

// Application re-validates the form and returns the payment to register.
func (f *Form) Application() (Application, error) {
	if f.Settled() {
		return Application{}, ErrOrderSettled
	}
	c := f.Check()
	if c.ReceivedErr != nil {
		return Application{}, c.ReceivedErr
	}
	if c.ApplyErr != nil {
		return Application{}, c.ApplyErr
	}
	return Application{
		Received:   c.Received,
		Apply:      c.Apply,
		Change:     c.Change(),
		RegisterID: f.registerID,
		Notes:      f.notes,
	}, nil
}

func parseAmount(text string, required, notNumeric, notPositive error) (decimal.Decimal, error) {
	v, err := money.ParseGrouped(text)
	switch {
	case errors.Is(err, money.ErrEmpty):
		return decimal.Zero, required
	case err != nil:
		return decimal.Zero, notNumeric
	case !v.IsPositive():
		return v, notPositive
	}
	return v, nil
}
