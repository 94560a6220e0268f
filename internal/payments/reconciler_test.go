package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/money"
)

func balance(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestAmountToApplyFollowsReceived(t *testing.T) {
	f := NewForm(balance(5000), money.PYG)

	f.SetAmountReceived("3000")
	assert.Equal(t, "3.000", f.AmountToApply())

	f.SetAmountReceived("8.000")
	assert.Equal(t, "5.000", f.AmountToApply(), "capped at the balance due")

	f.SetAmountReceived("")
	assert.Equal(t, "", f.AmountToApply())
}

func TestOverrideSurvivesUntilReceivedDropsBelowIt(t *testing.T) {
	f := NewForm(balance(5000), money.PYG)
	f.SetAmountReceived("5000")
	f.SetAmountToApply("4000")
	require.True(t, f.Overridden())

	f.SetAmountReceived("4500")
	assert.Equal(t, "4000", f.AmountToApply())
	assert.True(t, f.Overridden())

	f.SetAmountReceived("3000")
	assert.Equal(t, "3.000", f.AmountToApply())
	assert.False(t, f.Overridden())
}

func TestResetAmountToApply(t *testing.T) {
	f := NewForm(balance(5000), money.PYG)
	f.SetAmountReceived("2000")
	f.SetAmountToApply("1500")
	f.ResetAmountToApply()
	assert.Equal(t, "2.000", f.AmountToApply())
	assert.False(t, f.Overridden())
}

func TestUnknownBalanceDoesNotCap(t *testing.T) {
	f := NewForm(decimal.NullDecimal{}, money.PYG)
	f.SetAmountReceived("125000")
	assert.Equal(t, "125.000", f.AmountToApply())
	assert.False(t, f.Settled())

	c := f.Check()
	assert.True(t, c.Valid())
}

func TestBalanceIsNormalized(t *testing.T) {
	f := NewForm(decimal.NewNullDecimal(decimal.RequireFromString("4999.6")), money.PYG)
	assert.True(t, f.BalanceDue().Decimal.Equal(decimal.NewFromInt(5000)))

	f.SetAmountReceived("5000")
	assert.NoError(t, f.Check().ApplyErr)
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name        string
		received    string
		apply       *string
		receivedErr error
		applyErr    error
	}{
		{name: "empty", receivedErr: ErrReceivedRequired, applyErr: ErrApplyRequired},
		{name: "not numeric", received: "abc", receivedErr: ErrReceivedNotNumeric, applyErr: ErrApplyRequired},
		{name: "zero received", received: "0", receivedErr: ErrReceivedNotPositive, applyErr: ErrApplyRequired},
		{name: "negative apply", received: "1000", apply: ptr("-5"), applyErr: ErrApplyNotPositive},
		{name: "apply not numeric", received: "1000", apply: ptr("1x"), applyErr: ErrApplyNotNumeric},
		{name: "apply above received", received: "1000", apply: ptr("1500"), applyErr: ErrApplyExceedsReceived},
		{name: "apply above balance", received: "9000", apply: ptr("6000"), applyErr: ErrApplyExceedsBalance},
		{name: "valid", received: "9000", apply: ptr("5000")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewForm(balance(5000), money.PYG)
			f.SetAmountReceived(tt.received)
			if tt.apply != nil {
				f.SetAmountToApply(*tt.apply)
			}
			c := f.Check()
			assert.ErrorIs(t, c.ReceivedErr, tt.receivedErr)
			assert.ErrorIs(t, c.ApplyErr, tt.applyErr)
			if tt.receivedErr == nil {
				assert.NoError(t, c.ReceivedErr)
			}
			if tt.applyErr == nil {
				assert.NoError(t, c.ApplyErr)
			}
		})
	}
}

func TestChange(t *testing.T) {
	f := NewForm(balance(5000), money.PYG)
	f.SetAmountReceived("10.000")

	app, err := f.Application()
	require.NoError(t, err)
	assert.True(t, app.Apply.Equal(decimal.NewFromInt(5000)))
	assert.True(t, app.Change.Equal(decimal.NewFromInt(5000)))
}

func TestSettledOrderRejectsPayment(t *testing.T) {
	f := NewForm(balance(0), money.PYG)
	assert.True(t, f.Settled())

	_, err := f.Application()
	assert.ErrorIs(t, err, ErrOrderSettled)
}

func TestSettledFormIsReadOnly(t *testing.T) {
	// 0.4 rounds to 0 in a currency without decimals.
	f := NewForm(decimal.NewNullDecimal(decimal.RequireFromString("0.4")), money.PYG)
	require.True(t, f.Settled())

	assert.ErrorIs(t, f.SetAmountReceived("1.000"), ErrOrderSettled)
	assert.ErrorIs(t, f.SetAmountToApply("500"), ErrOrderSettled)
	assert.ErrorIs(t, f.ResetAmountToApply(), ErrOrderSettled)
	assert.ErrorIs(t, f.SetRegister("CAJA-1"), ErrOrderSettled)
	assert.ErrorIs(t, f.SetNotes("late"), ErrOrderSettled)

	assert.Empty(t, f.AmountReceived())
	assert.Empty(t, f.AmountToApply())
	assert.False(t, f.Overridden())
	assert.Empty(t, f.RegisterID())
	assert.Empty(t, f.Notes())
}

func TestRegisterClosed(t *testing.T) {
	open := []Register{{ID: "R1", Status: "open"}, {ID: "R2"}, {ID: "R3", Status: "closed"}}
	assert.False(t, registerClosed("", open))
	assert.False(t, registerClosed("R1", open))
	assert.False(t, registerClosed("R2", open))
	assert.True(t, registerClosed("R3", open))
	assert.True(t, registerClosed("R9", open))
}

func ptr(s string) *string { return &s }

func TestDecimalCurrencyRejectsDotDecimals(t *testing.T) {
	usd, err := money.NewCurrency("USD")
	require.NoError(t, err)
	f := NewForm(decimal.NewNullDecimal(decimal.RequireFromString("25.50")), usd)

	require.NoError(t, f.SetAmountReceived("10.50"))
	assert.Empty(t, f.AmountToApply())
	assert.ErrorIs(t, f.Check().ReceivedErr, ErrReceivedNotNumeric)

	require.NoError(t, f.SetAmountReceived("10,50"))
	assert.Equal(t, "10,50", f.AmountToApply())
	c := f.Check()
	require.True(t, c.Valid())
	assert.True(t, c.Change().IsZero())
}
