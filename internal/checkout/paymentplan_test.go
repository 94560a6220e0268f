package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaymentMethodPriority(t *testing.T) {
	known := []PaymentMethod{
		{ID: "1", Code: "EFE", Label: "Efectivo"},
		{ID: "2", Code: "TC", Label: "Tarjeta"},
		{ID: "TC", Code: "X", Label: "Transferencia"},
	}
	tests := []struct {
		ref  string
		want string
	}{
		{"2", "2"},
		{"efectivo", "1"},
		{"EFE", "1"},
		{"TC", "TC"},
		{" Tarjeta ", "2"},
	}
	for _, tt := range tests {
		m, err := ResolvePaymentMethod(PendingSale{PaymentMethod: tt.ref}, known)
		require.NoError(t, err, tt.ref)
		assert.Equal(t, tt.want, m.ID, tt.ref)
	}

	_, err := ResolvePaymentMethod(PendingSale{PaymentMethod: "Cheque"}, known)
	assert.ErrorIs(t, err, ErrPaymentMethodNotFound)
	_, err = ResolvePaymentMethod(PendingSale{}, known)
	assert.ErrorIs(t, err, ErrPaymentMethodNotFound)
}

func TestResolveCurrency(t *testing.T) {
	known := []CurrencyOption{{ID: "1", Code: "PYG", Name: "Guaraní"}, {ID: "2", Code: "USD", Name: "Dólar"}}

	c, err := ResolveCurrency(PendingSale{CurrencyCode: "usd"}, known)
	require.NoError(t, err)
	assert.Equal(t, "2", c.ID)

	c, err = ResolveCurrency(PendingSale{CurrencyCode: "guaraní"}, known)
	require.NoError(t, err)
	assert.Equal(t, "1", c.ID)

	_, err = ResolveCurrency(PendingSale{CurrencyCode: "EUR"}, known)
	assert.ErrorIs(t, err, ErrCurrencyNotFound)
}
