package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
	"github.com/odyssey-erp/odyssey-pos/internal/money"
)

const stockText = `Stock insuficiente para producto "Widget" (ID: W1). Disponible: 3, Requerido: 10`

func TestParseStock(t *testing.T) {
	stock, ok := parseStock(stockText)
	require.True(t, ok)
	assert.Equal(t, "Widget", stock.ProductName)
	assert.Equal(t, "W1", stock.ProductID)
	assert.True(t, stock.Available.Equal(decimal.NewFromInt(3)))
	assert.True(t, stock.Required.Equal(decimal.NewFromInt(10)))

	_, ok = parseStock("Stock insuficiente")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	c := NewClassifier(money.PYG)

	tests := []struct {
		name     string
		err      error
		category Category
		contains string
	}{
		{
			name:     "structured code",
			err:      fmt.Errorf("create sale: %w", &backoffice.APIError{Status: 422, Code: CodeClientInactive, Message: "cliente inactivo"}),
			category: CategoryValidationRejected,
			contains: "inactive",
		},
		{
			name: "structured stock code with context",
			err: &backoffice.APIError{Status: 422, Code: CodeInsufficientStock, Context: map[string]any{
				"product_name": "Widget", "product_id": "W1", "available": float64(3), "required": float64(10),
			}},
			category: CategoryValidationRejected,
			contains: "available 3, required 10",
		},
		{
			name:     "stock detail text",
			err:      &backoffice.APIError{Status: 400, Detail: stockText},
			category: CategoryStockInsufficient,
			contains: "Widget (ID: W1)",
		},
		{
			name:     "discount detail text",
			err:      &backoffice.APIError{Status: 400, Detail: `El descuento (15000) excede el precio del producto (12000) para "Cable" (ID: C9)`},
			category: CategoryDiscountExceeded,
			contains: "15.000 exceeds the price 12.000 of Cable (ID: C9)",
		},
		{
			name:     "http 401",
			err:      fmt.Errorf("create sale: %w", &backoffice.APIError{Status: http.StatusUnauthorized, Message: "nope"}),
			category: CategoryUnauthorized,
			contains: "session",
		},
		{
			name:     "expired session text",
			err:      &backoffice.APIError{Status: http.StatusForbidden, Message: "Token expirado"},
			category: CategoryUnauthorized,
		},
		{
			name:     "network",
			err:      fmt.Errorf("create sale: %w", fmt.Errorf("%w: dial tcp: refused", backoffice.ErrNetwork)),
			category: CategoryNetworkOrTimeout,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			category: CategoryNetworkOrTimeout,
		},
		{
			name:     "server error",
			err:      &backoffice.APIError{Status: 503, Message: "Service Unavailable"},
			category: CategoryServerError,
			contains: "503",
		},
		{
			name:     "unrecognized code falls through to status",
			err:      &backoffice.APIError{Status: 500, Code: "SOMETHING_NEW", Message: "boom"},
			category: CategoryServerError,
			contains: "500",
		},
		{
			name:     "logical rejection without code",
			err:      &backoffice.APIError{Status: 200, Message: "No se pudo procesar"},
			category: CategoryUnknown,
			contains: "No se pudo procesar",
		},
		{
			name:     "plain error",
			err:      errors.New("something odd"),
			category: CategoryUnknown,
			contains: "something odd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := c.Classify(tt.err)
			require.NotNil(t, f)
			assert.Equal(t, tt.category, f.Category)
			assert.Contains(t, f.Message, tt.contains)
			assert.ErrorIs(t, f, tt.err)
		})
	}
}

func TestClassifyExtractsStockFields(t *testing.T) {
	f := NewClassifier(money.PYG).Classify(&backoffice.APIError{Status: 400, Detail: stockText})
	require.NotNil(t, f.Stock)
	assert.Equal(t, "Widget", f.Stock.ProductName)
	assert.NotContains(t, f.Message, "insuficiente")
}

func TestClassifyNilAndIdempotent(t *testing.T) {
	c := NewClassifier(money.PYG)
	assert.Nil(t, c.Classify(nil))

	first := c.Classify(errors.New("x"))
	assert.Same(t, first, c.Classify(fmt.Errorf("wrapped: %w", first)))
}
