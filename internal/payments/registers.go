package payments

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
)

// Register is a cash register the operator may attribute a payment to.
type Register struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Status         string              `json:"status"`
	CurrentBalance decimal.NullDecimal `json:"current_balance"`
}

// IsOpen accepts both English and Spanish status labels.
func (r Register) IsOpen() bool {
	return strings.EqualFold(r.Status, "open") || strings.EqualFold(r.Status, "abierta")
}

func registersFromAPI(in []backoffice.Register) []Register {
	out := make([]Register, 0, len(in))
	for _, r := range in {
		out = append(out, Register{ID: r.ID, Name: r.Name, Status: r.Status, CurrentBalance: r.CurrentBalance})
	}
	return out
}

// registerClosed reports whether id names a register that is not among the
// open ones. An empty id selects no register and is never closed. The flag is
// informational; submission proceeds either way.
func registerClosed(id string, open []Register) bool {
	if id == "" {
		return false
	}
	for _, r := range open {
		if r.ID == id {
			return r.Status != "" && !r.IsOpen()
		}
	}
	return true
}
