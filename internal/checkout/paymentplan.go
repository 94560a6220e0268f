package checkout

import (
	"fmt"
	"strings"
)

// PaymentPlan is the payment context a submission is sent with.
type PaymentPlan struct {
	PaymentMethod PaymentMethod  `json:"payment_method"`
	Currency      CurrencyOption `json:"currency"`
	Totals        Totals         `json:"totals"`
}

// ResolvePaymentMethod maps the payment method recorded on a pending sale
// back to a known method. The sale may carry an id, a label or a code, and
// they are tried in that order.
func ResolvePaymentMethod(sale PendingSale, known []PaymentMethod) (PaymentMethod, error) {
	return lookupPaymentMethod(sale.PaymentMethod, known)
}

// ResolveCurrency maps the currency recorded on a pending sale to a known
// currency by id, then code, then name.
func ResolveCurrency(sale PendingSale, known []CurrencyOption) (CurrencyOption, error) {
	return lookupCurrency(sale.CurrencyCode, known)
}

func lookupPaymentMethod(ref string, known []PaymentMethod) (PaymentMethod, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return PaymentMethod{}, ErrPaymentMethodNotFound
	}
	for _, m := range known {
		if m.ID == ref {
			return m, nil
		}
	}
	for _, m := range known {
		if strings.EqualFold(m.Label, ref) {
			return m, nil
		}
	}
	for _, m := range known {
		if strings.EqualFold(m.Code, ref) {
			return m, nil
		}
	}
	return PaymentMethod{}, fmt.Errorf("%w: %q", ErrPaymentMethodNotFound, ref)
}

func lookupCurrency(ref string, known []CurrencyOption) (CurrencyOption, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return CurrencyOption{}, ErrCurrencyNotFound
	}
	for _, c := range known {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range known {
		if strings.EqualFold(c.Code, ref) {
			return c, nil
		}
	}
	for _, c := range known {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return CurrencyOption{}, fmt.Errorf("%w: %q", ErrCurrencyNotFound, ref)
}

// buildNewSalePlan validates the operator's selection for a new order.
func buildNewSalePlan(methodRef, currencyRef string, totals Totals, methods []PaymentMethod, currencies []CurrencyOption) (PaymentPlan, error) {
	method, err := lookupPaymentMethod(methodRef, methods)
	if err != nil {
		return PaymentPlan{}, err
	}
	currency, err := lookupCurrency(currencyRef, currencies)
	if err != nil {
		return PaymentPlan{}, err
	}
	return PaymentPlan{PaymentMethod: method, Currency: currency, Totals: totals}, nil
}
