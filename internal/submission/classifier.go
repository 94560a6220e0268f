// Package submission turns failures of the sale and payment endpoints into a
// small set of operator-facing categories.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
	"github.com/odyssey-erp/odyssey-pos/internal/money"
)

// Category is the failure taxonomy shown to the operator.
type Category string

const (
	CategoryValidationRejected Category = "validation_rejected"
	CategoryStockInsufficient  Category = "stock_insufficient"
	CategoryDiscountExceeded   Category = "discount_exceeded"
	CategoryUnauthorized       Category = "unauthorized"
	CategoryNetworkOrTimeout   Category = "network_or_timeout"
	CategoryServerError        Category = "server_error"
	CategoryUnknown            Category = "unknown"
)

// Structured codes the backoffice emits for rejected submissions.
const (
	CodeInsufficientStock        = "INSUFFICIENT_STOCK"
	CodeClientInactive           = "CLIENT_INACTIVE"
	CodePriceModificationBlocked = "PRICE_MODIFICATION_NOT_ALLOWED"
	CodeExcessiveDiscount        = "EXCESSIVE_DISCOUNT_AMOUNT"
	CodeProductNotFound          = "PRODUCT_NOT_FOUND"
	CodeSaleNotFound             = "SALE_NOT_FOUND"
	CodeSaleAlreadyPaid          = "SALE_ALREADY_PAID"
	CodeCashRegisterClosed       = "CASH_REGISTER_CLOSED"
	CodeInvalidPaymentAmount     = "INVALID_PAYMENT_AMOUNT"
)

var codeMessages = map[string]string{
	CodeClientInactive:           "The selected customer is inactive and cannot be invoiced.",
	CodePriceModificationBlocked: "Price changes are not permitted for this sale.",
	CodeProductNotFound:          "A product in the cart no longer exists.",
	CodeSaleNotFound:             "The selected sale no longer exists.",
	CodeSaleAlreadyPaid:          "The selected sale is already fully paid.",
	CodeCashRegisterClosed:       "The selected cash register is closed.",
	CodeInvalidPaymentAmount:     "The payment amount was rejected by the server.",
}

// Backend message grammar for the unstructured contract:
//
//	Stock insuficiente para producto "<name>" (ID: <id>). Disponible: <n>, Requerido: <n>
//	El descuento (<amount>) excede el precio del producto (<price>) para "<name>" (ID: <id>)
var (
	stockPattern        = regexp.MustCompile(`(?i)stock insuficiente para (?:el )?producto "([^"]+)" \(ID: ([^)]+)\)\.?\s*Disponible: (-?\d+(?:\.\d+)?), Requerido: (-?\d+(?:\.\d+)?)`)
	discountPattern     = regexp.MustCompile(`(?i)el descuento \((\d+(?:\.\d+)?)\) excede el precio del producto \((\d+(?:\.\d+)?)\) para "([^"]+)" \(ID: ([^)]+)\)`)
	unauthorizedPattern = regexp.MustCompile(`(?i)(token (expirado|inv[aá]lido|expired|invalid)|sesi[oó]n (expirada|inv[aá]lida)|session (expired|invalid)|invalid token|unauthori[sz]ed|no autorizado)`)
)

// StockShortage carries the fields extracted from an insufficient-stock failure.
type StockShortage struct {
	ProductName string
	ProductID   string
	Available   decimal.Decimal
	Required    decimal.Decimal
}

// DiscountExcess carries the fields extracted from an excessive-discount failure.
type DiscountExcess struct {
	DiscountAmount decimal.Decimal
	ProductPrice   decimal.Decimal
	ProductName    string
	ProductID      string
}

// Failure is a classified submission failure. The cart is preserved for every
// category; only a successful submission clears it.
type Failure struct {
	Category Category
	Message  string
	Code     string
	Status   int
	Stock    *StockShortage
	Discount *DiscountExcess
	Err      error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// HTTPStatus is the status a handler answers with for this failure.
func (f *Failure) HTTPStatus() int {
	switch f.Category {
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryNetworkOrTimeout:
		return http.StatusGatewayTimeout
	case CategoryServerError:
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}

// Classifier maps failures to categories. Amounts are rendered in Currency.
type Classifier struct {
	Currency money.Currency
}

// NewClassifier constructs a classifier for the display currency.
func NewClassifier(cur money.Currency) Classifier {
	return Classifier{Currency: cur}
}

// Classify returns nil for a nil error and a Failure otherwise.
func (c Classifier) Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	var existing *Failure
	if errors.As(err, &existing) {
		return existing
	}

	if errors.Is(err, backoffice.ErrUnauthorized) {
		return c.unauthorized(err)
	}
	if isNetwork(err) {
		return &Failure{
			Category: CategoryNetworkOrTimeout,
			Message:  "Could not reach the server. Check the connection and try again.",
			Err:      err,
		}
	}

	var apiErr *backoffice.APIError
	if errors.As(err, &apiErr) {
		return c.classifyAPIError(apiErr, err)
	}

	text := err.Error()
	if f := c.matchText(text, err); f != nil {
		return f
	}
	return &Failure{Category: CategoryUnknown, Message: text, Err: err}
}

func (c Classifier) classifyAPIError(apiErr *backoffice.APIError, err error) *Failure {
	if f := c.fromCode(apiErr, err); f != nil {
		return f
	}
	text := apiErr.Text()
	if f := c.matchText(text, err); f != nil {
		f.Status = apiErr.Status
		f.Code = apiErr.Code
		return f
	}
	if apiErr.Status >= 400 {
		return &Failure{
			Category: CategoryServerError,
			Message:  fmt.Sprintf("The server returned an error (status %d).", apiErr.Status),
			Code:     apiErr.Code,
			Status:   apiErr.Status,
			Err:      err,
		}
	}
	if text == "" {
		text = "The server rejected the request."
	}
	return &Failure{Category: CategoryUnknown, Message: text, Code: apiErr.Code, Status: apiErr.Status, Err: err}
}

func (c Classifier) fromCode(apiErr *backoffice.APIError, err error) *Failure {
	if apiErr.Code == "" {
		return nil
	}
	f := &Failure{Category: CategoryValidationRejected, Code: apiErr.Code, Status: apiErr.Status, Err: err}
	switch apiErr.Code {
	case CodeInsufficientStock:
		stock, ok := stockFromContext(apiErr.Context)
		if !ok {
			stock, ok = parseStock(apiErr.Text())
		}
		if ok {
			f.Stock = stock
			f.Message = c.stockMessage(stock)
		} else {
			f.Message = "Insufficient stock for one or more products."
		}
	case CodeExcessiveDiscount:
		discount, ok := discountFromContext(apiErr.Context)
		if !ok {
			discount, ok = parseDiscount(apiErr.Text())
		}
		if ok {
			f.Discount = discount
			f.Message = c.discountMessage(discount)
		} else {
			f.Message = "A discount exceeds the product price."
		}
	default:
		msg, known := codeMessages[apiErr.Code]
		if !known {
			return nil
		}
		f.Message = msg
	}
	return f
}

func (c Classifier) matchText(text string, err error) *Failure {
	if stock, ok := parseStock(text); ok {
		return &Failure{Category: CategoryStockInsufficient, Message: c.stockMessage(stock), Stock: stock, Err: err}
	}
	if discount, ok := parseDiscount(text); ok {
		return &Failure{Category: CategoryDiscountExceeded, Message: c.discountMessage(discount), Discount: discount, Err: err}
	}
	if unauthorizedPattern.MatchString(text) {
		return c.unauthorized(err)
	}
	return nil
}

func (c Classifier) unauthorized(err error) *Failure {
	return &Failure{
		Category: CategoryUnauthorized,
		Message:  "Your session has expired or is not valid. Review the details and sign out manually to log in again.",
		Status:   http.StatusUnauthorized,
		Err:      err,
	}
}

func (c Classifier) stockMessage(s *StockShortage) string {
	return fmt.Sprintf("Insufficient stock for %s (ID: %s): available %s, required %s.",
		s.ProductName, s.ProductID, s.Available.String(), s.Required.String())
}

func (c Classifier) discountMessage(d *DiscountExcess) string {
	return fmt.Sprintf("The discount %s exceeds the price %s of %s (ID: %s).",
		c.Currency.Format(d.DiscountAmount), c.Currency.Format(d.ProductPrice), d.ProductName, d.ProductID)
}

func parseStock(text string) (*StockShortage, bool) {
	m := stockPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	available, err := decimal.NewFromString(m[3])
	if err != nil {
		return nil, false
	}
	required, err := decimal.NewFromString(m[4])
	if err != nil {
		return nil, false
	}
	return &StockShortage{ProductName: m[1], ProductID: m[2], Available: available, Required: required}, true
}

func parseDiscount(text string) (*DiscountExcess, bool) {
	m := discountPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return nil, false
	}
	price, err := decimal.NewFromString(m[2])
	if err != nil {
		return nil, false
	}
	return &DiscountExcess{DiscountAmount: amount, ProductPrice: price, ProductName: m[3], ProductID: m[4]}, true
}

func stockFromContext(ctx map[string]any) (*StockShortage, bool) {
	name, okName := contextString(ctx, "product_name")
	available, okAvail := contextDecimal(ctx, "available")
	required, okReq := contextDecimal(ctx, "required")
	if !okName || !okAvail || !okReq {
		return nil, false
	}
	id, _ := contextString(ctx, "product_id")
	return &StockShortage{ProductName: name, ProductID: id, Available: available, Required: required}, true
}

func discountFromContext(ctx map[string]any) (*DiscountExcess, bool) {
	amount, okAmount := contextDecimal(ctx, "discount_amount")
	price, okPrice := contextDecimal(ctx, "product_price")
	if !okAmount || !okPrice {
		return nil, false
	}
	name, _ := contextString(ctx, "product_name")
	id, _ := contextString(ctx, "product_id")
	return &DiscountExcess{DiscountAmount: amount, ProductPrice: price, ProductName: name, ProductID: id}, true
}

func contextString(ctx map[string]any, key string) (string, bool) {
	switch v := ctx[key].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

func contextDecimal(ctx map[string]any, key string) (decimal.Decimal, bool) {
	switch v := ctx[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	}
	return decimal.Zero, false
}

func isNetwork(err error) bool {
	if errors.Is(err, backoffice.ErrNetwork) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
