package checkout

import "github.com/shopspring/decimal"

type createSessionResponse struct {
	ID string `json:"id"`
}

type customerRequest struct {
	CustomerID string `json:"customer_id" validate:"max=64"`
}

type addItemRequest struct {
	ProductID        string          `json:"product_id" validate:"required,max=64"`
	Name             string          `json:"name" validate:"required,max=200"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Category         string          `json:"category" validate:"max=64"`
	Unit             string          `json:"unit" validate:"max=20"`
	MinOrderQuantity decimal.Decimal `json:"min_order_quantity"`
}

func (r addItemRequest) lineItem() LineItem {
	return LineItem{
		ProductID:        r.ProductID,
		Name:             r.Name,
		Quantity:         r.Quantity,
		UnitPrice:        r.UnitPrice,
		OriginalPrice:    r.UnitPrice,
		Category:         r.Category,
		Unit:             r.Unit,
		MinOrderQuantity: r.MinOrderQuantity,
	}
}

type quantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type discountRequest struct {
	Kind  string          `json:"kind" validate:"required,oneof=percentage fixed_amount direct_price"`
	Value decimal.Decimal `json:"value"`
}

type reservationRequest struct {
	ReservationID string `json:"reservation_id" validate:"required,max=64"`
}

type submitRequest struct {
	PaymentMethod string `json:"payment_method" validate:"max=64"`
	Currency      string `json:"currency" validate:"max=64"`
}

type pendingDecisionRequest struct {
	Action        string `json:"action" validate:"required,oneof=select create_new append_now"`
	SaleID        string `json:"sale_id" validate:"required_unless=Action create_new,max=64"`
	PaymentMethod string `json:"payment_method" validate:"max=64"`
	Currency      string `json:"currency" validate:"max=64"`
}
