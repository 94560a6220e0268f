package checkout

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
	"github.com/odyssey-erp/odyssey-pos/internal/directory"
	"github.com/odyssey-erp/odyssey-pos/internal/money"
)

type salesAPI interface {
	FetchPendingSalesByClient(ctx context.Context, customerID string) ([]backoffice.PendingSale, error)
	ListConfirmedReservations(ctx context.Context, customerID string) ([]backoffice.Reservation, error)
	CreateSale(ctx context.Context, req backoffice.CreateSaleRequest) (*backoffice.CreateSaleResult, error)
	AddProductsToSale(ctx context.Context, saleID string, req backoffice.AddProductsRequest) (*backoffice.AddProductsResult, error)
}

type referenceDirectory interface {
	Customer(ctx context.Context, customerID string) (backoffice.Customer, error)
	LoadCheckoutReferences(ctx context.Context) (directory.References, error)
}

// BackofficeGateway implements Gateway on top of the backoffice client, with
// reference data served through the directory cache.
type BackofficeGateway struct {
	sales     salesAPI
	directory referenceDirectory
	currency  money.Currency
}

// NewBackofficeGateway builds the gateway over the backoffice client and the directory.
func NewBackofficeGateway(sales salesAPI, dir referenceDirectory, cur money.Currency) *BackofficeGateway {
	return &BackofficeGateway{sales: sales, directory: dir, currency: cur}
}

// GetCustomer resolves a customer through the directory cache.
func (g *BackofficeGateway) GetCustomer(ctx context.Context, customerID string) (Customer, error) {
	c, err := g.directory.Customer(ctx, customerID)
	if errors.Is(err, backoffice.ErrNotFound) {
		return Customer{}, ErrCustomerNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	return Customer{ID: c.ID, Name: c.Name, Active: c.Active}, nil
}

// FetchPendingSalesByClient lists pending sales with normalized balances.
func (g *BackofficeGateway) FetchPendingSalesByClient(ctx context.Context, customerID string) ([]PendingSale, error) {
	rows, err := g.sales.FetchPendingSalesByClient(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]PendingSale, 0, len(rows))
	for _, row := range rows {
		items := make([]PendingSaleItem, 0, len(row.Items))
		for _, it := range row.Items {
			items = append(items, PendingSaleItem{
				ProductID: it.ProductID,
				Name:      it.Name,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			})
		}
		out = append(out, PendingSale{
			SaleID:        row.SaleID,
			SaleDate:      row.SaleDate,
			Items:         items,
			TotalAmount:   row.TotalAmount,
			BalanceDue:    money.NormalizeBalanceDue(row.BalanceDue, g.currency),
			PaymentMethod: row.PaymentMethod,
			CurrencyCode:  row.CurrencyCode,
		})
	}
	return out, nil
}

// ListConfirmedReservations lists the customer's confirmed reservations.
func (g *BackofficeGateway) ListConfirmedReservations(ctx context.Context, customerID string) ([]Reservation, error) {
	rows, err := g.sales.ListConfirmedReservations(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]Reservation, 0, len(rows))
	for _, row := range rows {
		r := Reservation{
			ID:          row.ID,
			ReserveID:   row.ReserveID,
			ServiceName: row.ServiceName,
			TotalAmount: row.TotalAmount,
			StartTime:   row.StartTime,
			EndTime:     row.EndTime,
		}
		if row.ProductID != nil {
			r.ProductID = *row.ProductID
		}
		out = append(out, r)
	}
	return out, nil
}

// LoadPaymentReferences loads the payment methods and currencies offered at checkout.
func (g *BackofficeGateway) LoadPaymentReferences(ctx context.Context) ([]PaymentMethod, []CurrencyOption, error) {
	refs, err := g.directory.LoadCheckoutReferences(ctx)
	if err != nil {
		return nil, nil, err
	}
	methods := make([]PaymentMethod, 0, len(refs.PaymentMethods))
	for _, m := range refs.PaymentMethods {
		methods = append(methods, PaymentMethod{ID: m.ID, Code: m.Code, Label: m.Label})
	}
	currencies := make([]CurrencyOption, 0, len(refs.Currencies))
	for _, c := range refs.Currencies {
		currencies = append(currencies, CurrencyOption{ID: c.ID, Code: c.Code, Name: c.Name})
	}
	return methods, currencies, nil
}

// CreateSale sends a new order.
func (g *BackofficeGateway) CreateSale(ctx context.Context, sale NewSale) (SaleReceipt, error) {
	res, err := g.sales.CreateSale(ctx, backoffice.CreateSaleRequest{
		CustomerID:      sale.CustomerID,
		LineItems:       wireLines(sale.LineItems),
		PaymentMethodID: sale.PaymentMethodID,
		CurrencyID:      sale.CurrencyID,
		ReservationID:   sale.ReservationID,
		IdempotencyKey:  sale.IdempotencyKey,
	})
	if err != nil {
		return SaleReceipt{}, err
	}
	return SaleReceipt{SaleID: res.SaleID, InvoiceNumber: res.InvoiceNumber, Message: res.Message}, nil
}

// AddProductsToSale appends lines to a pending sale.
func (g *BackofficeGateway) AddProductsToSale(ctx context.Context, saleID string, req AppendRequest) (AppendReceipt, error) {
	res, err := g.sales.AddProductsToSale(ctx, saleID, backoffice.AddProductsRequest{
		LineItems:               wireLines(req.LineItems),
		AllowPriceModifications: req.AllowPriceModifications,
	})
	if err != nil {
		return AppendReceipt{}, err
	}
	return AppendReceipt{ProductsAdded: res.ProductsAdded, Message: res.Message}, nil
}

func wireLines(items []LineItem) []backoffice.LineItem {
	out := make([]backoffice.LineItem, 0, len(items))
	for _, item := range items {
		line := backoffice.LineItem{
			ProductID:     item.ProductID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			OriginalPrice: item.OriginalPrice,
			ReservationID: item.ReservationID,
		}
		if item.Discount != nil {
			value := item.Discount.Value
			line.DiscountType = string(item.Discount.Kind)
			line.DiscountValue = &value
		}
		out = append(out, line)
	}
	return out
}
