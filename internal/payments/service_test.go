package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
	"github.com/odyssey-erp/odyssey-pos/internal/money"
	"github.com/odyssey-erp/odyssey-pos/internal/submission"
)

type fakeBackoffice struct {
	mu        sync.Mutex
	orders    map[string]*backoffice.Order
	registers []backoffice.Register
	regErr    error
	payErr    error
	payGate   chan struct{}
	payments  []backoffice.RegisterPaymentRequest
}

func (f *fakeBackoffice) GetOrder(_ context.Context, id string) (*backoffice.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order %s: %w", id, &backoffice.APIError{Status: 404, Message: "not found"})
	}
	return o, nil
}

func (f *fakeBackoffice) ListOpenCashRegisters(context.Context) ([]backoffice.Register, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registers, f.regErr
}

func (f *fakeBackoffice) RegisterPayment(_ context.Context, _ string, req backoffice.RegisterPaymentRequest) (*backoffice.RegisterPaymentResult, error) {
	if f.payGate != nil {
		<-f.payGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payErr != nil {
		return nil, f.payErr
	}
	f.payments = append(f.payments, req)
	return &backoffice.RegisterPaymentResult{Success: true, Message: "Pago registrado"}, nil
}

type countingRecorder struct {
	mu  sync.Mutex
	got []string
}

func (r *countingRecorder) ObserveSubmission(mode, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, mode+":"+outcome)
}

func newTestService(t *testing.T) (*Service, *fakeBackoffice, *countingRecorder) {
	t.Helper()
	api := &fakeBackoffice{
		orders: map[string]*backoffice.Order{
			"S-1":  {ID: "S-1", BalanceDue: balance(5000), CurrencyCode: "PYG"},
			"PAID": {ID: "PAID", BalanceDue: balance(0), CurrencyCode: "PYG"},
		},
		registers: []backoffice.Register{{ID: "CAJA-1", Name: "Caja 1", Status: "open"}},
	}
	rec := &countingRecorder{}
	return NewService(api, submission.NewClassifier(money.PYG), rec, nil), api, rec
}

func str(s string) *string { return &s }

func TestServiceRegistersPayment(t *testing.T) {
	svc, api, rec := newTestService(t)
	ctx := context.Background()

	view, err := svc.Open(ctx, "S-1")
	require.NoError(t, err)
	require.Len(t, view.Registers, 1)
	assert.False(t, view.CanSubmit)

	view, err = svc.Update(view.ID, Update{AmountReceived: str("10000"), RegisterID: str("CAJA-1")})
	require.NoError(t, err)
	assert.Equal(t, "5.000", view.AmountToApply)
	assert.Equal(t, "5.000", view.Change)
	assert.True(t, view.CanSubmit)

	receipt, err := svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	assert.True(t, receipt.Applied.Equal(decimal.NewFromInt(5000)))
	assert.False(t, receipt.RegisterClosed)

	require.Len(t, api.payments, 1)
	assert.True(t, api.payments[0].AmountReceived.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "CAJA-1", api.payments[0].CashRegisterID)
	assert.Equal(t, []string{"payment:success"}, rec.got)

	_, err = svc.Get(view.ID)
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestServiceFlagsClosedRegisterWithoutBlocking(t *testing.T) {
	svc, api, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.Open(ctx, "S-1")
	require.NoError(t, err)
	_, err = svc.Update(view.ID, Update{AmountReceived: str("2000"), RegisterID: str("CAJA-1")})
	require.NoError(t, err)

	api.mu.Lock()
	api.registers = nil
	api.mu.Unlock()

	receipt, err := svc.Submit(ctx, view.ID)
	require.NoError(t, err)
	assert.True(t, receipt.RegisterClosed)
	assert.Len(t, api.payments, 1)
}

func TestServiceLocalValidationSkipsNetwork(t *testing.T) {
	svc, api, rec := newTestService(t)
	ctx := context.Background()

	view, err := svc.Open(ctx, "S-1")
	require.NoError(t, err)
	view, err = svc.Update(view.ID, Update{AmountReceived: str("1000"), AmountToApply: str("1500")})
	require.NoError(t, err)
	assert.Equal(t, ErrApplyExceedsReceived.Error(), view.ApplyError)

	_, err = svc.Submit(ctx, view.ID)
	assert.ErrorIs(t, err, ErrApplyExceedsReceived)
	assert.Empty(t, api.payments)
	assert.Empty(t, rec.got)
}

func TestServiceSettledOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	view, err := svc.Open(context.Background(), "PAID")
	require.NoError(t, err)
	assert.True(t, view.Settled)

	view, err = svc.Update(view.ID, Update{AmountReceived: str("1000"), AmountToApply: str("500"), Notes: str("x")})
	assert.ErrorIs(t, err, ErrOrderSettled)
	assert.Empty(t, view.AmountReceived)
	assert.Empty(t, view.AmountToApply)
	assert.False(t, view.Overridden)
	assert.Empty(t, view.Notes)
	assert.False(t, view.CanSubmit)

	_, err = svc.Submit(context.Background(), view.ID)
	assert.ErrorIs(t, err, ErrOrderSettled)
}

func TestServiceFailureKeepsForm(t *testing.T) {
	svc, api, rec := newTestService(t)
	api.payErr = &backoffice.APIError{Status: 400, Code: submission.CodeCashRegisterClosed}
	ctx := context.Background()

	view, err := svc.Open(ctx, "S-1")
	require.NoError(t, err)
	_, err = svc.Update(view.ID, Update{AmountReceived: str("3000")})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, view.ID)
	var f *submission.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, submission.CategoryValidationRejected, f.Category)
	assert.Equal(t, []string{"payment:validation_rejected"}, rec.got)

	again, err := svc.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, "3000", again.AmountReceived)
	assert.Equal(t, "3.000", again.AmountToApply)
	assert.False(t, again.Submitting)
}

func TestServiceRejectsEditsWhileSubmitting(t *testing.T) {
	svc, api, _ := newTestService(t)
	api.payGate = make(chan struct{})
	ctx := context.Background()

	view, err := svc.Open(ctx, "S-1")
	require.NoError(t, err)
	_, err = svc.Update(view.ID, Update{AmountReceived: str("3000")})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, view.ID)
		done <- err
	}()

	require.Eventually(t, func() bool {
		v, err := svc.Get(view.ID)
		return err == nil && v.Submitting
	}, time.Second, 5*time.Millisecond)

	_, err = svc.Update(view.ID, Update{AmountReceived: str("1")})
	assert.ErrorIs(t, err, ErrPaymentInFlight)
	_, err = svc.Submit(ctx, view.ID)
	assert.ErrorIs(t, err, ErrPaymentInFlight)

	close(api.payGate)
	require.NoError(t, <-done)
	assert.Len(t, api.payments, 1)
}

func TestServiceReopenStartsFresh(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Open(ctx, "S-1")
	require.NoError(t, err)
	_, err = svc.Update(first.ID, Update{AmountReceived: str("3000")})
	require.NoError(t, err)

	second, err := svc.Open(ctx, "S-1")
	require.NoError(t, err)
	assert.Empty(t, second.AmountReceived)
	assert.Equal(t, 1, svc.Len())

	_, err = svc.Get(first.ID)
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestServiceRegisterListFailureIsNotFatal(t *testing.T) {
	svc, api, _ := newTestService(t)
	api.regErr = errors.New("boom")

	view, err := svc.Open(context.Background(), "S-1")
	require.NoError(t, err)
	assert.Empty(t, view.Registers)
}

func TestServiceOpenUnknownOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Open(context.Background(), "NOPE")
	assert.ErrorIs(t, err, backoffice.ErrNotFound)
}

func TestServiceSweep(t *testing.T) {
	svc, _, _ := newTestService(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	_, err := svc.Open(context.Background(), "S-1")
	require.NoError(t, err)

	assert.Equal(t, 0, svc.Sweep(now.Add(-time.Minute)))
	assert.Equal(t, 1, svc.Sweep(now.Add(time.Minute)))
	assert.Equal(t, 0, svc.Len())
}
