package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
	"github.com/odyssey-erp/odyssey-pos/internal/money"
	"github.com/odyssey-erp/odyssey-pos/internal/submission"
)

var (
	ErrFormNotFound    = errors.New("payment form not found")
	ErrOrderIDRequired = errors.New("order id is required")
	ErrPaymentInFlight = errors.New("a payment for this form is already in progress")
)

// Backoffice is the subset of the backoffice client the payment flow uses.
type Backoffice interface {
	GetOrder(ctx context.Context, orderID string) (*backoffice.Order, error)
	ListOpenCashRegisters(ctx context.Context) ([]backoffice.Register, error)
	RegisterPayment(ctx context.Context, orderID string, req backoffice.RegisterPaymentRequest) (*backoffice.RegisterPaymentResult, error)
}

// Recorder receives one observation per payment that reached the backoffice.
type Recorder interface {
	ObserveSubmission(mode, outcome string)
}

// FormView is the operator-facing state of a payment form.
type FormView struct {
	ID             string              `json:"id"`
	OrderID        string              `json:"order_id"`
	BalanceDue     decimal.NullDecimal `json:"balance_due"`
	Settled        bool                `json:"settled"`
	AmountReceived string              `json:"amount_received"`
	AmountToApply  string              `json:"amount_to_apply"`
	Overridden     bool                `json:"overridden"`
	ReceivedError  string              `json:"received_error,omitempty"`
	ApplyError     string              `json:"apply_error,omitempty"`
	Change         string              `json:"change,omitempty"`
	RegisterID     string              `json:"register_id,omitempty"`
	RegisterClosed bool                `json:"register_closed"`
	Registers      []Register          `json:"registers"`
	Notes          string              `json:"notes,omitempty"`
	CanSubmit      bool                `json:"can_submit"`
	Submitting     bool                `json:"submitting"`
}

// Update is a partial edit of a form. Nil fields are left unchanged.
type Update struct {
	AmountReceived *string
	AmountToApply  *string
	ResetApply     bool
	RegisterID     *string
	Notes          *string
}

// Receipt is the result of a registered payment.
type Receipt struct {
	OrderID        string          `json:"order_id"`
	Applied        decimal.Decimal `json:"applied"`
	Received       decimal.Decimal `json:"received"`
	Change         decimal.Decimal `json:"change"`
	RegisterID     string          `json:"register_id,omitempty"`
	RegisterClosed bool            `json:"register_closed"`
	Message        string          `json:"message,omitempty"`
}

type formEntry struct {
	mu        sync.Mutex
	id        string
	orderID   string
	form      *Form
	registers []Register
	inFlight  bool
	touched   time.Time
}

// Service keeps the open payment forms and registers payments.
type Service struct {
	api        Backoffice
	classifier submission.Classifier
	currency   money.Currency
	recorder   Recorder
	logger     *slog.Logger
	clock      func() time.Time
	newID      func() string

	mu    sync.Mutex
	forms map[string]*formEntry
}

// NewService builds the payment form service.
func NewService(api Backoffice, classifier submission.Classifier, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:        api,
		classifier: classifier,
		currency:   classifier.Currency,
		recorder:   recorder,
		logger:     logger.With(slog.String("component", "payments")),
		clock:      time.Now,
		newID:      uuid.NewString,
		forms:      make(map[string]*formEntry),
	}
}

// Open loads the order and the open registers and starts a fresh form. Any
// earlier form for the same order is discarded.
func (s *Service) Open(ctx context.Context, orderID string) (FormView, error) {
	if orderID == "" {
		return FormView{}, ErrOrderIDRequired
	}
	order, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return FormView{}, fmt.Errorf("open payment form: %w", err)
	}
	cur := s.currency
	if order.CurrencyCode != "" {
		if c, err := money.NewCurrency(order.CurrencyCode); err == nil {
			cur = c
		}
	}

	registers, err := s.api.ListOpenCashRegisters(ctx)
	if err != nil {
		s.logger.Warn("list open cash registers failed", slog.String("order_id", orderID), slog.Any("error", err))
	}

	entry := &formEntry{
		id:        s.newID(),
		orderID:   orderID,
		form:      NewForm(order.BalanceDue, cur),
		registers: registersFromAPI(registers),
		touched:   s.clock(),
	}

	s.mu.Lock()
	for id, e := range s.forms {
		if e.orderID == orderID {
			delete(s.forms, id)
		}
	}
	s.forms[entry.id] = entry
	s.mu.Unlock()

	return entry.view(), nil
}

// Get returns the current view of a form.
func (s *Service) Get(id string) (FormView, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return FormView{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.view(), nil
}

// Update applies an edit. Edits are rejected while a payment is in flight and
// on a settled order.
func (s *Service) Update(id string, u Update) (FormView, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return FormView{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.inFlight {
		return entry.view(), ErrPaymentInFlight
	}
	f := entry.form
	if f.Settled() {
		return entry.view(), ErrOrderSettled
	}
	if u.AmountToApply != nil {
		_ = f.SetAmountToApply(*u.AmountToApply)
	}
	if u.ResetApply {
		_ = f.ResetAmountToApply()
	}
	if u.AmountReceived != nil {
		_ = f.SetAmountReceived(*u.AmountReceived)
	}
	if u.RegisterID != nil {
		_ = f.SetRegister(*u.RegisterID)
	}
	if u.Notes != nil {
		_ = f.SetNotes(*u.Notes)
	}
	entry.touched = s.clock()
	return entry.view(), nil
}

// Close discards a form.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[id]; !ok {
		return ErrFormNotFound
	}
	delete(s.forms, id)
	return nil
}

// Submit validates the form again and registers the payment. A selected
// register that is no longer open is reported on the receipt without blocking
// the payment. On failure the form is kept as entered.
func (s *Service) Submit(ctx context.Context, id string) (Receipt, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return Receipt{}, err
	}

	entry.mu.Lock()
	if entry.inFlight {
		entry.mu.Unlock()
		return Receipt{}, ErrPaymentInFlight
	}
	app, err := entry.form.Application()
	if err != nil {
		entry.mu.Unlock()
		return Receipt{}, err
	}
	entry.inFlight = true
	orderID := entry.orderID
	entry.mu.Unlock()

	defer func() {
		entry.mu.Lock()
		entry.inFlight = false
		entry.touched = s.clock()
		entry.mu.Unlock()
	}()

	closed := false
	if app.RegisterID != "" {
		registers, err := s.api.ListOpenCashRegisters(ctx)
		if err != nil {
			s.logger.Warn("refresh open cash registers failed", slog.String("order_id", orderID), slog.Any("error", err))
		} else {
			open := registersFromAPI(registers)
			closed = registerClosed(app.RegisterID, open)
			entry.mu.Lock()
			entry.registers = open
			entry.mu.Unlock()
		}
		if closed {
			s.logger.Warn("payment attributed to a register that is not open",
				slog.String("order_id", orderID), slog.String("register_id", app.RegisterID))
		}
	}

	apply := app.Apply
	req := backoffice.RegisterPaymentRequest{
		AmountReceived: app.Received,
		AmountToApply:  &apply,
		CashRegisterID: app.RegisterID,
		Notes:          app.Notes,
	}
	result, err := s.api.RegisterPayment(ctx, orderID, req)
	if err != nil {
		failure := s.classifier.Classify(err)
		s.observe(string(failure.Category))
		s.logger.Error("register payment failed",
			slog.String("order_id", orderID),
			slog.String("category", string(failure.Category)),
			slog.Any("error", err))
		return Receipt{}, failure
	}
	s.observe("success")
	s.logger.Info("payment registered",
		slog.String("order_id", orderID),
		slog.String("applied", app.Apply.String()),
		slog.String("change", app.Change.String()))

	s.mu.Lock()
	delete(s.forms, id)
	s.mu.Unlock()

	return Receipt{
		OrderID:        orderID,
		Applied:        app.Apply,
		Received:       app.Received,
		Change:         app.Change,
		RegisterID:     app.RegisterID,
		RegisterClosed: closed,
		Message:        result.Message,
	}, nil
}

// Sweep drops forms untouched since before cutoff.
func (s *Service) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, e := range s.forms {
		e.mu.Lock()
		stale := !e.inFlight && e.touched.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(s.forms, id)
			dropped++
		}
	}
	return dropped
}

// Len counts open forms.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

func (s *Service) lookup(id string) (*formEntry, error) {
	s.mu.Lock()
	entry, ok := s.forms[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	return entry, nil
}

func (s *Service) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveSubmission("payment", outcome)
	}
}

func (e *formEntry) view() FormView {
	f := e.form
	c := f.Check()
	v := FormView{
		ID:             e.id,
		OrderID:        e.orderID,
		BalanceDue:     f.BalanceDue(),
		Settled:        f.Settled(),
		AmountReceived: f.AmountReceived(),
		AmountToApply:  f.AmountToApply(),
		Overridden:     f.Overridden(),
		RegisterID:     f.RegisterID(),
		RegisterClosed: registerClosed(f.RegisterID(), e.registers),
		Registers:      e.registers,
		Notes:          f.Notes(),
		Submitting:     e.inFlight,
	}
	if v.Registers == nil {
		v.Registers = []Register{}
	}
	if c.ReceivedErr != nil && f.AmountReceived() != "" {
		v.ReceivedError = c.ReceivedErr.Error()
	}
	if c.ApplyErr != nil && f.AmountToApply() != "" {
		v.ApplyError = c.ApplyErr.Error()
	}
	if c.Valid() {
		v.Change = money.FormatGrouped(c.Change(), f.currency)
	}
	v.CanSubmit = c.Valid() && !v.Settled && !e.inFlight
	return v
}
