package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/submission"
)

// Gateway is the backoffice surface a sales session depends on.
type Gateway interface {
	GetCustomer(ctx context.Context, customerID string) (Customer, error)
	FetchPendingSalesByClient(ctx context.Context, customerID string) ([]PendingSale, error)
	ListConfirmedReservations(ctx context.Context, customerID string) ([]Reservation, error)
	LoadPaymentReferences(ctx context.Context) ([]PaymentMethod, []CurrencyOption, error)
	CreateSale(ctx context.Context, sale NewSale) (SaleReceipt, error)
	AddProductsToSale(ctx context.Context, saleID string, req AppendRequest) (AppendReceipt, error)
}

// SubmissionRecorder receives one observation per submission attempt that
// reached the backoffice.
type SubmissionRecorder interface {
	ObserveSubmission(mode, outcome string)
}

// OutcomeStatus tells how a submission ended.
type OutcomeStatus string

const (
	OutcomeCreated       OutcomeStatus = "created"
	OutcomeAppended      OutcomeStatus = "appended"
	OutcomeNeedsDecision OutcomeStatus = "needs_decision"
	OutcomeBound         OutcomeStatus = "bound"
)

// Outcome is the result of a submission or a pending-sale decision.
type Outcome struct {
	Status         OutcomeStatus `json:"status"`
	SaleID         string        `json:"sale_id,omitempty"`
	InvoiceNumber  string        `json:"invoice_number,omitempty"`
	ProductsAdded  int           `json:"products_added,omitempty"`
	Message        string        `json:"message,omitempty"`
	Plan           *PaymentPlan  `json:"plan,omitempty"`
	PendingSales   []PendingSale `json:"pending_sales,omitempty"`
	BoundSale      *PendingSale  `json:"bound_sale,omitempty"`
	BindingCleared bool          `json:"binding_cleared,omitempty"`
}

// SubmitRequest carries the operator's payment selection for a new order.
// It is ignored when appending, where the pending sale's context applies.
type SubmitRequest struct {
	PaymentMethod string
	Currency      string
}

// PendingAction is an operator answer to the pending-sale prompt.
type PendingAction string

const (
	ActionSelect    PendingAction = "select"
	ActionCreateNew PendingAction = "create_new"
	ActionAppendNow PendingAction = "append_now"
)

// View is a read-only snapshot of a session.
type View struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customer_id,omitempty"`
	Items         []LineItem    `json:"items"`
	Reservation   *Reservation  `json:"reservation,omitempty"`
	Totals        Totals        `json:"totals"`
	Validations   Validations   `json:"validations"`
	ResolverState ResolverState `json:"resolver_state"`
	PendingSales  []PendingSale `json:"pending_sales"`
	BoundSale     *PendingSale  `json:"bound_sale,omitempty"`
	Submitting    bool          `json:"submitting"`
}

// SessionOptions are shared by every session of a registry.
type SessionOptions struct {
	Draft      DraftConfig
	Gateway    Gateway
	Classifier submission.Classifier
	Recorder   SubmissionRecorder
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Session is one operator's sale in progress. It owns its draft and resolver
// exclusively; network calls run without holding the lock.
type Session struct {
	id         string
	gateway    Gateway
	classifier submission.Classifier
	recorder   SubmissionRecorder
	logger     *slog.Logger
	clock      func() time.Time

	mu       sync.Mutex
	draft    *Draft
	resolver *Resolver
	inFlight bool
	lastSeen time.Time

	// saleKey is reused while the create payload is unchanged.
	saleKey     string
	salePayload string
}

// NewSession builds an empty session.
func NewSession(id string, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		id:         id,
		gateway:    opts.Gateway,
		classifier: opts.Classifier,
		recorder:   opts.Recorder,
		logger:     logger.With(slog.String("session", id)),
		clock:      clock,
		draft:      NewDraft(opts.Draft),
		resolver:   NewResolver(),
		lastSeen:   clock(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// View returns a snapshot for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return View{
		ID:            s.id,
		CustomerID:    s.draft.CustomerID(),
		Items:         s.draft.Items(),
		Reservation:   s.draft.Reservation(),
		Totals:        s.draft.Totals(),
		Validations:   s.draft.Validations(),
		ResolverState: s.resolver.State(),
		PendingSales:  s.resolver.PendingSales(),
		BoundSale:     s.resolver.Bound(),
		Submitting:    s.inFlight,
	}
}

// ============================================================================
// CUSTOMER & PENDING SALES
// ============================================================================

// SelectCustomer switches the sale to a customer. Reservation, pending
// binding, pending list and override are cleared; product lines are kept.
// The customer's pending sales are then fetched.
func (s *Session) SelectCustomer(ctx context.Context, customerID string) error {
	if customerID != "" {
		customer, err := s.gateway.GetCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("lookup customer: %w", err)
		}
		if customer.ID == "" {
			return ErrCustomerNotFound
		}
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	s.touchLocked()
	s.draft.SetCustomer(customerID)
	ticket := s.resolver.SetCustomer(customerID)
	s.mu.Unlock()

	if customerID == "" {
		return nil
	}
	return s.fetchPending(ctx, ticket)
}

// RefreshPendingSales re-fetches the current customer's pending sales.
func (s *Session) RefreshPendingSales(ctx context.Context) error {
	s.mu.Lock()
	if s.resolver.CustomerID() == "" {
		s.mu.Unlock()
		return ErrCustomerRequired
	}
	ticket := s.resolver.Refresh()
	s.mu.Unlock()
	return s.fetchPending(ctx, ticket)
}

func (s *Session) fetchPending(ctx context.Context, ticket FetchTicket) error {
	sales, err := s.gateway.FetchPendingSalesByClient(ctx, ticket.CustomerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.resolver.FetchFailed(ticket) {
			s.logger.Warn("fetch pending sales failed", slog.String("customer", ticket.CustomerID), slog.Any("error", err))
			return fmt.Errorf("fetch pending sales: %w", err)
		}
		return nil
	}
	if !s.resolver.ApplyFetch(ticket, sales) {
		s.logger.Debug("discarded stale pending sales response", slog.String("customer", ticket.CustomerID))
	}
	return nil
}

// DecidePending applies the operator's answer to the pending-sale prompt.
func (s *Session) DecidePending(ctx context.Context, action PendingAction, saleID string, req SubmitRequest) (*Outcome, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	switch action {
	case ActionSelect:
		sale, err := s.resolver.Select(saleID)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return &Outcome{Status: OutcomeBound, SaleID: sale.SaleID, BoundSale: &sale}, nil
	case ActionCreateNew:
		err := s.resolver.CreateNewOnce()
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	case ActionAppendNow:
		_, err := s.resolver.Select(saleID)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownPendingAction, action)
	}
	return s.Submit(ctx, req)
}

// ClearPendingBinding returns submissions to new-order mode.
func (s *Session) ClearPendingBinding() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver.ClearBinding()
}

// ============================================================================
// CART
// ============================================================================

func (s *Session) mutate(fn func(d *Draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrSubmissionInFlight
	}
	s.touchLocked()
	return fn(s.draft)
}

// AddItem adds a product line to the draft.
func (s *Session) AddItem(item LineItem) error {
	return s.mutate(func(d *Draft) error { return d.AddItem(item) })
}

// SetQuantity changes a line quantity.
func (s *Session) SetQuantity(productID string, qty decimal.Decimal) error {
	return s.mutate(func(d *Draft) error { return d.SetQuantity(productID, qty) })
}

// RemoveItem deletes a line.
func (s *Session) RemoveItem(productID string) error {
	return s.mutate(func(d *Draft) error { return d.RemoveItem(productID) })
}

// ApplyDiscount changes a line discount and returns the updated line.
func (s *Session) ApplyDiscount(productID string, req DiscountRequest) (LineItem, error) {
	var updated LineItem
	err := s.mutate(func(d *Draft) error {
		var err error
		updated, err = d.ApplyDiscount(productID, req)
		return err
	})
	return updated, err
}

// AttachReservation binds one of the customer's confirmed reservations.
func (s *Session) AttachReservation(ctx context.Context, reservationID string) (LineItem, error) {
	if reservationID == "" {
		return LineItem{}, ErrReservationIDRequired
	}
	s.mu.Lock()
	customerID := s.draft.CustomerID()
	switch {
	case s.inFlight:
		s.mu.Unlock()
		return LineItem{}, ErrSubmissionInFlight
	case customerID == "":
		s.mu.Unlock()
		return LineItem{}, ErrCustomerRequired
	case s.resolver.Bound() != nil:
		s.mu.Unlock()
		return LineItem{}, ErrReservationWithPendingSale
	}
	s.mu.Unlock()

	reservations, err := s.gateway.ListConfirmedReservations(ctx, customerID)
	if err != nil {
		return LineItem{}, fmt.Errorf("list reservations: %w", err)
	}
	var found *Reservation
	for i := range reservations {
		if reservations[i].Key() == reservationID || reservations[i].ID == reservationID {
			found = &reservations[i]
			break
		}
	}
	if found == nil {
		return LineItem{}, ErrReservationNotFound
	}

	var item LineItem
	err = s.mutate(func(d *Draft) error {
		if d.CustomerID() != customerID {
			return ErrCustomerChanged
		}
		var err error
		item, err = d.BindReservation(*found)
		return err
	})
	return item, err
}

// DetachReservation removes the reservation and its line.
func (s *Session) DetachReservation(reservationID string) error {
	return s.mutate(func(d *Draft) error { return d.UnbindReservation(reservationID) })
}

// Clear discards the sale in progress, including customer and binding.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrSubmissionInFlight
	}
	s.draft.Reset()
	s.resolver.SetCustomer("")
	s.saleKey, s.salePayload = "", ""
	return nil
}

// ============================================================================
// SUBMISSION
// ============================================================================

// Submit finalizes the draft. Depending on the resolver it creates a new
// order, appends to the bound pending sale or returns NeedsDecision with the
// pending list. Backoffice failures come back as *submission.Failure and
// leave the cart intact.
func (s *Session) Submit(ctx context.Context, req SubmitRequest) (*Outcome, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	s.touchLocked()

	decision, err := s.resolver.Decide()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if decision.Mode == ModeAppend && (s.draft.Reservation() != nil || s.draft.hasReservationLine()) {
		s.mu.Unlock()
		return nil, ErrReservationWithPendingSale
	}
	if err := s.draft.ValidateForSubmit(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	switch decision.Mode {
	case ModePrompt:
		out := &Outcome{Status: OutcomeNeedsDecision, PendingSales: s.resolver.PendingSales()}
		s.mu.Unlock()
		return out, nil
	case ModeCreate:
		if req.PaymentMethod == "" {
			s.mu.Unlock()
			return nil, ErrPaymentMethodRequired
		}
		if req.Currency == "" {
			s.mu.Unlock()
			return nil, ErrCurrencyRequired
		}
	}

	if decision.Override {
		s.resolver.ConsumeOverride()
	}
	s.inFlight = true
	customerID := s.draft.CustomerID()
	items := s.draft.Items()
	totals := s.draft.Totals()
	hasDiscounts := s.draft.HasDiscounts()
	var reservationID string
	if r := s.draft.Reservation(); r != nil {
		reservationID = r.Key()
	}
	s.mu.Unlock()

	if decision.Mode == ModeAppend {
		return s.appendToPending(ctx, *decision.Sale, items, hasDiscounts)
	}
	return s.createSale(ctx, req, customerID, items, totals, reservationID)
}

func (s *Session) createSale(ctx context.Context, req SubmitRequest, customerID string, items []LineItem, totals Totals, reservationID string) (*Outcome, error) {
	methods, currencies, err := s.gateway.LoadPaymentReferences(ctx)
	if err != nil {
		return nil, s.fail(string(ModeCreate), fmt.Errorf("load payment references: %w", err))
	}
	plan, err := buildNewSalePlan(req.PaymentMethod, req.Currency, totals, methods, currencies)
	if err != nil {
		s.release()
		return nil, err
	}

	sale := NewSale{
		CustomerID:      customerID,
		LineItems:       items,
		PaymentMethodID: plan.PaymentMethod.ID,
		CurrencyID:      plan.Currency.ID,
		ReservationID:   reservationID,
	}
	sale.IdempotencyKey = s.idempotencyKey(sale)
	receipt, err := s.gateway.CreateSale(ctx, sale)
	if err != nil {
		return nil, s.fail(string(ModeCreate), fmt.Errorf("create sale: %w", err))
	}

	s.mu.Lock()
	s.inFlight = false
	s.saleKey, s.salePayload = "", ""
	s.draft.Reset()
	s.resolver.SetCustomer("")
	s.mu.Unlock()

	s.observe(string(ModeCreate), "success")
	s.logger.Info("sale created",
		slog.String("sale_id", receipt.SaleID),
		slog.String("invoice", receipt.InvoiceNumber),
		slog.String("total", totals.Total.String()))
	return &Outcome{
		Status:        OutcomeCreated,
		SaleID:        receipt.SaleID,
		InvoiceNumber: receipt.InvoiceNumber,
		Message:       receipt.Message,
		Plan:          &plan,
	}, nil
}

// idempotencyKey returns the key for a create request. A retry of an
// unchanged payload after a failure gets the key of the earlier attempt.
func (s *Session) idempotencyKey(sale NewSale) string {
	payload, err := json.Marshal(sale)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || s.saleKey == "" || string(payload) != s.salePayload {
		s.saleKey = uuid.NewString()
		s.salePayload = string(payload)
	}
	return s.saleKey
}

func (s *Session) appendToPending(ctx context.Context, sale PendingSale, items []LineItem, hasDiscounts bool) (*Outcome, error) {
	plan := s.pendingPlan(ctx, sale)

	receipt, err := s.gateway.AddProductsToSale(ctx, sale.SaleID, AppendRequest{
		LineItems:               items,
		AllowPriceModifications: hasDiscounts,
	})
	if err != nil {
		return nil, s.fail(string(ModeAppend), fmt.Errorf("add products to sale %s: %w", sale.SaleID, err))
	}

	s.mu.Lock()
	s.inFlight = false
	s.draft.ClearItems()
	ticket := s.resolver.Refresh()
	s.mu.Unlock()

	s.observe(string(ModeAppend), "success")
	s.logger.Info("products appended to pending sale",
		slog.String("sale_id", sale.SaleID),
		slog.Int("products_added", receipt.ProductsAdded))

	out := &Outcome{
		Status:        OutcomeAppended,
		SaleID:        sale.SaleID,
		ProductsAdded: receipt.ProductsAdded,
		Message:       receipt.Message,
		Plan:          plan,
	}
	if err := s.fetchPending(ctx, ticket); err != nil {
		return out, nil
	}
	s.mu.Lock()
	out.BoundSale = s.resolver.Bound()
	out.BindingCleared = out.BoundSale == nil
	s.mu.Unlock()
	return out, nil
}

// pendingPlan resolves the payment context the pending sale was committed
// with. It is informational; failures are logged and do not block.
func (s *Session) pendingPlan(ctx context.Context, sale PendingSale) *PaymentPlan {
	methods, currencies, err := s.gateway.LoadPaymentReferences(ctx)
	if err != nil {
		s.logger.Warn("load payment references failed", slog.Any("error", err))
		return nil
	}
	plan := &PaymentPlan{}
	if m, err := ResolvePaymentMethod(sale, methods); err == nil {
		plan.PaymentMethod = m
	} else {
		s.logger.Warn("resolve pending payment method", slog.String("sale_id", sale.SaleID), slog.Any("error", err))
	}
	if c, err := ResolveCurrency(sale, currencies); err == nil {
		plan.Currency = c
	} else {
		s.logger.Warn("resolve pending currency", slog.String("sale_id", sale.SaleID), slog.Any("error", err))
	}
	return plan
}

// fail releases the in-flight guard and classifies err. The cart is kept.
func (s *Session) fail(mode string, err error) error {
	s.release()
	failure := s.classifier.Classify(err)
	s.observe(mode, string(failure.Category))
	level := slog.LevelWarn
	if failure.Category == submission.CategoryServerError || failure.Category == submission.CategoryUnknown {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "submission failed",
		slog.String("mode", mode),
		slog.String("category", string(failure.Category)),
		slog.Any("error", err))
	return failure
}

func (s *Session) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Session) observe(mode, outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveSubmission(mode, outcome)
	}
}

// ============================================================================
// IDLE TRACKING
// ============================================================================

func (s *Session) touchLocked() {
	s.lastSeen = s.clock()
}

// Idle reports whether the session has been untouched for at least ttl and
// has no submission running.
func (s *Session) Idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight && now.Sub(s.lastSeen) >= ttl
}

// IsFailure reports whether err is a classified backoffice failure.
func IsFailure(err error) (*submission.Failure, bool) {
	var f *submission.Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
