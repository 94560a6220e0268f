package checkout

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/submission"
)

// Handler exposes sales sessions over JSON.
type Handler struct {
	logger     *slog.Logger
	registry   *Registry
	classifier submission.Classifier
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry, classifier submission.Classifier) *Handler {
	return &Handler{logger: logger, registry: registry, classifier: classifier}
}

// MountRoutes registers checkout session routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.ShowSession)
		r.Delete("/", h.DeleteSession)
		r.Put("/customer", h.SelectCustomer)
		r.Post("/pending-sales/refresh", h.RefreshPending)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{productID}", h.SetQuantity)
		r.Delete("/items/{productID}", h.RemoveItem)
		r.Post("/items/{productID}/discount", h.ApplyDiscount)
		r.Delete("/items/{productID}/discount", h.RemoveDiscount)
		r.Post("/reservation", h.AttachReservation)
		r.Delete("/reservation/{reservationID}", h.DetachReservation)
		r.Post("/submit", h.Submit)
		r.Post("/pending-decision", h.DecidePending)
		r.Delete("/pending-binding", h.ClearPendingBinding)
		r.Post("/clear", h.Clear)
	})
}

// CreateSession opens an empty sales session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.registry.Create()
	httpx.JSON(w, http.StatusCreated, createSessionResponse{ID: s.ID()})
}

// ShowSession renders the session snapshot.
func (h *Handler) ShowSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

// DeleteSession discards a session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(chi.URLParam(r, "sessionID")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectCustomer switches the session customer.
func (h *Handler) SelectCustomer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req customerRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := s.SelectCustomer(r.Context(), req.CustomerID); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

// RefreshPending re-fetches the customer's pending sales.
func (h *Handler) RefreshPending(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RefreshPendingSales(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

// AddItem adds a product line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := s.AddItem(req.lineItem()); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

// SetQuantity changes a line quantity.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := s.SetQuantity(chi.URLParam(r, "productID"), req.Quantity); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveItem(chi.URLParam(r, "productID")); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

// ApplyDiscount sets a line discount.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req discountRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	item, err := s.ApplyDiscount(chi.URLParam(r, "productID"), DiscountRequest{Kind: DiscountKind(req.Kind), Value: req.Value})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// RemoveDiscount restores a line to its original price.
func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	item, err := s.ApplyDiscount(chi.URLParam(r, "productID"), DiscountRequest{Kind: DiscountNone})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// AttachReservation binds a confirmed reservation.
func (h *Handler) AttachReservation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req reservationRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if _, err := s.AttachReservation(r.Context(), req.ReservationID); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

// DetachReservation unbinds the reservation.
func (h *Handler) DetachReservation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.DetachReservation(chi.URLParam(r, "reservationID")); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

// Submit finalizes the sale. A pending decision is answered with 409.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	out, err := s.Submit(r.Context(), SubmitRequest{PaymentMethod: req.PaymentMethod, Currency: req.Currency})
	h.respondOutcome(w, r, out, err)
}

// DecidePending applies the operator choice about pending sales.
func (h *Handler) DecidePending(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req pendingDecisionRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	out, err := s.DecidePending(r.Context(), PendingAction(req.Action), req.SaleID,
		SubmitRequest{PaymentMethod: req.PaymentMethod, Currency: req.Currency})
	h.respondOutcome(w, r, out, err)
}

// ClearPendingBinding returns the session to new-order mode.
func (h *Handler) ClearPendingBinding(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ClearPendingBinding()
	httpx.JSON(w, http.StatusOK, s.View())
}

// Clear empties the session.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Clear(); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.View())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) respondOutcome(w http.ResponseWriter, r *http.Request, out *Outcome, err error) {
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	status := http.StatusOK
	switch out.Status {
	case OutcomeCreated:
		status = http.StatusCreated
	case OutcomeNeedsDecision:
		status = http.StatusConflict
	}
	httpx.JSON(w, status, out)
}

var errorStatus = []struct {
	err    error
	status int
}{
	{ErrSessionNotFound, http.StatusNotFound},
	{ErrItemNotFound, http.StatusNotFound},
	{ErrPendingSaleNotFound, http.StatusNotFound},
	{ErrReservationNotFound, http.StatusNotFound},
	{ErrReservationNotBound, http.StatusNotFound},
	{ErrCustomerNotFound, http.StatusNotFound},
	{ErrSubmissionInFlight, http.StatusConflict},
	{ErrPendingSalesLoading, http.StatusConflict},
	{ErrCustomerChanged, http.StatusConflict},
	{ErrReservationAlreadyBound, http.StatusConflict},
	{ErrReservationWithPendingSale, http.StatusConflict},
	{ErrPendingSalesUnavailable, http.StatusServiceUnavailable},
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			httpx.Problem(w, m.status, http.StatusText(m.status), err.Error())
			return
		}
	}
	if errors.Is(err, httpx.ErrValidation) {
		httpx.RespondError(w, err)
		return
	}
	if f, ok := IsFailure(err); ok {
		writeFailure(w, f)
		return
	}
	if isDomainError(err) {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
		return
	}
	// Remaining errors come from the backoffice outside a submission,
	// such as a customer lookup or a pending-sales fetch.
	f := h.classifier.Classify(err)
	h.logger.Warn("checkout request failed",
		slog.String("path", r.URL.Path),
		slog.String("category", string(f.Category)),
		slog.Any("error", err))
	writeFailure(w, f)
}

func writeFailure(w http.ResponseWriter, f *submission.Failure) {
	status := f.HTTPStatus()
	httpx.WriteProblem(w, httpx.ProblemDetail{
		Type:   "about:blank#" + string(f.Category),
		Title:  http.StatusText(status),
		Status: status,
		Detail: f.Message,
		Code:   string(f.Category),
	})
}

var domainErrors = []error{
	ErrPercentOutOfRange, ErrNegativeDiscount, ErrDiscountExceedsPrice, ErrNegativePrice,
	ErrPriceAboveOriginal, ErrUnknownDiscountKind, ErrProductRequired, ErrInvalidQuantity,
	ErrReservationQuantityFixed, ErrUseReservationBinder, ErrCustomerRequired, ErrEmptyCart,
	ErrInvalidLineItem, ErrBelowMinimumQuantity, ErrTotalOutOfBounds, ErrReservationIDRequired,
	ErrPaymentMethodRequired, ErrCurrencyRequired, ErrPaymentMethodNotFound, ErrCurrencyNotFound,
	ErrUnknownPendingAction,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
