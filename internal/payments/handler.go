package payments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/submission"
)

// Handler serves payment forms over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes expects to be mounted under a /payments prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{orderID}/forms", h.OpenForm)
	r.Route("/forms/{formID}", func(r chi.Router) {
		r.Get("/", h.ShowForm)
		r.Patch("/", h.UpdateForm)
		r.Delete("/", h.CloseForm)
		r.Post("/submit", h.Submit)
	})
}

type updateRequest struct {
	AmountReceived *string `json:"amount_received" validate:"omitempty,max=32"`
	AmountToApply  *string `json:"amount_to_apply" validate:"omitempty,max=32"`
	ResetApply     bool    `json:"reset_apply"`
	RegisterID     *string `json:"register_id" validate:"omitempty,max=64"`
	Notes          *string `json:"notes" validate:"omitempty,max=500"`
}

// OpenForm starts a payment form for an order.
func (h *Handler) OpenForm(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Open(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

// ShowForm renders a form.
func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(chi.URLParam(r, "formID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

// UpdateForm applies field edits.
func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.Bind(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	view, err := h.service.Update(chi.URLParam(r, "formID"), Update{
		AmountReceived: req.AmountReceived,
		AmountToApply:  req.AmountToApply,
		ResetApply:     req.ResetApply,
		RegisterID:     req.RegisterID,
		Notes:          req.Notes,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

// CloseForm discards a form.
func (h *Handler) CloseForm(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(chi.URLParam(r, "formID")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit registers the payment.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Submit(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

var fieldErrors = map[error]string{
	ErrReceivedRequired:     "amount_received_required",
	ErrReceivedNotNumeric:   "amount_received_not_numeric",
	ErrReceivedNotPositive:  "amount_received_not_positive",
	ErrApplyRequired:        "amount_to_apply_required",
	ErrApplyNotNumeric:      "amount_to_apply_not_numeric",
	ErrApplyNotPositive:     "amount_to_apply_not_positive",
	ErrApplyExceedsReceived: "amount_to_apply_exceeds_received",
	ErrApplyExceedsBalance:  "amount_to_apply_exceeds_balance",
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrFormNotFound):
		httpx.RespondError(w, httpx.WithStatus(err, http.StatusNotFound, "not_found"))
		return
	case errors.Is(err, backoffice.ErrNotFound):
		httpx.RespondError(w, httpx.WithStatus(err, http.StatusNotFound, "order_not_found"))
		return
	case errors.Is(err, ErrOrderIDRequired):
		httpx.RespondError(w, httpx.WithStatus(err, http.StatusBadRequest, "order_id_required"))
		return
	case errors.Is(err, ErrPaymentInFlight):
		httpx.RespondError(w, httpx.WithStatus(err, http.StatusConflict, "in_flight"))
		return
	case errors.Is(err, ErrOrderSettled):
		httpx.RespondError(w, httpx.WithStatus(err, http.StatusConflict, "order_settled"))
		return
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
		return
	}
	for target, code := range fieldErrors {
		if errors.Is(err, target) {
			httpx.RespondError(w, httpx.WithStatus(err, http.StatusUnprocessableEntity, code))
			return
		}
	}
	var f *submission.Failure
	if !errors.As(err, &f) {
		f = h.service.classifier.Classify(err)
	}
	h.logger.Warn("payment request failed",
		slog.String("path", r.URL.Path),
		slog.String("category", string(f.Category)),
		slog.Any("error", err))
	httpx.RespondError(w, httpx.WithStatus(f, f.HTTPStatus(), string(f.Category)))
}
