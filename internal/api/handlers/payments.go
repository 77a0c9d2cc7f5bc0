package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/tappay-backend/internal/api/httpx"
	"github.com/baharkarakas/tappay-backend/internal/api/validate"
	"github.com/baharkarakas/tappay-backend/internal/middleware"
	"github.com/baharkarakas/tappay-backend/internal/payment"
)

type PaymentHandler struct {
	Sessions *payment.Manager
	Log      *slog.Logger
}

func NewPaymentHandler(m *payment.Manager, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{Sessions: m, Log: log}
}

type createSessionReq struct {
	Amount    decimal.Decimal    `json:"amount"`
	Rail      string             `json:"rail,omitempty"`
	CartItems []payment.CartItem `json:"cartItems"`
}

func (req createSessionReq) validate() error {
	var errs validate.Errs
	errs.Add(validate.Positive("amount", req.Amount))
	if req.Rail != "" {
		errs.Add(validate.OneOf("rail", req.Rail, string(payment.RailCard), string(payment.RailCBDC)))
	}
	for i, it := range req.CartItems {
		prefix := "cartItems[" + strconv.Itoa(i) + "]."
		errs.Add(
			validate.Required(prefix+"id", it.ProductID),
			validate.MinInt(prefix+"quantity", int64(it.Quantity), 1),
			validate.NonNegative(prefix+"price", it.Price),
		)
	}
	return errs.Err()
}

type sessionResp struct {
	ID    string           `json:"id"`
	State payment.Snapshot `json:"state"`
	View  payment.View     `json:"view"`
}

func writeSession(w http.ResponseWriter, status int, s *payment.Session) {
	st := s.State()
	httpx.WriteJSON(w, status, sessionResp{ID: s.ID(), State: st, View: payment.ViewFor(st)})
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body", nil)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "invalid payment session", err)
		return
	}

	s, err := h.Sessions.Create(r.Context(), payment.CreateRequest{
		MerchantID: middleware.MerchantID(r.Context()),
		Amount:     req.Amount,
		Rail:       payment.Rail(req.Rail),
		CartItems:  req.CartItems,
	})
	if err != nil {
		h.Log.Error("create payment session", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not create payment session", nil)
		return
	}
	writeSession(w, http.StatusCreated, s)
}

// session resolves {id} for the calling merchant or writes 404.
func (h *PaymentHandler) session(w http.ResponseWriter, r *http.Request) (*payment.Session, bool) {
	s, err := h.Sessions.Get(middleware.MerchantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "payment session not found", nil)
		return nil, false
	}
	return s, true
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		writeSession(w, http.StatusOK, s)
	}
}

// Start, Retry and Cancel are no-ops outside the statuses that allow them;
// the reply always carries the current state.
func (h *PaymentHandler) Start(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		s.StartPayment()
		writeSession(w, http.StatusOK, s)
	}
}

func (h *PaymentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		s.Retry()
		writeSession(w, http.StatusOK, s)
	}
}

func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		s.HandleCancel()
		writeSession(w, http.StatusOK, s)
	}
}

func (h *PaymentHandler) Reload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Reload(r.Context()); errors.Is(err, payment.ErrBusy) {
		httpx.WriteError(w, http.StatusConflict, "payment_in_progress", "payment in progress", nil)
		return
	}
	writeSession(w, http.StatusOK, s)
}

func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Sessions.Remove(middleware.MerchantID(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, payment.ErrSessionNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "payment session not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
