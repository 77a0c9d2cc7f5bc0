package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/tappay-backend/internal/api/httpx"
	"github.com/baharkarakas/tappay-backend/internal/middleware"
	"github.com/baharkarakas/tappay-backend/internal/services"
)

type TransactionHandler struct {
	Svc *services.TransactionService
}

func NewTransactionHandler(svc *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{Svc: svc}
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := 0, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	txs, err := h.Svc.List(r.Context(), middleware.MerchantID(r.Context()), limit, offset)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not list transactions", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.Svc.Get(r.Context(), middleware.MerchantID(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, services.ErrTransactionNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "transaction not found", nil)
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load transaction", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}
