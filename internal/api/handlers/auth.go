package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/baharkarakas/tappay-backend/internal/api/httpx"
	"github.com/baharkarakas/tappay-backend/internal/auth"
	"github.com/baharkarakas/tappay-backend/internal/services"
)

type AuthHandler struct {
	Svc *services.MerchantAuthService
}

func NewAuthHandler(svc *services.MerchantAuthService) *AuthHandler {
	return &AuthHandler{Svc: svc}
}

type tokenReq struct {
	MerchantID string `json:"merchantId"`
	APIKey     string `json:"apiKey"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

func writePair(w http.ResponseWriter, p auth.Pair) {
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken:  p.Access,
		RefreshToken: p.Refresh,
		ExpiresIn:    int64(time.Until(p.AccessExp).Seconds()),
	})
}

// Token issues a merchant token pair for a valid API key.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json body", nil)
		return
	}
	pair, err := h.Svc.Login(r.Context(), req.MerchantID, req.APIKey)
	if errors.Is(err, services.ErrInvalidCredentials) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid merchant credentials", nil)
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	writePair(w, pair)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request", nil)
		return
	}
	pair, err := h.Svc.Refresh(req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	writePair(w, pair)
}
