package services

import (
	"context"
	"errors"

	"github.com/baharkarakas/tappay-backend/internal/auth"
	repo "github.com/baharkarakas/tappay-backend/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid merchant credentials")

// MerchantAuthService exchanges a merchant API key for a token pair.
type MerchantAuthService struct {
	creds repo.Credentials
	tm    *auth.TokenManager
	env   string
}

func NewMerchantAuthService(c repo.Credentials, tm *auth.TokenManager, env string) *MerchantAuthService {
	return &MerchantAuthService{creds: c, tm: tm, env: env}
}

// Login checks apiKey against the stored hash. In dev a merchant without a
// hash may log in with any key.
func (s *MerchantAuthService) Login(ctx context.Context, merchantID, apiKey string) (auth.Pair, error) {
	if merchantID == "" {
		return auth.Pair{}, ErrInvalidCredentials
	}
	c, err := s.creds.GetByMerchant(ctx, merchantID)
	if errors.Is(err, repo.ErrNotFound) {
		return auth.Pair{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.Pair{}, err
	}

	switch {
	case c.APIKeyHash == "" && s.env == "dev":
	case c.APIKeyHash == "":
		return auth.Pair{}, ErrInvalidCredentials
	default:
		if err := auth.VerifyAPIKey(apiKey, c.APIKeyHash); err != nil {
			return auth.Pair{}, ErrInvalidCredentials
		}
	}
	return s.tm.GeneratePair(merchantID, auth.RoleMerchant)
}

func (s *MerchantAuthService) Refresh(refreshToken string) (auth.Pair, error) {
	claims, err := s.tm.ParseRefresh(refreshToken)
	if err != nil {
		return auth.Pair{}, err
	}
	return s.tm.GeneratePair(claims.MerchantID, claims.Role)
}
