// Package credentials loads per-merchant gateway credentials and the feature
// toggles derived from them.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/baharkarakas/tappay-backend/internal/secrets"
)

var (
	// ErrCredentialLoad wraps every failure of LoadCredentials/LoadSettings.
	ErrCredentialLoad = errors.New("failed to load payment credentials")
	// ErrNotFound means the merchant has no credentials row.
	ErrNotFound = errors.New("credentials not found")
)

type Settings struct {
	Environment    models.GatewayEnv `json:"environment"`
	BridgeMode     bool              `json:"bridge_mode"`
	FasstapEnabled bool              `json:"fasstap_enabled"`
	LynkEnabled    bool              `json:"lynk_enabled"`
	CBDCEnabled    bool              `json:"cbdc_enabled"`
}

func SettingsOf(c *models.MerchantCredentials) Settings {
	return Settings{
		Environment:    c.Environment,
		BridgeMode:     c.BridgeMode,
		FasstapEnabled: c.FasstapEnabled,
		LynkEnabled:    c.LynkEnabled,
		CBDCEnabled:    c.CBDCEnabled,
	}
}

type cached struct {
	creds    models.MerchantCredentials
	loadedAt time.Time
}

// Loader reads credentials from the store and opens sealed secrets. With a
// positive ttl results are cached per merchant until they expire or Reload
// is called.
type Loader struct {
	store repository.Credentials
	box   *secrets.Box
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

func NewLoader(store repository.Credentials, box *secrets.Box, ttl time.Duration) *Loader {
	if box == nil {
		box, _ = secrets.NewBox("")
	}
	return &Loader{store: store, box: box, ttl: ttl, now: time.Now, cache: map[string]cached{}}
}

func (l *Loader) LoadCredentials(ctx context.Context, merchantID string) (*models.MerchantCredentials, error) {
	if merchantID == "" {
		return nil, fmt.Errorf("%w: merchant id is empty", ErrCredentialLoad)
	}
	if c, ok := l.fromCache(merchantID); ok {
		return &c, nil
	}

	c, err := l.store.GetByMerchant(ctx, merchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrCredentialLoad, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialLoad, err)
	}
	if err := l.open(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialLoad, err)
	}

	if l.ttl > 0 {
		l.mu.Lock()
		l.cache[merchantID] = cached{creds: c, loadedAt: l.now()}
		l.mu.Unlock()
	}
	return &c, nil
}

func (l *Loader) LoadSettings(ctx context.Context, merchantID string) (Settings, error) {
	c, err := l.LoadCredentials(ctx, merchantID)
	if err != nil {
		return Settings{}, err
	}
	return SettingsOf(c), nil
}

// Reload discards any cached copy and reads the store again.
func (l *Loader) Reload(ctx context.Context, merchantID string) (*models.MerchantCredentials, error) {
	l.mu.Lock()
	delete(l.cache, merchantID)
	l.mu.Unlock()
	return l.LoadCredentials(ctx, merchantID)
}

func (l *Loader) fromCache(merchantID string) (models.MerchantCredentials, bool) {
	if l.ttl <= 0 {
		return models.MerchantCredentials{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cache[merchantID]
	if !ok || l.now().Sub(c.loadedAt) > l.ttl {
		delete(l.cache, merchantID)
		return models.MerchantCredentials{}, false
	}
	return c.creds, true
}

func (l *Loader) open(c *models.MerchantCredentials) error {
	for _, f := range []*string{&c.FasstapPassword, &c.LynkClientSecret} {
		v, err := l.box.Open(*f)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}
