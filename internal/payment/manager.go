package payment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/tappay-backend/internal/metrics"
	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/baharkarakas/tappay-backend/internal/terminal"
)

var ErrSessionNotFound = errors.New("payment session not found")

// ConnectorFactory builds the terminal connector for one session.
type ConnectorFactory func(rail Rail, merchantID string) terminal.Connector

// GatewayConnectors routes card payments through Fasstap and CBDC payments
// through Lynk.
func GatewayConnectors(fasstap, lynk terminal.Forwarder, log *slog.Logger) ConnectorFactory {
	return func(rail Rail, merchantID string) terminal.Connector {
		if rail == RailCBDC {
			return terminal.NewLynk(lynk, merchantID, log)
		}
		return terminal.NewFasstap(fasstap, merchantID, log)
	}
}

// SimulatedConnectors approves every payment after delay.
func SimulatedConnectors(delay time.Duration) ConnectorFactory {
	return func(Rail, string) terminal.Connector {
		return &terminal.Simulator{Delay: delay}
	}
}

type ManagerConfig struct {
	Credentials CredentialSource
	Connectors  ConnectorFactory
	Sequencer   *Sequencer
	Runner      Runner
	Notifier    Notifier
	Audit       repository.AuditLogs
	Log         *slog.Logger

	PaymentTimeout time.Duration
	NavigateDelay  time.Duration
	Currency       string
	// TTL is how long a session may sit in idle or a terminal status before
	// Sweep drops it.
	TTL time.Duration
}

type Manager struct {
	cfg ManagerConfig
	log *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Log: cfg.Log}
	}
	return &Manager{cfg: cfg, log: cfg.Log, sessions: map[string]*Session{}}
}

type CreateRequest struct {
	MerchantID string
	Amount     decimal.Decimal
	Rail       Rail
	CartItems  []CartItem
}

// Create opens a session and loads its credentials. A credential failure
// does not fail the call; the session is returned in the failed state.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	s, err := NewSession(Params{
		MerchantID: req.MerchantID,
		Amount:     req.Amount,
		Rail:       req.Rail,
		CartItems:  req.CartItems,
	}, Deps{
		Credentials:    m.cfg.Credentials,
		Connector:      m.cfg.Connectors(req.Rail, req.MerchantID),
		Sequencer:      m.cfg.Sequencer,
		Runner:         m.cfg.Runner,
		Notifier:       m.cfg.Notifier,
		Audit:          m.cfg.Audit,
		Log:            m.log,
		PaymentTimeout: m.cfg.PaymentTimeout,
		NavigateDelay:  m.cfg.NavigateDelay,
		Currency:       m.cfg.Currency,
	})
	if err != nil {
		return nil, err
	}
	_ = s.Init(ctx)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return s, nil
}

// Get returns the session only to the merchant that owns it.
func (m *Manager) Get(merchantID, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || s.MerchantID() != merchantID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Remove(merchantID, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.MerchantID() != merchantID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	s.Close()
	metrics.ActiveSessions.Set(float64(n))
	return nil
}

// Sweep closes sessions that have been idle or finished for longer than the
// TTL and returns how many it dropped.
func (m *Manager) Sweep(now time.Time) int {
	if m.cfg.TTL <= 0 {
		return 0
	}
	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		st, at := s.idleSince()
		if st.Busy() || now.Sub(at) < m.cfg.TTL {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	metrics.ActiveSessions.Set(float64(n))
	if len(stale) > 0 {
		m.log.Debug("payment sessions evicted", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.Sweep(now)
		}
	}
}

// CloseAll closes every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
	metrics.ActiveSessions.Set(0)
}
