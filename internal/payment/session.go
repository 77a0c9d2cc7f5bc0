// Package payment runs a checkout attempt from the first terminal handshake to
// the recorded transaction. A Session holds one checkout; Manager keeps the
// live sessions of the process.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/baharkarakas/tappay-backend/internal/credentials"
	"github.com/baharkarakas/tappay-backend/internal/metrics"
	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/baharkarakas/tappay-backend/internal/terminal"
)

const (
	MsgCredentialLoad     = "Failed to load payment credentials"
	MsgCredentialsMissing = "Payment credentials not loaded"
	MsgConnect            = "Could not connect to payment terminal"
	MsgPaymentFailed      = "Payment failed"
	MsgCBDCDisabled       = "CBDC payments are not enabled for this merchant"

	DefaultNavigateDelay = 3 * time.Second

	auditEntity = "payment_session"
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrBusy          = errors.New("payment in progress")
)

var tracer = otel.Tracer("github.com/baharkarakas/tappay-backend/internal/payment")

// Rail selects the payment network a session charges through.
type Rail string

const (
	RailCard Rail = "card"
	RailCBDC Rail = "cbdc"
)

func (r Rail) Valid() bool { return r == RailCard || r == RailCBDC }

func (r Rail) method() models.PaymentMethod {
	if r == RailCBDC {
		return models.MethodCBDC
	}
	return models.MethodTapToPay
}

type CartItem struct {
	ProductID string          `json:"id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type Params struct {
	MerchantID string
	Amount     decimal.Decimal
	Rail       Rail
	CartItems  []CartItem

	OnSuccess  func(transactionID string)
	OnCancel   func()
	OnNavigate func()
}

// CredentialSource is satisfied by *credentials.Loader.
type CredentialSource interface {
	LoadCredentials(ctx context.Context, merchantID string) (*models.MerchantCredentials, error)
	Reload(ctx context.Context, merchantID string) (*models.MerchantCredentials, error)
}

// Runner executes payment flows off the request goroutine. *worker.Pool
// satisfies it.
type Runner interface {
	Submit(func())
}

type goRunner struct{}

func (goRunner) Submit(f func()) { go f() }

type Deps struct {
	Credentials CredentialSource
	Connector   terminal.Connector
	Sequencer   *Sequencer
	Runner      Runner
	Notifier    Notifier
	Audit       repository.AuditLogs
	Log         *slog.Logger

	PaymentTimeout time.Duration
	NavigateDelay  time.Duration
	// Currency is the ISO 4217 code sent with every charge.
	Currency string
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	Status        Status   `json:"status"`
	ErrorMessage  string   `json:"errorMessage,omitempty"`
	IsInitialized bool     `json:"isInitialized"`
	TransactionID string   `json:"transactionId,omitempty"`
	Notice        *Notice  `json:"notice,omitempty"`
	Navigated     bool     `json:"navigated"`
	Rail          Rail     `json:"rail"`
	Amount        string   `json:"amount"`
	Settings      Settings `json:"settings"`
}

// Settings is the subset of merchant settings a client may see.
type Settings struct {
	BridgeMode  bool `json:"bridgeMode"`
	CBDCEnabled bool `json:"cbdcEnabled"`
}

type Session struct {
	id     string
	params Params
	deps   Deps
	log    *slog.Logger

	mu         sync.Mutex
	status     Status
	errMsg     string
	creds      *models.MerchantCredentials
	settings   credentials.Settings
	initFailed bool
	attempt    uint64
	abort      context.CancelFunc
	txnID      string
	notice     *Notice
	navigated  bool
	navTimer   *time.Timer
	closed     bool
	updatedAt  time.Time
	baseCtx    context.Context
	closeBase  context.CancelFunc
}

func NewSession(p Params, d Deps) (*Session, error) {
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if p.Rail == "" {
		p.Rail = RailCard
	}
	if d.Runner == nil {
		d.Runner = goRunner{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.NavigateDelay <= 0 {
		d.NavigateDelay = DefaultNavigateDelay
	}
	if d.PaymentTimeout <= 0 {
		d.PaymentTimeout = terminal.DefaultTimeout
	}
	if d.Currency == "" {
		d.Currency = terminal.DefaultCurrency
	}
	p.CartItems = append([]CartItem(nil), p.CartItems...)

	id := uuid.NewString()
	base, closeBase := context.WithCancel(context.Background())
	return &Session{
		id:        id,
		params:    p,
		deps:      d,
		log:       d.Log.With("session_id", id, "merchant_id", p.MerchantID),
		status:    StatusIdle,
		updatedAt: time.Now(),
		baseCtx:   base,
		closeBase: closeBase,
	}, nil
}

func (s *Session) ID() string         { return s.id }
func (s *Session) MerchantID() string { return s.params.MerchantID }

// Init loads the merchant credentials and settings. A failure leaves the
// session failed until Reload succeeds.
func (s *Session) Init(ctx context.Context) error {
	creds, err := s.deps.Credentials.LoadCredentials(ctx, s.params.MerchantID)
	s.applyCredentials(creds, err)
	return err
}

// Reload re-reads credentials. It is refused while an attempt is running.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	busy := s.status.Busy()
	s.mu.Unlock()
	if busy {
		return ErrBusy
	}
	creds, err := s.deps.Credentials.Reload(ctx, s.params.MerchantID)
	s.applyCredentials(creds, err)
	return err
}

func (s *Session) applyCredentials(creds *models.MerchantCredentials, err error) {
	s.mu.Lock()
	if err != nil {
		s.log.Error("credential load failed", "err", err)
		var n *Notice
		if s.status == StatusIdle || s.initFailed {
			s.creds = nil
			s.initFailed = true
			s.status = StatusFailed
			s.errMsg = MsgCredentialLoad
			n = errorNotice(MsgCredentialLoad)
			s.notice = n
			s.touch()
		}
		s.mu.Unlock()
		if n != nil {
			s.deps.Notifier.Notify(s.id, *n)
		}
		return
	}
	s.creds = creds
	s.settings = credentials.SettingsOf(creds)
	if s.initFailed && s.status == StatusFailed {
		s.status = StatusIdle
		s.errMsg = ""
		s.notice = nil
	}
	s.initFailed = false
	s.touch()
	s.mu.Unlock()
}

// StartPayment begins an attempt. It does nothing unless the session is idle.
func (s *Session) StartPayment() bool {
	s.mu.Lock()
	if s.closed || s.status != StatusIdle {
		s.mu.Unlock()
		return false
	}
	run := s.beginAttempt()
	s.mu.Unlock()

	s.audit("started", nil)
	s.deps.Runner.Submit(run)
	return true
}

// Retry starts a fresh attempt from failed or cancelled.
func (s *Session) Retry() bool {
	s.mu.Lock()
	if s.closed || s.creds == nil || (s.status != StatusFailed && s.status != StatusCancelled) {
		s.mu.Unlock()
		return false
	}
	s.status = StatusIdle
	s.mu.Unlock()
	return s.StartPayment()
}

// HandleCancel cancels an attempt that has not been approved yet. On a
// failed, cancelled or idle session it is the back action and only runs
// OnCancel.
func (s *Session) HandleCancel() {
	s.mu.Lock()
	switch s.status {
	case StatusConnecting, StatusWaiting:
		s.status = StatusCancelled
		s.errMsg = ""
		s.touch()
		abort := s.abort
		s.abort = nil
		s.mu.Unlock()

		s.deps.Connector.CancelPayment()
		if abort != nil {
			abort()
		}
		metrics.PaymentSessions.WithLabelValues(string(StatusCancelled)).Inc()
		s.audit("cancelled", nil)
		s.log.Info("payment cancelled")
	case StatusFailed, StatusCancelled, StatusIdle:
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		return
	}
	if s.params.OnCancel != nil {
		s.params.OnCancel()
	}
}

func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Status:        s.status,
		ErrorMessage:  s.errMsg,
		IsInitialized: s.creds != nil,
		TransactionID: s.txnID,
		Navigated:     s.navigated,
		Rail:          s.params.Rail,
		Amount:        s.params.Amount.StringFixed(2),
		Settings:      Settings{BridgeMode: s.settings.BridgeMode, CBDCEnabled: s.settings.CBDCEnabled},
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	return snap
}

// Close tears the session down: the navigation timer is stopped and an
// unapproved attempt is cancelled. Persistence already under way finishes.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.navTimer != nil {
		s.navTimer.Stop()
	}
	pending := s.status == StatusConnecting || s.status == StatusWaiting
	if pending {
		s.status = StatusCancelled
		s.abort = nil
	}
	s.mu.Unlock()

	if pending {
		s.deps.Connector.CancelPayment()
	}
	s.closeBase()
}

func (s *Session) idleSince() (Status, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.updatedAt
}

// beginAttempt must be called with s.mu held.
func (s *Session) beginAttempt() func() {
	s.attempt++
	attempt := s.attempt
	s.status = StatusConnecting
	s.errMsg = ""
	s.txnID = ""
	s.notice = nil
	s.navigated = false
	s.touch()

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.abort = cancel
	creds := s.creds
	settings := s.settings
	return func() {
		defer cancel()
		s.run(ctx, attempt, creds, settings)
	}
}

func (s *Session) run(ctx context.Context, attempt uint64, creds *models.MerchantCredentials, settings credentials.Settings) {
	ctx, span := tracer.Start(ctx, "payment.attempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.session_id", s.id),
		attribute.String("payment.merchant_id", s.params.MerchantID),
		attribute.String("payment.rail", string(s.params.Rail)),
	)

	if creds == nil {
		s.fail(attempt, StatusConnecting, MsgCredentialsMissing)
		return
	}
	if s.params.Rail == RailCBDC && !settings.CBDCEnabled {
		s.fail(attempt, StatusConnecting, MsgCBDCDisabled)
		return
	}

	if !s.deps.Connector.Connect(ctx) {
		span.SetStatus(codes.Error, "connect failed")
		s.fail(attempt, StatusConnecting, MsgConnect)
		return
	}
	if !s.advance(attempt, StatusConnecting, StatusWaiting) {
		return
	}

	res := s.deps.Connector.ProcessPayment(ctx, terminal.Request{
		Amount:    s.params.Amount,
		Currency:  s.deps.Currency,
		UseBridge: settings.BridgeMode,
		Timeout:   s.deps.PaymentTimeout,
		Reference: s.id,
	})

	switch r := res.(type) {
	case terminal.Approved:
		span.SetAttributes(attribute.String("payment.reference", r.TransactionID))
		if !s.advance(attempt, StatusWaiting, StatusProcessing) {
			// The tap went through after the user gave up on it.
			s.log.Warn("approval arrived after cancellation", "reference", r.TransactionID)
			s.audit("approved_after_cancel", map[string]any{"reference": r.TransactionID})
			return
		}
		s.persist(ctx, attempt, r.TransactionID)
	case terminal.Declined:
		span.SetStatus(codes.Error, r.Reason)
		msg := r.Reason
		if msg == "" {
			msg = MsgPaymentFailed
		}
		s.fail(attempt, StatusWaiting, msg)
	default:
		s.fail(attempt, StatusWaiting, MsgPaymentFailed)
	}
}

func (s *Session) persist(ctx context.Context, attempt uint64, reference string) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "payment.persist")
	defer span.End()

	_, err := s.deps.Sequencer.Persist(ctx, Order{
		SessionID:  s.id,
		MerchantID: s.params.MerchantID,
		Amount:     s.params.Amount,
		Method:     s.params.Rail.method(),
		Reference:  reference,
		Items:      s.params.CartItems,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.fail(attempt, StatusProcessing, err.Error())
		return
	}
	s.succeed(attempt, reference)
}

// advance moves from one status to the next if the attempt is still current.
func (s *Session) advance(attempt uint64, from, to Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt != attempt || s.status != from || !canTransition(from, to) {
		return false
	}
	s.status = to
	s.touch()
	return true
}

func (s *Session) fail(attempt uint64, from Status, msg string) {
	s.mu.Lock()
	if s.attempt != attempt || s.status != from {
		s.mu.Unlock()
		return
	}
	s.status = StatusFailed
	s.errMsg = msg
	n := errorNotice(msg)
	s.notice = n
	s.abort = nil
	s.touch()
	s.mu.Unlock()

	s.log.Warn("payment failed", "stage", string(from), "reason", msg)
	metrics.PaymentSessions.WithLabelValues(string(StatusFailed)).Inc()
	s.audit("failed", map[string]any{"stage": string(from), "reason": msg})
	s.deps.Notifier.Notify(s.id, *n)
}

func (s *Session) succeed(attempt uint64, reference string) {
	s.mu.Lock()
	if s.attempt != attempt || s.status != StatusProcessing {
		s.mu.Unlock()
		return
	}
	s.status = StatusSuccess
	s.txnID = reference
	n := successNotice(s.params.Amount)
	s.notice = n
	s.abort = nil
	if !s.closed {
		s.navTimer = time.AfterFunc(s.deps.NavigateDelay, s.navigate)
	}
	s.touch()
	s.mu.Unlock()

	s.log.Info("payment recorded", "reference", reference, "amount", s.params.Amount.String())
	metrics.PaymentSessions.WithLabelValues(string(StatusSuccess)).Inc()
	s.audit("succeeded", map[string]any{"reference": reference})
	s.deps.Notifier.Notify(s.id, *n)
	if s.params.OnSuccess != nil {
		s.params.OnSuccess(reference)
	}
}

func (s *Session) navigate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.navigated = true
	s.touch()
	s.mu.Unlock()
	if s.params.OnNavigate != nil {
		s.params.OnNavigate()
	}
}

// touch must be called with s.mu held.
func (s *Session) touch() { s.updatedAt = time.Now() }

func (s *Session) audit(action string, details map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	if details == nil {
		details = map[string]any{}
	}
	details["merchant_id"] = s.params.MerchantID
	details["amount"] = s.params.Amount.String()
	id := s.id
	err := s.deps.Audit.Create(context.Background(), models.AuditLog{
		EntityType: auditEntity,
		EntityID:   &id,
		Action:     action,
		Details:    details,
	})
	if err != nil {
		s.log.Warn("audit log write failed", "action", action, "err", err)
	}
}
