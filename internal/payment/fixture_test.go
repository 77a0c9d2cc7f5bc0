package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/tappay-backend/internal/credentials"
	"github.com/baharkarakas/tappay-backend/internal/logger"
	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/baharkarakas/tappay-backend/internal/repository/memory"
	"github.com/baharkarakas/tappay-backend/internal/terminal"
)

const merchantID = "m-1"

type fakeConnector struct {
	mu          sync.Mutex
	connectOK   bool
	result      terminal.Result
	connectGate chan struct{}
	release     chan struct{}
	ignoreCtx   bool

	connectCalls int
	payCalls     int
	cancelCalls  int
	lastReq      terminal.Request
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{connectOK: true, result: terminal.Approved{TransactionID: "tx-abc"}}
}

func (f *fakeConnector) setResult(r terminal.Result) {
	f.mu.Lock()
	f.result = r
	f.mu.Unlock()
}

func (f *fakeConnector) Connect(ctx context.Context) bool {
	f.mu.Lock()
	f.connectCalls++
	gate, ok := f.connectGate, f.connectOK
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false
		}
	}
	return ok
}

func (f *fakeConnector) ProcessPayment(ctx context.Context, req terminal.Request) terminal.Result {
	f.mu.Lock()
	f.payCalls++
	f.lastReq = req
	release, ignore := f.release, f.ignoreCtx
	f.mu.Unlock()
	if release != nil {
		if ignore {
			<-release
		} else {
			select {
			case <-release:
			case <-ctx.Done():
				return terminal.Declined{Reason: "Payment cancelled"}
			}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

func (f *fakeConnector) CancelPayment() {
	f.mu.Lock()
	f.cancelCalls++
	f.mu.Unlock()
}

func (f *fakeConnector) counts() (connect, pay, cancel int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls, f.payCalls, f.cancelCalls
}

type recorder struct {
	mu          sync.Mutex
	successes   []string
	cancels     int
	navigations int
	notices     []Notice
}

func (r *recorder) Notify(_ string, n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) params(p Params) Params {
	p.OnSuccess = func(id string) {
		r.mu.Lock()
		r.successes = append(r.successes, id)
		r.mu.Unlock()
	}
	p.OnCancel = func() {
		r.mu.Lock()
		r.cancels++
		r.mu.Unlock()
	}
	p.OnNavigate = func() {
		r.mu.Lock()
		r.navigations++
		r.mu.Unlock()
	}
	return p
}

func (r *recorder) snapshot() (successes []string, cancels, navigations int, notices []Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...), r.cancels, r.navigations, append([]Notice(nil), r.notices...)
}

type fixture struct {
	store *memory.Store
	repos repository.Repositories
	conn  *fakeConnector
	rec   *recorder
}

func newFixture() *fixture {
	store := memory.NewStore()
	store.PutCredentials(models.MerchantCredentials{
		MerchantID:      merchantID,
		Environment:     models.EnvSandbox,
		FasstapEnabled:  true,
		FasstapUsername: "user",
		FasstapPassword: "pass",
		BridgeMode:      true,
	})
	store.PutProduct(models.Product{ID: "p-1", MerchantID: merchantID, Name: "Coffee", Stock: 5})
	store.PutProduct(models.Product{ID: "p-2", MerchantID: merchantID, Name: "Bagel", Stock: 1})
	return &fixture{store: store, repos: store.Repositories(), conn: newFakeConnector(), rec: &recorder{}}
}

func (f *fixture) deps() Deps {
	return Deps{
		Credentials:   credentials.NewLoader(f.repos.Credentials, nil, 0),
		Connector:     f.conn,
		Sequencer:     NewSequencer(f.repos, false, logger.Discard()),
		Notifier:      f.rec,
		Audit:         f.repos.AuditLogs,
		Log:           logger.Discard(),
		NavigateDelay: 20 * time.Millisecond,
	}
}

func (f *fixture) session(t *testing.T, p Params, mutate ...func(*Deps)) *Session {
	t.Helper()
	if p.MerchantID == "" {
		p.MerchantID = merchantID
	}
	if p.Amount.IsZero() {
		p.Amount = decimal.RequireFromString("25.00")
	}
	d := f.deps()
	for _, m := range mutate {
		m(&d)
	}
	s, err := NewSession(f.rec.params(p), d)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func (f *fixture) auditActions() []string {
	var out []string
	for _, l := range f.store.AuditLogs() {
		out = append(out, l.Action)
	}
	return out
}

func waitStatus(t *testing.T, s *Session, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State().Status == want },
		time.Second, 5*time.Millisecond, "status never reached %s", want)
}

var errBoom = errors.New("boom")

type failingTransactions struct{ repository.Transactions }

func (failingTransactions) Create(context.Context, models.Transaction) (models.Transaction, error) {
	return models.Transaction{}, errBoom
}

type failingItems struct{ repository.TransactionItems }

func (failingItems) CreateBatch(context.Context, []models.TransactionItem) error { return errBoom }

type failingProduct struct {
	repository.Products
	id string
}

func (f failingProduct) GetStock(ctx context.Context, id string) (int, error) {
	if id == f.id {
		return 0, errBoom
	}
	return f.Products.GetStock(ctx, id)
}
