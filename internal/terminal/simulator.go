package terminal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Simulator stands in for hardware in development. It approves every tap
// after Delay unless DeclineReason or FailConnect is set.
type Simulator struct {
	Delay         time.Duration
	DeclineReason string
	FailConnect   bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *Simulator) Connect(ctx context.Context) bool {
	return !s.FailConnect && ctx.Err() == nil
}

func (s *Simulator) ProcessPayment(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, req.timeout())
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Declined{Reason: reasonTimeout}
		}
		return Declined{Reason: reasonCancelled}
	case <-t.C:
	}
	if s.DeclineReason != "" {
		return Declined{Reason: s.DeclineReason}
	}
	return Approved{TransactionID: "sim-" + uuid.NewString()}
}

func (s *Simulator) CancelPayment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
