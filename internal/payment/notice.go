package payment

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

// Notice is a transient message for the operator, shown as a toast.
type Notice struct {
	Level   string `json:"level"` // error|success
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(sessionID string, n Notice)
}

func errorNotice(msg string) *Notice {
	return &Notice{Level: "error", Title: "Payment failed", Message: msg}
}

func successNotice(amount decimal.Decimal) *Notice {
	return &Notice{Level: "success", Title: "Payment successful", Message: "Charged " + amount.StringFixed(2)}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, Notice) {}

// LogNotifier writes notices to the service log.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) Notify(sessionID string, n Notice) {
	l.Log.Info("payment notice", "session_id", sessionID, "level", n.Level, "title", n.Title, "message", n.Message)
}
