package payment

// Action names an operator control and the session endpoint behind it.
type Action string

const (
	ActionStart  Action = "start"
	ActionRetry  Action = "retry"
	ActionCancel Action = "cancel"
	ActionBack   Action = "back"
	ActionReload Action = "reload"
)

type View struct {
	Status  Status   `json:"status"`
	Title   string   `json:"title"`
	Message string   `json:"message,omitempty"`
	Spinner bool     `json:"spinner"`
	Actions []Action `json:"actions"`
}

// ViewFor maps a snapshot to what the checkout screen shows.
func ViewFor(s Snapshot) View {
	v := View{Status: s.Status, Actions: []Action{}}
	switch s.Status {
	case StatusIdle:
		v.Title = "Ready to accept payment"
		if s.IsInitialized {
			v.Message = "Amount due " + s.Amount
			v.Actions = []Action{ActionStart}
		} else {
			v.Message = "Loading payment settings"
			v.Spinner = true
		}
	case StatusConnecting:
		v.Title = "Connecting to terminal"
		v.Spinner = true
		v.Actions = []Action{ActionCancel}
	case StatusWaiting:
		v.Title = "Tap card or phone"
		v.Message = "Hold the card near the terminal"
		if s.Rail == RailCBDC {
			v.Title = "Scan to pay"
			v.Message = "Complete the payment in the wallet app"
		}
		v.Spinner = true
		v.Actions = []Action{ActionCancel}
	case StatusProcessing:
		v.Title = "Processing payment"
		v.Spinner = true
	case StatusSuccess:
		v.Title = "Payment successful"
		v.Message = "Transaction " + s.TransactionID
	case StatusFailed:
		v.Title = "Payment failed"
		v.Message = s.ErrorMessage
		v.Actions = []Action{ActionReload, ActionCancel}
		if s.IsInitialized {
			v.Actions = []Action{ActionRetry, ActionCancel}
		}
	case StatusCancelled:
		v.Title = "Payment cancelled"
		v.Actions = []Action{ActionRetry, ActionBack}
	}
	return v
}
