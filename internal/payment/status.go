package payment

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusWaiting    Status = "waiting"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the allowed moves out of each status. Returning to idle
// from failed or cancelled is only done by Retry and Reload.
var transitions = map[Status][]Status{
	StatusIdle:       {StatusConnecting, StatusFailed},
	StatusConnecting: {StatusWaiting, StatusFailed, StatusCancelled},
	StatusWaiting:    {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusSuccess, StatusFailed},
	StatusSuccess:    {},
	StatusFailed:     {StatusIdle},
	StatusCancelled:  {StatusIdle},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further progress happens without user action.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// Busy reports whether an asynchronous step is outstanding.
func (s Status) Busy() bool {
	return s == StatusConnecting || s == StatusWaiting || s == StatusProcessing
}
