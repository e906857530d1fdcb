package checkout

type Status string

const (
	StatusInitiated      Status = "INITIATED"
	StatusPaymentPending Status = "PAYMENT_PENDING"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
	StatusFailed         Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// String representation (for logging)
func (s Status) String() string {
	return string(s)
}

var transitions = map[Status][]Status{
	StatusInitiated:      {StatusPaymentPending, StatusFailed},
	StatusPaymentPending: {StatusCompleted, StatusCancelled, StatusFailed},
}

// CanTransitionTo reports whether a session in status from may move to to.
// Terminal statuses never transition.
func CanTransitionTo(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
