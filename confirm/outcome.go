package confirm

// OutcomeStatus is the terminal result class of a confirmation attempt.
type OutcomeStatus string

const (
	StatusCompleted OutcomeStatus = "completed"
	StatusCanceled  OutcomeStatus = "canceled"
	StatusFailed    OutcomeStatus = "failed"
)

// Outcome is the terminal result of one confirmation attempt. It is handed
// to the caller exactly once; user cancellation is a first-class outcome,
// not an error.
type Outcome struct {
	Status OutcomeStatus
	Err    error
}

// Completed returns a successful outcome.
func Completed() Outcome {
	return Outcome{Status: StatusCompleted}
}

// Canceled returns a customer-cancellation outcome.
func Canceled() Outcome {
	return Outcome{Status: StatusCanceled}
}

// Failed returns a failed outcome carrying the terminal error.
func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}
