package model

// Status is the coarse result of processing a notification.
type Status string

// Statuses.
const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Reason qualifies skipped and error outcomes.
type Reason string

// Reasons.
const (
	ReasonNone               Reason = ""
	ReasonAlreadyCalculated  Reason = "already_calculated"
	ReasonNotCompleted       Reason = "not_completed"
	ReasonIncompleteData     Reason = "incomplete_data"
	ReasonTransactionSkipped Reason = "transaction_skipped"
	ReasonInvalidData        Reason = "invalid_data"
)

// Outcome is the result of processing one match notification.
type Outcome struct {
	Status  Status `json:"status"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success is the outcome of a committed rating update.
func Success() Outcome { return Outcome{Status: StatusSuccess} }

// Skipped is a no-op outcome.
func Skipped(reason Reason) Outcome { return Outcome{Status: StatusSkipped, Reason: reason} }

// Invalid reports malformed match data.
func Invalid(msg string) Outcome {
	return Outcome{Status: StatusError, Reason: ReasonInvalidData, Message: msg}
}
