package withdrawal

import "strings"

// State is the derived lifecycle state, computed from the timestamp
// columns and the raw status. It is what callers and the projector see.
type State string

const (
	StateRequested       State = "requested"
	StateSent            State = "sent"
	StateConfirmed       State = "confirmed"
	StateFailed          State = "failed"
	StateRefundRequested State = "refund_requested"
	StateRefundApproved  State = "refund_approved"
	StateRefundRejected  State = "refund_rejected"
)

// DeriveState is the single authority for a withdrawal's lifecycle state.
// The precedence is load-bearing: each check is unreachable once an
// earlier one matched, so reordering changes behavior.
//
//  1. refund statuses win outright
//  2. failed_date
//  3. confirmed_date
//  4. sent_date without a terminal date
//  5. request_date without sent_date
//  6. fallback: lowercased raw status
func DeriveState(w *Withdrawal) State {
	switch w.Status {
	case StatusRefundRequested:
		return StateRefundRequested
	case StatusRefundApproved:
		return StateRefundApproved
	case StatusRefundRejected:
		return StateRefundRejected
	}
	if w.FailedDate != nil {
		return StateFailed
	}
	if w.ConfirmedDate != nil {
		return StateConfirmed
	}
	if w.SentDate != nil {
		return StateSent
	}
	if w.RequestDate != nil {
		return StateRequested
	}
	return State(strings.ToLower(string(w.Status)))
}
