// Package scheduler is the decision core of the spot scheduler: it
// admits candidate ad spots against a deal's capacity and drives the
// spot lifecycle state machine.  Expected admission outcomes (window,
// capacity, daily cap rejections) are returned as typed Decision
// results that callers branch on; only exceptional conditions are Go
// errors.
package scheduler

import (
	"errors"

	"github.com/iliyamo/tv-spot-scheduler/internal/model"
)

// ErrNotFound is returned when the referenced deal or spot does not
// exist.  Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned for illegal state machine moves,
// such as confirming an already failed spot.  The spot's state is left
// untouched; silent acceptance would corrupt the audit trail.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrConcurrencyConflict is returned when an admission transaction
// could not be serialized after the bounded retry budget.  The caller
// may retry the whole request.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrTxConflict marks a retryable transaction conflict (deadlock or
// lock wait timeout).  The repository maps driver errors onto it; the
// scheduler retries and never lets it escape to callers.
var ErrTxConflict = errors.New("transaction conflict")

// ErrValidation is returned for requests that are malformed regardless
// of deal state, such as a zero duration or airing count.
var ErrValidation = errors.New("invalid request")

// RejectReason identifies which admission check a candidate failed.
type RejectReason string

const (
	RejectOutsideContractWindow RejectReason = "OUTSIDE_CONTRACT_WINDOW"
	RejectInsufficientCapacity  RejectReason = "INSUFFICIENT_CAPACITY"
	RejectDailyCapExceeded      RejectReason = "DAILY_CAP_EXCEEDED"
)

// Decision is the outcome of an admission attempt.  Admitted carries
// the persisted pending spot; a rejection carries the first failing
// check and a specific, actionable message for the operator.
// Rejections are normal outcomes, not errors.
type Decision struct {
	Admitted bool
	Spot     *model.AdSpot
	Reason   RejectReason
	Message  string
}

func rejected(reason RejectReason, message string) *Decision {
	return &Decision{Reason: reason, Message: message}
}

func admitted(spot *model.AdSpot) *Decision {
	return &Decision{Admitted: true, Spot: spot}
}
