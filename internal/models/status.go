package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a proposal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// ErrIllegalTransition is returned when a status change is attempted from a
// terminal state or to a state the machine does not allow.
var ErrIllegalTransition = errors.New("illegal status transition")

// transitions is the full state table. pending is the only state with
// outgoing edges; accepted, rejected and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusAccepted, StatusRejected, StatusCancelled},
}

// ParseStatus converts untrusted input into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q, must be one of: pending, accepted, rejected, cancelled", s)
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the machine allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StatusChange is the event emitted by a successful transition. The cache
// layer and the transaction recorder consume it; Accepted reports the point
// at which a transaction record is due.
type StatusChange struct {
	ProposalID int64
	From       Status
	To         Status
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	At         time.Time
}

// Accepted reports whether the proposal just became accepted.
func (c StatusChange) Accepted() bool {
	return c.To == StatusAccepted
}

// Transition validates the status change against the state table and returns
// the emitted event. It is a pure check: persisting the new status and acting
// on the event is up to the caller.
func (p *Proposal) Transition(next Status) (StatusChange, error) {
	if !p.Status.CanTransitionTo(next) {
		return StatusChange{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.Status, next)
	}
	return StatusChange{
		ProposalID: p.ID,
		From:       p.Status,
		To:         next,
		SenderID:   p.SenderID,
		ReceiverID: p.ReceiverID,
		At:         time.Now().UTC(),
	}, nil
}
