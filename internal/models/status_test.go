package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	all := []Status{StatusPending, StatusAccepted, StatusRejected, StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			allowed := from == StatusPending && to != StatusPending
			assert.Equal(t, allowed, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusAccepted.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "accepted", "rejected", "cancelled"} {
		status, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, Status(valid), status)
	}

	for _, invalid := range []string{"", "canceled", "done", "PENDING"} {
		_, err := ParseStatus(invalid)
		assert.Error(t, err, "input %q", invalid)
	}
}

func TestProposalTransition(t *testing.T) {
	t.Run("pending moves to any terminal state", func(t *testing.T) {
		for _, next := range []Status{StatusAccepted, StatusRejected, StatusCancelled} {
			p := Proposal{ID: 9, Status: StatusPending}
			change, err := p.Transition(next)
			require.NoError(t, err)
			assert.Equal(t, int64(9), change.ProposalID)
			assert.Equal(t, StatusPending, change.From)
			assert.Equal(t, next, change.To)
			assert.Equal(t, next == StatusAccepted, change.Accepted())
		}
	})

	t.Run("terminal states reject every move", func(t *testing.T) {
		for _, from := range []Status{StatusAccepted, StatusRejected, StatusCancelled} {
			for _, to := range []Status{StatusPending, StatusAccepted, StatusRejected, StatusCancelled} {
				p := Proposal{Status: from}
				_, err := p.Transition(to)
				assert.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", from, to)
			}
		}
	})

	t.Run("reopening a pending proposal is illegal", func(t *testing.T) {
		p := Proposal{Status: StatusPending}
		_, err := p.Transition(StatusPending)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})
}
