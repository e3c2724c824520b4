package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusShipped, true},
		{StatusPending, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, true},
		{StatusShipped, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
		{Status("bogus"), StatusCancelled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(StatusPending))
	assert.False(t, Terminal(StatusShipped))
	assert.True(t, Terminal(StatusDelivered))
	assert.True(t, Terminal(StatusCancelled))
}
