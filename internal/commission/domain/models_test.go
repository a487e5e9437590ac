package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(25), Amount(1000, 250))
	assert.Equal(t, int64(1), Amount(20, 250)) // 0.5 cent
	assert.Equal(t, int64(0), Amount(19, 250)) // 0.475 cent
	assert.Equal(t, int64(0), Amount(0, 250))
}

func TestStatusMovesForwardOnly(t *testing.T) {
	assert.True(t, StatusPending.CanMoveTo(StatusApproved))
	assert.True(t, StatusPending.CanMoveTo(StatusPaid))
	assert.True(t, StatusApproved.CanMoveTo(StatusPaid))
	assert.False(t, StatusPaid.CanMoveTo(StatusApproved))
	assert.False(t, StatusApproved.CanMoveTo(StatusPending))
	assert.False(t, StatusPending.CanMoveTo(StatusPending))
	assert.False(t, StatusPending.CanMoveTo("void"))
}
