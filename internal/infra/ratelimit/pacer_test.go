package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudget_SpendUntilExhausted(t *testing.T) {
	b := NewBudget(2)

	assert.True(t, b.Spend())
	assert.True(t, b.Spend())
	assert.False(t, b.Spend())
	assert.Equal(t, 2, b.Used())
	assert.Equal(t, 0, b.Remaining())
}

func TestBudget_ZeroMaxFallsBackToDefault(t *testing.T) {
	b := NewBudget(0)
	assert.Equal(t, DefaultMaxRunShots, b.Remaining())
}
