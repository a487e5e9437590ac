package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOfDropsTime(t *testing.T) {
	in := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), DateOf(in))
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 5, DaysBetween(start, end))
	assert.Equal(t, -5, DaysBetween(end, start))
}

func TestFakeClockAdvanceDays(t *testing.T) {
	c := NewFakeClock(time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC))
	c.AdvanceDays(1)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Today(c))
}
