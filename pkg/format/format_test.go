package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	assert.Equal(t, "$0", Currency(0))
	assert.Equal(t, "$1,000", Currency(1000))
	assert.Equal(t, "$50,000", Currency(50000))
	assert.Equal(t, "$1,234,567", Currency(1234567))
	assert.Equal(t, "$19,999.50", Currency(19999.5))
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 10, DaysRemaining(now.Add(10*24*time.Hour), now))
	assert.Equal(t, 1, DaysRemaining(now.Add(30*time.Minute), now))
	assert.Equal(t, 0, DaysRemaining(now, now))
	assert.Equal(t, 0, DaysRemaining(now.Add(-5*24*time.Hour), now))

	// Partial days round up, not down.
	assert.Equal(t, 3, DaysRemaining(now.Add(2*24*time.Hour+time.Hour), now))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "3 days ago", RelativeTime(now.Add(-3*24*time.Hour), now))
}

func TestAbsoluteDate(t *testing.T) {
	assert.Equal(t, "June 1, 2025", AbsoluteDate(time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)))
}
