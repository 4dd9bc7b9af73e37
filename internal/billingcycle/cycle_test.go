package billingcycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve_PreviousMonth(t *testing.T) {
	now := time.Date(2024, 8, 5, 10, 30, 0, 0, time.UTC)

	cycle := Resolve(now)

	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), cycle.Start)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), cycle.End)
	assert.Equal(t, "July 2024", cycle.Label)
	assert.Equal(t, "202407", cycle.Key())
}

func TestResolve_JanuaryWrapsToDecember(t *testing.T) {
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	cycle := Resolve(now)

	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), cycle.Start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), cycle.End)
	assert.Equal(t, "December 2024", cycle.Label)
	assert.Equal(t, "202412", cycle.Key())
}

func TestResolve_NonUTCInput(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	// 2024-08-01 04:00 in Manila is 2024-07-31 20:00 UTC, still July.
	now := time.Date(2024, 8, 1, 4, 0, 0, 0, manila)

	cycle := Resolve(now)

	assert.Equal(t, "June 2024", cycle.Label)
}

func TestContains_HalfOpenBoundaries(t *testing.T) {
	cycle := Resolve(time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC))

	assert.True(t, cycle.Contains(cycle.Start))
	assert.True(t, cycle.Contains(cycle.End.Add(-time.Nanosecond)))
	assert.False(t, cycle.Contains(cycle.End))
	assert.False(t, cycle.Contains(cycle.Start.Add(-time.Nanosecond)))
}
