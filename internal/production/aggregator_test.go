package production_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bakkenops/tank-pull-worker/internal/production"
)

func newAggregator() *production.Aggregator {
	return production.NewAggregator(365, 20)
}

// January dates keep the regional offset at a constant UTC-6.
func jan(day, hour, min int) time.Time {
	return time.Date(2026, 1, day, hour, min, 0, 0, time.UTC)
}

func TestWindowBblsPerDay(t *testing.T) {
	// Two tanks: the 120-bbl haul lowers the level by 3 feet, so the gap
	// recovers 2 feet in 12 hours for a rate of 0.25 days/ft.
	pulls := []production.Pull{
		{Timestamp: jan(10, 14, 0), TankLevelFeet: 8, BblsTaken: 120},
		{Timestamp: jan(11, 2, 0), TankLevelFeet: 7},
	}

	got := newAggregator().WindowBblsPerDay(pulls, 2, jan(11, 2, 0))
	assert.Equal(t, 160, got)
}

func TestWindowBblsPerDay_FallsBackToPreviousWindow(t *testing.T) {
	pulls := []production.Pull{
		{Timestamp: jan(10, 14, 0), TankLevelFeet: 8, BblsTaken: 120},
		{Timestamp: jan(11, 2, 0), TankLevelFeet: 7},
	}

	// Local 7am on the 11th starts a new window with no pairs in it yet;
	// the previous window's average still applies.
	got := newAggregator().WindowBblsPerDay(pulls, 2, jan(11, 13, 0))
	assert.Equal(t, 160, got)

	// Two windows later there is nothing to fall back to.
	got = newAggregator().WindowBblsPerDay(pulls, 2, jan(13, 13, 0))
	assert.Equal(t, 0, got)
}

func TestWindowBblsPerDay_SkipsDownPairs(t *testing.T) {
	pulls := []production.Pull{
		{Timestamp: jan(10, 14, 0), TankLevelFeet: 8, BblsTaken: 120},
		{Timestamp: jan(11, 2, 0), TankLevelFeet: 7, WellDown: true},
	}

	got := newAggregator().WindowBblsPerDay(pulls, 2, jan(11, 2, 0))
	assert.Equal(t, 0, got)
}

func TestWindowBblsPerDay_SkipsNonRecoveringPairs(t *testing.T) {
	// Level dropped across the gap, so the pair carries no rate signal.
	pulls := []production.Pull{
		{Timestamp: jan(10, 14, 0), TankLevelFeet: 8},
		{Timestamp: jan(11, 2, 0), TankLevelFeet: 7},
	}

	got := newAggregator().WindowBblsPerDay(pulls, 2, jan(11, 2, 0))
	assert.Equal(t, 0, got)
}

func TestWindowBblsPerDay_Empty(t *testing.T) {
	got := newAggregator().WindowBblsPerDay(nil, 2, jan(11, 2, 0))
	assert.Equal(t, 0, got)
}

func TestOvernightBblsPerDay(t *testing.T) {
	// The estimate must pair the earliest pull of each production day:
	// yesterday 08:00 local (level 6 minus a 1-foot haul) against today
	// 07:00 local (level 7). 2 feet recovered in 23 hours is about
	// 0.479 days/ft, or 42 bbls/day on one tank.
	pulls := []production.Pull{
		{Timestamp: jan(10, 14, 0), TankLevelFeet: 6, BblsTaken: 20},
		{Timestamp: jan(11, 2, 0), TankLevelFeet: 6.5, BblsTaken: 10},
		{Timestamp: jan(11, 13, 0), TankLevelFeet: 7},
		{Timestamp: jan(11, 18, 0), TankLevelFeet: 7.2},
		{Timestamp: jan(11, 21, 0), TankLevelFeet: 7.4},
	}

	got := newAggregator().OvernightBblsPerDay(pulls, 1, jan(12, 0, 0))
	assert.Equal(t, 42, got)
}

func TestOvernightBblsPerDay_DownReportsZero(t *testing.T) {
	pulls := []production.Pull{
		{Timestamp: jan(10, 14, 0), TankLevelFeet: 6, BblsTaken: 20, WellDown: true},
		{Timestamp: jan(11, 13, 0), TankLevelFeet: 7},
	}

	got := newAggregator().OvernightBblsPerDay(pulls, 1, jan(12, 0, 0))
	assert.Equal(t, 0, got)
}

func TestOvernightBblsPerDay_MissingDayReportsZero(t *testing.T) {
	pulls := []production.Pull{
		{Timestamp: jan(10, 14, 0), TankLevelFeet: 6, BblsTaken: 20},
		{Timestamp: jan(11, 13, 0), TankLevelFeet: 7},
	}

	// Neither the 12th nor the 13th has a pull.
	got := newAggregator().OvernightBblsPerDay(pulls, 1, jan(13, 20, 0))
	assert.Equal(t, 0, got)
}

func TestBblsPerDay(t *testing.T) {
	assert.Equal(t, 0, production.BblsPerDay(0, 2, 20))
	assert.Equal(t, 160, production.BblsPerDay(0.25, 2, 20))
	assert.Equal(t, 42, production.BblsPerDay(23.0/24/2, 1, 20))
}
