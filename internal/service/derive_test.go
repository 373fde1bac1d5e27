package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bakkenops/tank-pull-worker/internal/db"
)

func TestDerivePull_FullScenario(t *testing.T) {
	// Two tanks, 20 bbls/ft: pull A gauges 8 ft with nothing hauled, pull B
	// ten hours later gauges 9.5 ft and hauls 120 bbls.
	tA := time.Date(2026, 1, 15, 2, 0, 0, 0, time.UTC)
	tB := tA.Add(10 * time.Hour)

	a := DerivePull(96, 0, 2, 20, tA, 0, time.Time{}, false)
	assert.Equal(t, 96.0, a.TankAfterInches)
	assert.Zero(t, a.FlowRateDays)

	b := DerivePull(114, 120, 2, 20, tB, a.TankAfterInches, tA, true)
	assert.InDelta(t, 78, b.TankAfterInches, 1e-9)
	assert.InDelta(t, 18, b.RecoveryInches, 1e-9)
	assert.InDelta(t, 10.0/24, b.TimeDifDays, 1e-9)
	assert.InDelta(t, (10.0/24)/1.5, b.FlowRateDays, 1e-9)
}

func TestDerivePull_IsDeterministic(t *testing.T) {
	// Reprocessing a pull with identical inputs, as an edit replay does,
	// must reproduce the same derived fields exactly.
	tA := time.Date(2026, 1, 15, 2, 0, 0, 0, time.UTC)
	tB := tA.Add(10 * time.Hour)

	first := DerivePull(114, 120, 2, 20, tB, 96, tA, true)
	second := DerivePull(114, 120, 2, 20, tB, 96, tA, true)
	assert.Equal(t, first, second)
}

func TestDerivePull_NonRecoveringGap(t *testing.T) {
	tA := time.Date(2026, 1, 15, 2, 0, 0, 0, time.UTC)
	tB := tA.Add(10 * time.Hour)

	// Level fell below the previous after-level: no rate can be derived.
	d := DerivePull(90, 0, 2, 20, tB, 96, tA, true)
	assert.InDelta(t, -6, d.RecoveryInches, 1e-9)
	assert.Zero(t, d.FlowRateDays)
}

func TestTankAfterInches_DefaultsTanks(t *testing.T) {
	// A zero tank count behaves as a single tank rather than dividing by zero.
	assert.InDelta(t, TankAfterInches(96, 20, 0, 20), TankAfterInches(96, 20, 1, 20), 1e-9)
}

func TestRecoveryNeededInches(t *testing.T) {
	// Bottom 3 ft plus a 140-bbl target across two tanks means ready at
	// 78 inches, which the scenario's after-level exactly meets.
	assert.InDelta(t, 0, RecoveryNeededInches(3, 140, 2, 20, 78), 1e-9)
	assert.InDelta(t, 18, RecoveryNeededInches(3, 140, 2, 20, 60), 1e-9)
	// Already above the ready line clamps to zero, never negative.
	assert.InDelta(t, 0, RecoveryNeededInches(3, 140, 2, 20, 100), 1e-9)
}

func TestDaysToPull(t *testing.T) {
	days, ok := DaysToPull(0, 0.5)
	assert.True(t, ok)
	assert.Zero(t, days)

	days, ok = DaysToPull(24, 2)
	assert.True(t, ok)
	assert.InDelta(t, 4, days, 1e-9)

	_, ok = DaysToPull(24, 0)
	assert.False(t, ok)
}

func TestBuildWellStatus(t *testing.T) {
	now := time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)
	pullTime := now.Add(-2 * time.Hour)

	in := statusInputs{
		settings:        wellSettings{Name: "Smith 12-3", Tanks: 2},
		bblsPerFoot:     20,
		packetID:        "20260115160000_Smith12-3_ab12cd34",
		pullTime:        pullTime,
		tankAfterInches: 78,
		bblsTaken:       120,
		driver:          "J. Doe",
		afrDays:         0.25,
		windowBblsDay:   160,
		daysToPull:      2.5,
		estimateKnown:   true,
	}

	status := BuildWellStatus(in, now)

	assert.Equal(t, "response_20260115180000_Smith12-3", status.ResponseKey)
	assert.Equal(t, "6.5 ft", status.CurrentLevelDisplay)
	assert.Equal(t, "0.25 days/ft", status.FlowRateDisplay)
	assert.Equal(t, 160, status.Bbls24Hrs)
	assert.Equal(t, "2d 12h 0m", status.TimeTillPull)
	if assert.NotNil(t, status.NextPullTime) {
		assert.Equal(t, pullTime.Add(60*time.Hour), *status.NextPullTime)
	}
}

func TestBuildWellStatus_ReadyAndUnknown(t *testing.T) {
	now := time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)

	ready := BuildWellStatus(statusInputs{
		settings:      wellSettings{Name: "Smith 12-3", Tanks: 2},
		bblsPerFoot:   20,
		pullTime:      now,
		afrDays:       0.25,
		estimateKnown: true,
	}, now)
	assert.Equal(t, "Ready", ready.TimeTillPull)
	if assert.NotNil(t, ready.NextPullTime) {
		assert.Equal(t, now, *ready.NextPullTime)
	}

	unknown := BuildWellStatus(statusInputs{
		settings:    wellSettings{Name: "Smith 12-3", Tanks: 2},
		bblsPerFoot: 20,
		pullTime:    now,
	}, now)
	assert.Equal(t, "Unknown", unknown.TimeTillPull)
	assert.Equal(t, "Unknown", unknown.FlowRateDisplay)
	assert.Nil(t, unknown.NextPullTime)
	assert.Zero(t, unknown.Bbls24Hrs)
}

func TestValidatePullPacket(t *testing.T) {
	level := 8.0
	negative := -5.0

	valid := &db.PullPacket{
		WellName:      "Smith 12-3",
		DateTime:      time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		TankLevelFeet: &level,
	}
	assert.Empty(t, validatePullPacket(valid))

	cases := []struct {
		name string
		pkt  *db.PullPacket
	}{
		{"missing well name", &db.PullPacket{DateTime: valid.DateTime, TankLevelFeet: &level}},
		{"missing timestamp", &db.PullPacket{WellName: "Smith 12-3", TankLevelFeet: &level}},
		{"missing tank level", &db.PullPacket{WellName: "Smith 12-3", DateTime: valid.DateTime}},
		{"negative bbls", &db.PullPacket{WellName: "Smith 12-3", DateTime: valid.DateTime, TankLevelFeet: &level, BblsTaken: &negative}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEmpty(t, validatePullPacket(tc.pkt))
		})
	}
}

func TestValidatePullPacket_DownNeedsNoLevel(t *testing.T) {
	pkt := &db.PullPacket{
		WellName: "Smith 12-3",
		DateTime: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		WellDown: true,
	}
	assert.Empty(t, validatePullPacket(pkt))
}
