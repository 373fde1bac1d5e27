package service

import (
	"time"
)

// PullDerivation holds the fields computed for a pull from its raw
// measurement and the well's previous post-pull state.
type PullDerivation struct {
	TankAfterInches float64
	TimeDifDays     float64
	RecoveryInches  float64
	FlowRateDays    float64
}

// DerivePull computes a pull's derived fields. The flow rate is the days
// the tank took to rise one foot between the previous pull's after-level
// and this pull's top gauge; a well with no prior state derives zeros for
// the gap fields.
func DerivePull(tankTopInches, bblsTaken, tanks, bblsPerFoot float64, pullTime time.Time, prevAfterInches float64, prevTime time.Time, hasPrev bool) PullDerivation {
	d := PullDerivation{
		TankAfterInches: TankAfterInches(tankTopInches, bblsTaken, tanks, bblsPerFoot),
	}

	if !hasPrev {
		return d
	}

	d.TimeDifDays = pullTime.Sub(prevTime).Hours() / 24
	d.RecoveryInches = tankTopInches - prevAfterInches
	if d.TimeDifDays > 0 && d.RecoveryInches > 0 {
		d.FlowRateDays = d.TimeDifDays / (d.RecoveryInches / 12)
	}

	return d
}

// TankAfterInches converts a pre-pull gauge and hauled volume into the
// post-pull level, spreading the volume across the tank battery.
func TankAfterInches(tankTopInches, bblsTaken, tanks, bblsPerFoot float64) float64 {
	if tanks <= 0 {
		tanks = 1
	}
	return tankTopInches - (bblsTaken/(bblsPerFoot*tanks))*12
}

// RecoveryNeededInches is how far the tank must still rise before a full
// target pull fits above the allowed bottom level. Zero means the target
// is already met.
func RecoveryNeededInches(bottomLevelFeet, pullBbls, tanks, bblsPerFoot, tankAfterInches float64) float64 {
	if tanks <= 0 {
		tanks = 1
	}
	readyInches := bottomLevelFeet*12 + (pullBbls/(bblsPerFoot*tanks))*12
	needed := readyInches - tankAfterInches
	if needed < 0 {
		return 0
	}
	return needed
}

// DaysToPull converts needed recovery into an estimated wait. Zero with
// ok=true means pull immediately; ok=false means the flow rate is unknown
// and no estimate is possible.
func DaysToPull(recoveryNeededInches, afrDaysPerFoot float64) (float64, bool) {
	if recoveryNeededInches <= 0 {
		return 0, true
	}
	if afrDaysPerFoot <= 0 {
		return 0, false
	}
	return (recoveryNeededInches / 12) * afrDaysPerFoot, true
}
