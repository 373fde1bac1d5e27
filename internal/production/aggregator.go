package production

import (
	"math"
	"time"

	"github.com/bakkenops/tank-pull-worker/tools/prodday"
)

// Pull is the in-memory projection of a historical pull used for daily
// volume estimation. It is derived from processed history, never persisted.
type Pull struct {
	Timestamp     time.Time
	TankLevelFeet float64
	BblsTaken     float64
	WellDown      bool
}

// Aggregator produces daily-volume estimates from a well's pull history.
// The two estimators use different evidence on purpose: the window average
// smooths across every pair of pulls in a production day, while the
// overnight estimate measures the single longest unattended gap. They will
// disagree with each other in normal operation.
type Aggregator struct {
	maxRateDays float64
	bblsPerFoot float64
}

// NewAggregator creates an aggregator. maxRateDays discards gap rates at or
// above that many days-per-foot as outliers; bblsPerFoot is the volume one
// foot of level represents in a single tank.
func NewAggregator(maxRateDays, bblsPerFoot float64) *Aggregator {
	return &Aggregator{
		maxRateDays: maxRateDays,
		bblsPerFoot: bblsPerFoot,
	}
}

// WindowBblsPerDay estimates daily volume at time `at` by averaging the
// pair-wise flow rates whose later pull falls into the same 6am-to-6am
// window as `at`. An empty window falls back to the immediately preceding
// window; zero means no usable data.
func (a *Aggregator) WindowBblsPerDay(pulls []Pull, tanks float64, at time.Time) int {
	buckets := make(map[time.Time][]float64)
	for i := 1; i < len(pulls); i++ {
		prev, cur := pulls[i-1], pulls[i]
		if prev.WellDown || cur.WellDown {
			continue
		}
		rate, ok := a.gapRate(prev, cur, tanks)
		if !ok {
			continue
		}
		window := prodday.WindowEnd(cur.Timestamp)
		buckets[window] = append(buckets[window], rate)
	}

	window := prodday.WindowEnd(at)
	rates := buckets[window]
	if len(rates) == 0 {
		rates = buckets[prodday.PreviousWindowEnd(window)]
	}
	if len(rates) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range rates {
		sum += r
	}
	return BblsPerDay(sum/float64(len(rates)), tanks, a.bblsPerFoot)
}

// OvernightBblsPerDay estimates daily volume from the single gap between
// the earliest pull of the previous production day and the earliest pull of
// the current one. A down flag on either end, or a missing end, reports 0.
func (a *Aggregator) OvernightBblsPerDay(pulls []Pull, tanks float64, at time.Time) int {
	today := prodday.ProductionDate(at)
	yesterday, err := prodday.PreviousDate(today)
	if err != nil {
		return 0
	}

	var firstToday, firstYesterday *Pull
	for i := len(pulls) - 1; i >= 0; i-- {
		date := prodday.ProductionDate(pulls[i].Timestamp)
		if date < yesterday {
			// ISO dates compare lexicographically; everything earlier is
			// outside the two-day span.
			break
		}
		switch date {
		case today:
			// Keep overwriting while walking backward so the scan lands on
			// the earliest pull of the day.
			firstToday = &pulls[i]
		case yesterday:
			firstYesterday = &pulls[i]
		}
	}

	if firstToday == nil || firstYesterday == nil {
		return 0
	}
	if firstToday.WellDown || firstYesterday.WellDown {
		return 0
	}

	rate, ok := a.gapRate(*firstYesterday, *firstToday, tanks)
	if !ok {
		return 0
	}
	return BblsPerDay(rate, tanks, a.bblsPerFoot)
}

// gapRate computes the days-per-foot refill rate across one pair of pulls.
func (a *Aggregator) gapRate(prev, cur Pull, tanks float64) (float64, bool) {
	if tanks <= 0 {
		return 0, false
	}
	afterPrev := prev.TankLevelFeet - prev.BblsTaken/(a.bblsPerFoot*tanks)
	recoveryFeet := cur.TankLevelFeet - afterPrev
	if recoveryFeet <= 0 {
		return 0, false
	}
	days := cur.Timestamp.Sub(prev.Timestamp).Hours() / 24
	if days <= 0 {
		return 0, false
	}
	rate := days / recoveryFeet
	if rate <= 0 || rate >= a.maxRateDays {
		return 0, false
	}
	return rate, true
}

// BblsPerDay converts a days-per-foot rate to barrels per day across the
// well's tank battery. Zero rate means unknown and reports 0.
func BblsPerDay(rateDays, tanks, bblsPerFoot float64) int {
	if rateDays <= 0 {
		return 0
	}
	return int(math.Round((1 / rateDays) * tanks * bblsPerFoot))
}
