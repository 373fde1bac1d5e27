package afr

import (
	"fmt"
	"sort"

	"github.com/bakkenops/tank-pull-worker/internal/anomaly"
)

// Estimator computes a well's adaptive flow rate in days-per-foot from its
// recent per-pull flow rates. Anomalous rates are dropped before averaging,
// and a sustained shift in the trailing rates short-circuits the rolling
// average so the estimate tracks genuine regime changes immediately.
type Estimator struct {
	filter        *anomaly.Filter
	rollingWindow int
	stepMinRates  int
	stepLookback  int
	stepThreshold float64
}

// NewEstimator creates an estimator over the given anomaly filter.
// rollingWindow caps the trailing mean, stepMinRates is the minimum number
// of filtered rates before step detection runs, stepLookback is how many
// trailing rates must agree to count as a step, and stepThreshold is the
// fractional deviation from the pre-step average that counts as agreement.
func NewEstimator(filter *anomaly.Filter, rollingWindow, stepMinRates, stepLookback int, stepThreshold float64) *Estimator {
	return &Estimator{
		filter:        filter,
		rollingWindow: rollingWindow,
		stepMinRates:  stepMinRates,
		stepLookback:  stepLookback,
		stepThreshold: stepThreshold,
	}
}

// Estimate returns the adaptive flow rate for a chronologically ordered
// rate history. Zero means unknown: no usable rates.
func (e *Estimator) Estimate(rates []float64) float64 {
	valid := make([]float64, 0, len(rates))
	for _, r := range rates {
		if r > 0 {
			valid = append(valid, r)
		}
	}

	if len(valid) == 0 {
		return 0
	}
	if len(valid) <= 2 {
		// Too little data to average; report the newest rate verbatim.
		return valid[len(valid)-1]
	}

	_, filtered := e.filter.Classify(valid)
	if len(filtered) == 0 {
		return 0
	}

	if len(filtered) >= e.stepMinRates {
		if stepRate, ok := e.detectStep(filtered); ok {
			return stepRate
		}
	}

	window := e.rollingWindow
	if len(filtered) < window {
		window = len(filtered)
	}
	return mean(filtered[len(filtered)-window:])
}

// detectStep compares the trailing rates against the average of everything
// before them. Only when all of them deviate past the threshold in the same
// direction is the shift treated as a regime change rather than noise.
func (e *Estimator) detectStep(rates []float64) (float64, bool) {
	pre := rates[:len(rates)-e.stepLookback]
	preAvg := mean(pre)
	if preAvg <= 0 {
		return 0, false
	}

	trailing := rates[len(rates)-e.stepLookback:]
	allHigher, allLower := true, true
	for _, r := range trailing {
		if r <= preAvg*(1+e.stepThreshold) {
			allHigher = false
		}
		if r >= preAvg*(1-e.stepThreshold) {
			allLower = false
		}
	}

	if allHigher || allLower {
		return median(trailing), true
	}
	return 0, false
}

// MinutesPerFoot converts a days-per-foot rate to minutes-per-foot for the
// cached well-config display value.
func MinutesPerFoot(daysPerFoot float64) float64 {
	return daysPerFoot * 24 * 60
}

// DisplayString renders a days-per-foot rate for the dashboard.
func DisplayString(daysPerFoot float64) string {
	if daysPerFoot <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%.2f days/ft", daysPerFoot)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
