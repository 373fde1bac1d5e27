package anomaly

import (
	"sort"
)

// Level is the classification tier a flow-rate sample receives relative to
// the median of previously accepted rates.
type Level string

const (
	LevelNormal  Level = "normal"
	LevelFlagged Level = "flagged"
	LevelAnomaly Level = "anomaly"
)

// Filter classifies flow rates against a progressively built known-good
// list. Classification is causal: a rate is judged only by the rates that
// came before it, so replaying history reproduces the levels each rate
// received at ingestion time.
type Filter struct {
	flagRatio    float64
	anomalyRatio float64
	minKnownGood int
}

// NewFilter creates a filter with the specified ratio thresholds and the
// minimum number of known-good rates required before classification starts.
func NewFilter(flagRatio, anomalyRatio float64, minKnownGood int) *Filter {
	return &Filter{
		flagRatio:    flagRatio,
		anomalyRatio: anomalyRatio,
		minKnownGood: minKnownGood,
	}
}

// Classify walks rates in chronological order and returns the level of each
// rate plus the known-good survivors (normal and flagged rates, in order).
// Anomaly-level rates are excluded from the known-good list and therefore
// from any average built on it.
func (f *Filter) Classify(rates []float64) ([]Level, []float64) {
	levels := make([]Level, len(rates))
	knownGood := make([]float64, 0, len(rates))

	for i, rate := range rates {
		level := f.classifyAgainst(rate, knownGood)
		levels[i] = level
		if level != LevelAnomaly {
			knownGood = append(knownGood, rate)
		}
	}

	return levels, knownGood
}

func (f *Filter) classifyAgainst(rate float64, knownGood []float64) Level {
	if len(knownGood) < f.minKnownGood {
		// Not enough evidence to call anything an outlier yet.
		return LevelNormal
	}

	m := median(knownGood)
	if m <= 0 || rate <= 0 {
		return LevelNormal
	}

	ratio := rate / m
	if ratio < 1 {
		ratio = m / rate
	}

	switch {
	case ratio >= f.anomalyRatio:
		return LevelAnomaly
	case ratio >= f.flagRatio:
		return LevelFlagged
	default:
		return LevelNormal
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
