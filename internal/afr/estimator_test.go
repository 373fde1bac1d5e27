package afr_test

import (
	"math"
	"testing"

	"github.com/bakkenops/tank-pull-worker/internal/afr"
	"github.com/bakkenops/tank-pull-worker/internal/anomaly"
)

func newEstimator() *afr.Estimator {
	filter := anomaly.NewFilter(1.5, 2.0, 3)
	return afr.NewEstimator(filter, 5, 5, 3, 0.10)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEstimate_NoRates(t *testing.T) {
	if got := newEstimator().Estimate(nil); got != 0 {
		t.Errorf("Expected 0 for empty history, got %v", got)
	}
	if got := newEstimator().Estimate([]float64{0, -1}); got != 0 {
		t.Errorf("Expected 0 when no rate is positive, got %v", got)
	}
}

func TestEstimate_SparseHistoryUsesLatest(t *testing.T) {
	if got := newEstimator().Estimate([]float64{3.5}); got != 3.5 {
		t.Errorf("Expected single rate verbatim, got %v", got)
	}
	if got := newEstimator().Estimate([]float64{3, 4}); got != 4 {
		t.Errorf("Expected latest of two rates, got %v", got)
	}
	// Non-positive entries don't count toward the sparse threshold
	if got := newEstimator().Estimate([]float64{0, 3, 0, 4}); got != 4 {
		t.Errorf("Expected latest positive rate, got %v", got)
	}
}

func TestEstimate_RollingMean(t *testing.T) {
	got := newEstimator().Estimate([]float64{2, 2.1, 1.9, 2, 2.2})
	if !almostEqual(got, 2.04) {
		t.Errorf("Expected rolling mean 2.04, got %v", got)
	}
}

func TestEstimate_AnomalyExcluded(t *testing.T) {
	// The trailing 9 is anomalous against a median of 2 and must not drag
	// the estimate.
	got := newEstimator().Estimate([]float64{2, 2.1, 1.9, 2, 2.2, 9})
	if !almostEqual(got, 2.04) {
		t.Errorf("Expected 2.04 with anomaly excluded, got %v", got)
	}
}

func TestEstimate_StepUp(t *testing.T) {
	// Three consecutive rates all above the prior average by more than 10%
	// snap the estimate to their median instead of blending slowly.
	got := newEstimator().Estimate([]float64{2, 2, 2, 2, 2, 3, 3.1, 2.9})
	if !almostEqual(got, 3) {
		t.Errorf("Expected step to 3, got %v", got)
	}
}

func TestEstimate_StepDown(t *testing.T) {
	got := newEstimator().Estimate([]float64{3, 3, 3, 3, 3, 2, 2, 2.1})
	if !almostEqual(got, 2) {
		t.Errorf("Expected step to 2, got %v", got)
	}
}

func TestEstimate_MixedDirectionIsNotAStep(t *testing.T) {
	// Trailing rates straddling the prior average are noise, so the rolling
	// mean of the last five filtered rates applies.
	got := newEstimator().Estimate([]float64{2, 2, 2, 2, 2, 3, 1.5, 3})
	if !almostEqual(got, 2.3) {
		t.Errorf("Expected rolling mean 2.3, got %v", got)
	}
}

func TestMinutesPerFoot(t *testing.T) {
	if got := afr.MinutesPerFoot(0.5); got != 720 {
		t.Errorf("Expected 720 minutes/ft, got %v", got)
	}
}

func TestDisplayString(t *testing.T) {
	if got := afr.DisplayString(0); got != "Unknown" {
		t.Errorf("Expected Unknown for zero rate, got %q", got)
	}
	if got := afr.DisplayString(2.345); got != "2.35 days/ft" {
		t.Errorf("Expected formatted rate, got %q", got)
	}
}
