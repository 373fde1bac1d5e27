package packetkey_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bakkenops/tank-pull-worker/tools/packetkey"
)

func TestGenerate(t *testing.T) {
	arrival := time.Date(2026, 1, 15, 12, 30, 45, 0, time.UTC)
	key := packetkey.Generate(arrival, "Smith 12-3")

	if !strings.HasPrefix(key, "20260115123045_Smith12-3_") {
		t.Errorf("Unexpected key format: %s", key)
	}

	// Two keys for the same pull must not collide
	other := packetkey.Generate(arrival, "Smith 12-3")
	if key == other {
		t.Error("Expected distinct random suffixes for identical inputs")
	}
}

func TestArrivalTime(t *testing.T) {
	arrival := time.Date(2026, 1, 15, 12, 30, 45, 0, time.UTC)
	key := packetkey.Generate(arrival, "Smith 12-3")

	got, err := packetkey.ArrivalTime(key)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !got.Equal(arrival) {
		t.Errorf("Expected arrival %v, got %v", arrival, got)
	}
}

func TestArrivalTime_InvalidKeys(t *testing.T) {
	invalid := []string{
		"",
		"no-underscore",
		"short_Smith12-3_ab12cd34",
		"2026011512304X_Smith12-3_ab12cd34",
	}

	for _, key := range invalid {
		if _, err := packetkey.ArrivalTime(key); err == nil {
			t.Errorf("Expected error for key %q", key)
		}
	}
}

func TestWellName(t *testing.T) {
	if got := packetkey.WellName("20260115123045_Smith12-3_ab12cd34"); got != "Smith12-3" {
		t.Errorf("Expected Smith12-3, got %q", got)
	}
	if got := packetkey.WellName("malformed"); got != "" {
		t.Errorf("Expected empty well name for malformed key, got %q", got)
	}
}

func TestStripSpaces(t *testing.T) {
	if got := packetkey.StripSpaces("Smith 12 - 3"); got != "Smith12-3" {
		t.Errorf("Expected Smith12-3, got %q", got)
	}
}
