package watchdog_test

import (
	"testing"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/bakkenops/tank-pull-worker/internal/watchdog"
)

func pullPacket(key, well string, eventTime time.Time) db.PullPacket {
	return db.PullPacket{
		PacketKey: key,
		WellName:  well,
		DateTime:  eventTime,
	}
}

func TestPlanSweep_FreshUniquePacketsUntouched(t *testing.T) {
	event := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC)
	now := time.Date(2026, 1, 15, 12, 1, 0, 0, time.UTC)

	packets := []db.PullPacket{
		pullPacket("20260115120000_Smith12-3_ab12cd34", "Smith 12-3", event),
	}

	plan := watchdog.PlanSweep(packets, now, 2*time.Minute)
	if len(plan.DuplicateKeys) != 0 {
		t.Errorf("Expected no duplicates, got %v", plan.DuplicateKeys)
	}
	if len(plan.Stranded) != 0 {
		t.Errorf("Expected no stranded packets, got %d", len(plan.Stranded))
	}
}

func TestPlanSweep_DuplicatesKeepEarliestArrival(t *testing.T) {
	event := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC)
	now := time.Date(2026, 1, 15, 12, 1, 0, 0, time.UTC)

	// Same logical event submitted twice; the later arrival goes.
	packets := []db.PullPacket{
		pullPacket("20260115120005_Smith12-3_ffffffff", "Smith 12-3", event),
		pullPacket("20260115120000_Smith12-3_ab12cd34", "Smith 12-3", event),
	}

	plan := watchdog.PlanSweep(packets, now, 2*time.Minute)
	if len(plan.DuplicateKeys) != 1 || plan.DuplicateKeys[0] != "20260115120005_Smith12-3_ffffffff" {
		t.Errorf("Expected later arrival marked duplicate, got %v", plan.DuplicateKeys)
	}
	if len(plan.Stranded) != 0 {
		t.Errorf("Expected fresh keeper not stranded, got %d", len(plan.Stranded))
	}
}

func TestPlanSweep_SameEventDifferentWellsNotDuplicates(t *testing.T) {
	event := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC)
	now := time.Date(2026, 1, 15, 12, 1, 0, 0, time.UTC)

	packets := []db.PullPacket{
		pullPacket("20260115120000_Smith12-3_ab12cd34", "Smith 12-3", event),
		pullPacket("20260115120000_Jones4-1_beefbeef", "Jones 4-1", event),
	}

	plan := watchdog.PlanSweep(packets, now, 2*time.Minute)
	if len(plan.DuplicateKeys) != 0 {
		t.Errorf("Expected no duplicates across wells, got %v", plan.DuplicateKeys)
	}
}

func TestPlanSweep_StalePacketStranded(t *testing.T) {
	event := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC)
	now := time.Date(2026, 1, 15, 12, 3, 0, 0, time.UTC)

	packets := []db.PullPacket{
		pullPacket("20260115120000_Smith12-3_ab12cd34", "Smith 12-3", event),
	}

	plan := watchdog.PlanSweep(packets, now, 2*time.Minute)
	if len(plan.Stranded) != 1 {
		t.Fatalf("Expected 1 stranded packet, got %d", len(plan.Stranded))
	}
	if plan.Stranded[0].PacketKey != "20260115120000_Smith12-3_ab12cd34" {
		t.Errorf("Unexpected stranded packet %s", plan.Stranded[0].PacketKey)
	}
}

func TestPlanSweep_UnparsableKeyIsStale(t *testing.T) {
	event := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	packets := []db.PullPacket{
		pullPacket("not-a-real-key", "Smith 12-3", event),
	}

	plan := watchdog.PlanSweep(packets, now, 2*time.Minute)
	if len(plan.Stranded) != 1 {
		t.Errorf("Expected unparsable key treated as stale, got %d stranded", len(plan.Stranded))
	}
}

func TestPlanSweep_UnparsableDuplicateLosesToWellFormed(t *testing.T) {
	event := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC)
	now := time.Date(2026, 1, 15, 12, 1, 0, 0, time.UTC)

	packets := []db.PullPacket{
		pullPacket("not-a-real-key", "Smith 12-3", event),
		pullPacket("20260115120000_Smith12-3_ab12cd34", "Smith 12-3", event),
	}

	plan := watchdog.PlanSweep(packets, now, 2*time.Minute)
	if len(plan.DuplicateKeys) != 1 || plan.DuplicateKeys[0] != "not-a-real-key" {
		t.Errorf("Expected malformed key marked duplicate, got %v", plan.DuplicateKeys)
	}
}

func TestStuckStatus(t *testing.T) {
	cases := []struct {
		stuck    int
		expected string
	}{
		{0, "ok"},
		{5, "ok"},
		{6, "warning"},
		{20, "warning"},
		{21, "critical"},
	}

	for _, tc := range cases {
		if got := watchdog.StuckStatus(tc.stuck, 5, 20); got != tc.expected {
			t.Errorf("StuckStatus(%d): expected %s, got %s", tc.stuck, tc.expected, got)
		}
	}
}
