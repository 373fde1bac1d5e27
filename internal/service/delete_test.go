package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bakkenops/tank-pull-worker/internal/db"
)

func TestPlanAfterDelete_LastPacketClearsStatus(t *testing.T) {
	// Removing a well's only history record leaves nothing to project from:
	// the status document must be cleared, never rebuilt from stale data.
	plan := PlanAfterDelete(nil)

	assert.True(t, plan.ClearStatus)
	assert.Nil(t, plan.RebuildFrom)
}

func TestPlanAfterDelete_RebuildsFromLatestRemaining(t *testing.T) {
	latest := &db.ProcessedPacket{
		PacketID:        "20260115120000_Smith12-3_ab12cd34",
		WellName:        "Smith 12-3",
		DateTime:        time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		TankAfterInches: 78,
	}

	plan := PlanAfterDelete(latest)

	assert.False(t, plan.ClearStatus)
	if assert.NotNil(t, plan.RebuildFrom) {
		assert.Equal(t, latest.PacketID, plan.RebuildFrom.PacketID)
	}
}
