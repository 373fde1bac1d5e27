package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/db"
	"go.uber.org/zap"
)

// handleDelete consumes delete packets: it removes the referenced history
// record and rebuilds the well's projection from whatever remains. Deleting
// the last pull for a well clears its outgoing status entirely.
func (s *Service) handleDelete(ctx context.Context, pkt *db.PullPacket, logger *zap.Logger) error {
	if effectiveRequestType(pkt) != db.RequestTypeDelete {
		return nil
	}

	if pkt.TargetPacketID == "" {
		return s.discardPacket(ctx, pkt.PacketKey, "delete without target packet id", logger)
	}

	target, err := s.repo.GetProcessedPacket(ctx, pkt.TargetPacketID)
	if err != nil {
		return fmt.Errorf("failed to load delete target: %w", err)
	}
	if target == nil {
		return s.discardPacket(ctx, pkt.PacketKey, "delete target not in processed history", logger)
	}

	if _, err := s.repo.DeleteProcessedPacket(ctx, target.PacketID); err != nil {
		return err
	}

	latest, err := s.repo.LatestProcessedPacket(ctx, target.WellName)
	if err != nil {
		return fmt.Errorf("failed to find latest remaining packet: %w", err)
	}

	plan := PlanAfterDelete(latest)
	if plan.ClearStatus {
		if err := s.repo.ClearWellStatus(ctx, target.WellName); err != nil {
			return err
		}
		logger.Info("last pull deleted, status cleared",
			zap.String("target_packet_id", target.PacketID))
	} else {
		if err := s.rebuildStatusFrom(ctx, plan.RebuildFrom, logger); err != nil {
			return err
		}
	}

	if _, err := s.repo.DeleteIncomingPacket(ctx, pkt.PacketKey); err != nil {
		return err
	}

	s.metrics.PacketsProcessed.WithLabelValues(db.RequestTypeDelete).Inc()
	return nil
}

// DeletePlan is the follow-up action once a history record is removed:
// either the well's status document is cleared outright or it is rebuilt
// from the newest remaining record.
type DeletePlan struct {
	ClearStatus bool
	RebuildFrom *db.ProcessedPacket
}

// PlanAfterDelete decides how a well's projection recovers after a delete.
// A well whose last history record was just removed has no pull left to
// project from, so its status document goes away entirely rather than
// lingering with stale numbers.
func PlanAfterDelete(latest *db.ProcessedPacket) DeletePlan {
	if latest == nil {
		return DeletePlan{ClearStatus: true}
	}
	return DeletePlan{RebuildFrom: latest}
}

// rebuildStatusFrom reconstructs a well's outgoing status document and
// cached flow rate from the given latest remaining history record.
func (s *Service) rebuildStatusFrom(ctx context.Context, latest *db.ProcessedPacket, logger *zap.Logger) error {
	settings, err := s.resolveWellSettings(ctx, latest.WellName, logger)
	if err != nil {
		return fmt.Errorf("failed to resolve well settings: %w", err)
	}
	bblsPerFoot := s.cfg.Wells.BblsPerFoot

	rates, err := s.repo.RecentFlowRates(ctx, latest.WellName, s.cfg.Estimator.HistoryLimit, "")
	if err != nil {
		return fmt.Errorf("failed to load flow rate history: %w", err)
	}
	afrDays := s.estimator.Estimate(rates)

	pulls, err := s.repo.HistoricalPulls(ctx, latest.WellName, s.cfg.Production.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to load pull history: %w", err)
	}

	recoveryNeeded := RecoveryNeededInches(settings.BottomLevelFeet, settings.PullBbls,
		settings.Tanks, bblsPerFoot, latest.TankAfterInches)
	daysToPull, known := DaysToPull(recoveryNeeded, afrDays)

	status := BuildWellStatus(statusInputs{
		settings:             settings,
		bblsPerFoot:          bblsPerFoot,
		packetID:             latest.PacketID,
		pullTime:             latest.DateTime,
		tankAfterInches:      latest.TankAfterInches,
		bblsTaken:            latest.BblsTaken,
		driver:               latest.DriverName,
		isDown:               latest.WellDown,
		afrDays:              afrDays,
		windowBblsDay:        s.aggregator.WindowBblsPerDay(pulls, settings.Tanks, latest.DateTime),
		overnightBblsDay:     s.aggregator.OvernightBblsPerDay(pulls, settings.Tanks, latest.DateTime),
		recoveryNeededInches: recoveryNeeded,
		daysToPull:           daysToPull,
		estimateKnown:        known,
	}, time.Now().UTC())

	return s.writeStatus(ctx, status, afrDays, logger)
}
