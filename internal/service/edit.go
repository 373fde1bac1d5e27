package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/db"
	"go.uber.org/zap"
)

// handleEdit consumes edit packets: it overlays the supplied fields onto
// the referenced history record, re-derives the gap fields against
// whichever processed packet is now chronologically prior, and refreshes
// the outgoing status when the edited pull is the well's most recent.
func (s *Service) handleEdit(ctx context.Context, pkt *db.PullPacket, logger *zap.Logger) error {
	if effectiveRequestType(pkt) != db.RequestTypeEdit {
		return nil
	}

	if pkt.TargetPacketID == "" {
		return s.discardPacket(ctx, pkt.PacketKey, "edit without target packet id", logger)
	}

	proc, err := s.repo.GetProcessedPacket(ctx, pkt.TargetPacketID)
	if err != nil {
		return fmt.Errorf("failed to load edit target: %w", err)
	}
	if proc == nil {
		return s.discardPacket(ctx, pkt.PacketKey, "edit target not in processed history", logger)
	}

	settings, err := s.resolveWellSettings(ctx, proc.WellName, logger)
	if err != nil {
		return fmt.Errorf("failed to resolve well settings: %w", err)
	}
	bblsPerFoot := s.cfg.Wells.BblsPerFoot

	// Overlay only what the request supplied.
	if pkt.TankLevelFeet != nil {
		proc.TankLevelFeet = *pkt.TankLevelFeet
		proc.TankTopInches = *pkt.TankLevelFeet * 12
	}
	if pkt.TankTopInches != nil {
		proc.TankTopInches = *pkt.TankTopInches
		proc.TankLevelFeet = *pkt.TankTopInches / 12
	}
	if pkt.BblsTaken != nil {
		proc.BblsTaken = *pkt.BblsTaken
	}
	if !pkt.DateTime.IsZero() {
		proc.DateTime = pkt.DateTime
	}

	prior, err := s.repo.PriorProcessedPacket(ctx, proc.WellName, proc.DateTime, proc.PacketID)
	if err != nil {
		return fmt.Errorf("failed to load prior packet: %w", err)
	}

	var derived PullDerivation
	if prior != nil {
		derived = DerivePull(proc.TankTopInches, proc.BblsTaken, settings.Tanks, bblsPerFoot,
			proc.DateTime, prior.TankAfterInches, prior.DateTime, true)
	} else {
		derived = DerivePull(proc.TankTopInches, proc.BblsTaken, settings.Tanks, bblsPerFoot,
			proc.DateTime, 0, time.Time{}, false)
	}
	proc.TankAfterInches = derived.TankAfterInches
	proc.TimeDifDays = derived.TimeDifDays
	proc.RecoveryInches = derived.RecoveryInches
	proc.FlowRateDays = derived.FlowRateDays

	// Edited rows are excluded from flow-rate history scans, so the
	// estimate is rebuilt from the remaining unedited history.
	rates, err := s.repo.RecentFlowRates(ctx, proc.WellName, s.cfg.Estimator.HistoryLimit, proc.PacketID)
	if err != nil {
		return fmt.Errorf("failed to load flow rate history: %w", err)
	}
	afrDays := s.estimator.Estimate(rates)

	recoveryNeeded := RecoveryNeededInches(settings.BottomLevelFeet, settings.PullBbls,
		settings.Tanks, bblsPerFoot, proc.TankAfterInches)
	daysToPull, known := DaysToPull(recoveryNeeded, afrDays)
	proc.RecoveryNeededInches = recoveryNeeded
	proc.DaysToPull = daysToPull
	proc.NextPullTime = nil
	if known {
		next := proc.DateTime.Add(time.Duration(daysToPull * 24 * float64(time.Hour)))
		proc.NextPullTime = &next
	}

	now := time.Now().UTC()
	proc.WasEdited = true
	proc.EditedAt = &now
	if pkt.DriverName != "" {
		editor := pkt.DriverName
		proc.EditedBy = &editor
	}

	if err := s.repo.UpdateProcessedPacket(ctx, proc); err != nil {
		return err
	}

	// A well with no outgoing status at all treats the edit as most recent
	// so the status document gets created rather than staying missing.
	current, err := s.repo.GetWellStatus(ctx, proc.WellName)
	if err != nil {
		return fmt.Errorf("failed to load current status: %w", err)
	}

	if current == nil || !proc.DateTime.Before(current.LastPullTime) {
		pulls, err := s.repo.HistoricalPulls(ctx, proc.WellName, s.cfg.Production.HistoryLimit)
		if err != nil {
			return fmt.Errorf("failed to load pull history: %w", err)
		}

		status := BuildWellStatus(statusInputs{
			settings:             settings,
			bblsPerFoot:          bblsPerFoot,
			packetID:             proc.PacketID,
			pullTime:             proc.DateTime,
			tankAfterInches:      proc.TankAfterInches,
			bblsTaken:            proc.BblsTaken,
			driver:               proc.DriverName,
			isDown:               proc.WellDown,
			afrDays:              afrDays,
			windowBblsDay:        s.aggregator.WindowBblsPerDay(pulls, settings.Tanks, proc.DateTime),
			overnightBblsDay:     s.aggregator.OvernightBblsPerDay(pulls, settings.Tanks, proc.DateTime),
			recoveryNeededInches: recoveryNeeded,
			daysToPull:           daysToPull,
			estimateKnown:        known,
		}, now)

		if err := s.writeStatus(ctx, status, afrDays, logger); err != nil {
			return err
		}
	}

	if _, err := s.repo.DeleteIncomingPacket(ctx, pkt.PacketKey); err != nil {
		return err
	}

	s.metrics.PacketsProcessed.WithLabelValues(db.RequestTypeEdit).Inc()
	logger.Info("edit processed",
		zap.String("target_packet_id", proc.PacketID),
		zap.Float64("tank_after_inches", proc.TankAfterInches),
		zap.Float64("flow_rate_days", proc.FlowRateDays),
	)

	return nil
}
