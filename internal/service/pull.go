package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/anomaly"
	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/bakkenops/tank-pull-worker/tools/packetkey"
	"github.com/bakkenops/tank-pull-worker/tools/prodday"
	"go.uber.org/zap"
)

// handlePull consumes pull packets: it derives the tank movement since the
// well's previous pull, feeds the flow-rate estimator and both production
// aggregators, and replaces the well's outgoing status document.
func (s *Service) handlePull(ctx context.Context, pkt *db.PullPacket, logger *zap.Logger) error {
	if t := effectiveRequestType(pkt); t != db.RequestTypePull {
		return nil
	}

	if reason := validatePullPacket(pkt); reason != "" {
		return s.discardPacket(ctx, pkt.PacketKey, reason, logger)
	}

	settings, err := s.resolveWellSettings(ctx, pkt.WellName, logger)
	if err != nil {
		return fmt.Errorf("failed to resolve well settings: %w", err)
	}

	bblsPerFoot := s.cfg.Wells.BblsPerFoot
	tankTop := pullTankTopInches(pkt)
	bbls := 0.0
	if pkt.BblsTaken != nil {
		bbls = *pkt.BblsTaken
	}

	prev, err := s.repo.GetWellStatus(ctx, settings.Name)
	if err != nil {
		return fmt.Errorf("failed to load previous status: %w", err)
	}

	var derived PullDerivation
	if prev != nil {
		derived = DerivePull(tankTop, bbls, settings.Tanks, bblsPerFoot, pkt.DateTime,
			prev.CurrentLevelInches, prev.LastPullTime, true)
	} else {
		derived = DerivePull(tankTop, bbls, settings.Tanks, bblsPerFoot, pkt.DateTime,
			0, time.Time{}, false)
	}

	rates, err := s.repo.RecentFlowRates(ctx, settings.Name, s.cfg.Estimator.HistoryLimit, "")
	if err != nil {
		return fmt.Errorf("failed to load flow rate history: %w", err)
	}

	level := anomaly.LevelNormal
	if derived.FlowRateDays > 0 {
		rates = append(rates, derived.FlowRateDays)
		levels, _ := s.filter.Classify(rates)
		level = levels[len(levels)-1]
	}
	s.metrics.RatesClassified.WithLabelValues(string(level)).Inc()

	afrDays := s.estimator.Estimate(rates)
	recoveryNeeded := RecoveryNeededInches(settings.BottomLevelFeet, settings.PullBbls,
		settings.Tanks, bblsPerFoot, derived.TankAfterInches)
	daysToPull, known := DaysToPull(recoveryNeeded, afrDays)

	now := time.Now().UTC()
	processed := &db.ProcessedPacket{
		PacketID:             pkt.PacketKey,
		WellName:             settings.Name,
		RequestType:          db.RequestTypePull,
		DateTime:             pkt.DateTime,
		TankLevelFeet:        tankTop / 12,
		TankTopInches:        tankTop,
		TankAfterInches:      derived.TankAfterInches,
		BblsTaken:            bbls,
		DriverName:           pkt.DriverName,
		DriverID:             pkt.DriverID,
		WellDown:             pkt.WellDown,
		TimeDifDays:          derived.TimeDifDays,
		RecoveryInches:       derived.RecoveryInches,
		FlowRateDays:         derived.FlowRateDays,
		RecoveryNeededInches: recoveryNeeded,
		DaysToPull:           daysToPull,
		AnomalyLevel:         string(level),
		ProcessedAt:          now,
	}
	if known {
		next := pkt.DateTime.Add(time.Duration(daysToPull * 24 * float64(time.Hour)))
		processed.NextPullTime = &next
	}

	if err := s.repo.InsertProcessedPacket(ctx, processed); err != nil {
		return err
	}

	// History now includes this pull; both daily-volume estimates see it.
	pulls, err := s.repo.HistoricalPulls(ctx, settings.Name, s.cfg.Production.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to load pull history: %w", err)
	}
	windowBbls := s.aggregator.WindowBblsPerDay(pulls, settings.Tanks, pkt.DateTime)
	overnightBbls := s.aggregator.OvernightBblsPerDay(pulls, settings.Tanks, pkt.DateTime)

	status := BuildWellStatus(statusInputs{
		settings:             settings,
		bblsPerFoot:          bblsPerFoot,
		packetID:             processed.PacketID,
		pullTime:             pkt.DateTime,
		tankAfterInches:      derived.TankAfterInches,
		bblsTaken:            bbls,
		driver:               pkt.DriverName,
		isDown:               pkt.WellDown,
		afrDays:              afrDays,
		windowBblsDay:        windowBbls,
		overnightBblsDay:     overnightBbls,
		recoveryNeededInches: recoveryNeeded,
		daysToPull:           daysToPull,
		estimateKnown:        known,
	}, now)

	if err := s.writeStatus(ctx, status, afrDays, logger); err != nil {
		return err
	}

	wellKey := packetkey.StripSpaces(settings.Name)
	prodDate := prodday.ProductionDate(pkt.DateTime)

	if pkt.PredictedLevelInches != nil {
		sample := &db.PerformanceSample{
			WellKey:         wellKey,
			Timestamp:       pkt.DateTime,
			Date:            prodDate,
			ActualInches:    tankTop,
			PredictedInches: *pkt.PredictedLevelInches,
		}
		if err := s.repo.InsertPerformanceSample(ctx, sample); err != nil {
			return err
		}
	}

	entry := &db.ProductionLogEntry{
		WellKey:          wellKey,
		Date:             prodDate,
		AfrBblsDay:       status.Bbls24Hrs,
		WindowBblsDay:    windowBbls,
		OvernightBblsDay: overnightBbls,
		UpdatedAt:        now,
	}
	if err := s.repo.UpsertProductionLog(ctx, entry); err != nil {
		return err
	}

	if _, err := s.repo.DeleteIncomingPacket(ctx, pkt.PacketKey); err != nil {
		return err
	}

	s.metrics.PacketsProcessed.WithLabelValues(db.RequestTypePull).Inc()
	logger.Info("pull processed",
		zap.Float64("tank_after_inches", derived.TankAfterInches),
		zap.Float64("flow_rate_days", derived.FlowRateDays),
		zap.Float64("afr_days", afrDays),
		zap.String("anomaly_level", string(level)),
	)

	return nil
}

// pullTankTopInches prefers an explicit inches gauge over the feet reading.
func pullTankTopInches(pkt *db.PullPacket) float64 {
	if pkt.TankTopInches != nil && *pkt.TankTopInches > 0 {
		return *pkt.TankTopInches
	}
	if pkt.TankLevelFeet != nil {
		return *pkt.TankLevelFeet * 12
	}
	return 0
}
