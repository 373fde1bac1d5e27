package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/afr"
	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/bakkenops/tank-pull-worker/internal/mq"
	"github.com/bakkenops/tank-pull-worker/internal/production"
	"github.com/bakkenops/tank-pull-worker/tools/packetkey"
	"github.com/bakkenops/tank-pull-worker/tools/prodday"
	"go.uber.org/zap"
)

// statusInputs collects everything the outgoing status document is built
// from: the last pull's measurements plus the estimator outputs.
type statusInputs struct {
	settings             wellSettings
	bblsPerFoot          float64
	packetID             string
	pullTime             time.Time
	tankAfterInches      float64
	bblsTaken            float64
	driver               string
	isDown               bool
	afrDays              float64
	windowBblsDay        int
	overnightBblsDay     int
	recoveryNeededInches float64
	daysToPull           float64
	estimateKnown        bool
}

// BuildWellStatus assembles the single live status document for a well.
func BuildWellStatus(in statusInputs, now time.Time) *db.WellStatus {
	status := &db.WellStatus{
		ResponseKey:         responseKey(in.settings.Name, now),
		WellName:            in.settings.Name,
		CurrentLevelDisplay: fmt.Sprintf("%.1f ft", in.tankAfterInches/12),
		CurrentLevelInches:  in.tankAfterInches,
		FlowRateDisplay:     afr.DisplayString(in.afrDays),
		FlowRateDays:        in.afrDays,
		Bbls24Hrs:           0,
		WindowBblsDay:       in.windowBblsDay,
		OvernightBblsDay:    in.overnightBblsDay,
		TimeTillPull:        "Unknown",
		LastPullLevelInches: in.tankAfterInches,
		LastPullBbls:        in.bblsTaken,
		LastPullDriver:      in.driver,
		LastPullTime:        in.pullTime,
		LastPullPacketID:    in.packetID,
		IsDown:              in.isDown,
		UpdatedAt:           now,
	}

	if in.afrDays > 0 {
		status.Bbls24Hrs = production.BblsPerDay(in.afrDays, in.settings.Tanks, in.bblsPerFoot)
	}

	if in.estimateKnown {
		next := in.pullTime.Add(time.Duration(in.daysToPull * 24 * float64(time.Hour)))
		status.NextPullTime = &next
		if in.daysToPull <= 0 {
			status.TimeTillPull = "Ready"
		} else {
			status.TimeTillPull = prodday.FormatDuration(next.Sub(in.pullTime))
		}
	}

	return status
}

func responseKey(wellName string, now time.Time) string {
	return "response_" + now.UTC().Format("20060102150405") + "_" + packetkey.StripSpaces(wellName)
}

// writeStatus replaces the well's live status document, refreshes the
// cached flow rate on the config row, and announces the change. The event
// publish is best-effort: the status row is already durable.
func (s *Service) writeStatus(ctx context.Context, status *db.WellStatus, afrDays float64, logger *zap.Logger) error {
	if err := s.repo.ReplaceWellStatus(ctx, status); err != nil {
		return err
	}

	if err := s.repo.UpdateWellConfigAFR(ctx, status.WellName, afr.DisplayString(afrDays), afr.MinutesPerFoot(afrDays)); err != nil {
		return err
	}

	event := mq.StatusUpdatedEvent{
		WellName:           status.WellName,
		PacketID:           status.LastPullPacketID,
		CurrentLevelInches: status.CurrentLevelInches,
		FlowRateDays:       status.FlowRateDays,
		NextPullTime:       status.NextPullTime,
		UpdatedAt:          status.UpdatedAt,
	}
	if err := s.publisher.PublishStatusUpdated(ctx, s.cfg.RabbitMQ.StatusExchange, s.cfg.RabbitMQ.StatusRoutingKey, event); err != nil {
		logger.Error("failed to publish status updated event", zap.Error(err))
	}

	return nil
}
