package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/afr"
	"github.com/bakkenops/tank-pull-worker/internal/anomaly"
	"github.com/bakkenops/tank-pull-worker/internal/config"
	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/bakkenops/tank-pull-worker/internal/logging"
	"github.com/bakkenops/tank-pull-worker/internal/mq"
	"github.com/bakkenops/tank-pull-worker/internal/observability"
	"github.com/bakkenops/tank-pull-worker/internal/production"
	"github.com/bakkenops/tank-pull-worker/internal/repository"
	"go.uber.org/zap"
)

// Service processes inbox packets. Every notification runs all three typed
// handlers; each handler no-ops unless the packet's requestType matches its
// role, so a packet is consumed by exactly one of them.
type Service struct {
	repo       *repository.Repository
	publisher  *mq.Publisher
	filter     *anomaly.Filter
	estimator  *afr.Estimator
	aggregator *production.Aggregator
	cfg        *config.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewService creates a new packet processing service
func NewService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	filter *anomaly.Filter,
	estimator *afr.Estimator,
	aggregator *production.Aggregator,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		publisher:  publisher,
		filter:     filter,
		estimator:  estimator,
		aggregator: aggregator,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// ProcessMessage handles one packet notification from the queue. Delivery
// is at-least-once: if the inbox row is already gone the packet was
// consumed by an earlier delivery and the notification is a no-op.
func (s *Service) ProcessMessage(ctx context.Context, body []byte) error {
	started := time.Now()

	var n mq.PacketNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("failed to unmarshal packet notification: %w", err)
	}

	pktLogger := logging.WithPacketKey(s.logger, n.PacketKey)

	pkt, err := s.repo.GetIncomingPacket(ctx, n.PacketKey)
	if err != nil {
		pktLogger.Error("failed to load incoming packet", zap.Error(err))
		return fmt.Errorf("failed to load incoming packet: %w", err)
	}
	if pkt == nil {
		pktLogger.Debug("incoming packet already consumed, skipping")
		s.metrics.PacketsSkipped.Inc()
		return nil
	}

	pktLogger = logging.WithWell(pktLogger, pkt.WellName)
	pktLogger.Info("processing packet",
		zap.String("request_type", effectiveRequestType(pkt)),
		zap.String("retriggered_from", pkt.RetriggeredFrom),
	)

	if err := s.handlePull(ctx, pkt, pktLogger); err != nil {
		return fmt.Errorf("pull handler: %w", err)
	}
	if err := s.handleEdit(ctx, pkt, pktLogger); err != nil {
		return fmt.Errorf("edit handler: %w", err)
	}
	if err := s.handleDelete(ctx, pkt, pktLogger); err != nil {
		return fmt.Errorf("delete handler: %w", err)
	}

	s.metrics.ProcessingDuration.Observe(time.Since(started).Seconds())
	return nil
}

// effectiveRequestType maps a missing requestType to pull.
func effectiveRequestType(pkt *db.PullPacket) string {
	if pkt.RequestType == "" {
		return db.RequestTypePull
	}
	return pkt.RequestType
}

// wellSettings is a well's resolved operating parameters: the config row
// when one exists, configurable defaults otherwise.
type wellSettings struct {
	Name            string
	Tanks           float64
	BottomLevelFeet float64
	PullBbls        float64
}

func (s *Service) resolveWellSettings(ctx context.Context, wellName string, logger *zap.Logger) (wellSettings, error) {
	cfg, err := s.repo.GetWellConfig(ctx, wellName)
	if err != nil {
		return wellSettings{}, err
	}
	if cfg == nil {
		logger.Warn("well missing from config, using defaults")
		return wellSettings{
			Name:            wellName,
			Tanks:           s.cfg.Wells.DefaultTanks,
			BottomLevelFeet: s.cfg.Wells.DefaultBottomLevelFeet,
			PullBbls:        s.cfg.Wells.DefaultPullBbls,
		}, nil
	}
	settings := wellSettings{
		Name:            cfg.WellName,
		Tanks:           cfg.Tanks,
		BottomLevelFeet: cfg.BottomLevelFeet,
		PullBbls:        cfg.PullBbls,
	}
	if settings.Tanks <= 0 {
		settings.Tanks = s.cfg.Wells.DefaultTanks
	}
	return settings, nil
}

// discardPacket drops a request that cannot produce side effects (bad
// payload, missing reference). The request is consumed, not retried.
func (s *Service) discardPacket(ctx context.Context, packetKey, reason string, logger *zap.Logger) error {
	logger.Warn("discarding packet", zap.String("reason", reason))
	s.metrics.PacketsRejected.Inc()
	if _, err := s.repo.DeleteIncomingPacket(ctx, packetKey); err != nil {
		return err
	}
	return nil
}

func validatePullPacket(pkt *db.PullPacket) string {
	if strings.TrimSpace(pkt.WellName) == "" {
		return "missing well name"
	}
	if pkt.DateTime.IsZero() {
		return "missing pull timestamp"
	}
	hasLevel := (pkt.TankLevelFeet != nil && *pkt.TankLevelFeet > 0) ||
		(pkt.TankTopInches != nil && *pkt.TankTopInches > 0)
	if !hasLevel && !pkt.WellDown {
		return "missing tank level"
	}
	if pkt.BblsTaken != nil && *pkt.BblsTaken < 0 {
		return "negative bbls taken"
	}
	return ""
}
