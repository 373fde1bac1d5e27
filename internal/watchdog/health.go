package watchdog

import (
	"context"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/config"
	"github.com/bakkenops/tank-pull-worker/internal/repository"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// HealthMonitor periodically derives an overall system status from pipeline
// freshness and inbox depth, and records it for the dashboard. Failures in
// this core never propagate to callers; the summary document is the only
// place they surface.
type HealthMonitor struct {
	repo   *repository.Repository
	cfg    *config.Config
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewHealthMonitor creates a health monitor over the given clock.
func NewHealthMonitor(repo *repository.Repository, cfg *config.Config, clock clockwork.Clock, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		repo:   repo,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// Run checks system health on the configured interval until ctx is
// cancelled.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.cfg.Health.Interval)
	defer ticker.Stop()

	m.logger.Info("health monitor started", zap.Duration("interval", m.cfg.Health.Interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("health monitor stopped")
			return
		case <-ticker.Chan():
			if err := m.Check(ctx); err != nil {
				m.logger.Error("health check failed", zap.Error(err))
			}
		}
	}
}

// Check runs one health evaluation and writes the overall summary.
func (m *HealthMonitor) Check(ctx context.Context) error {
	now := m.clock.Now().UTC()

	stuck, err := m.repo.CountIncomingPackets(ctx)
	if err != nil {
		return err
	}

	latest, err := m.repo.LatestProcessedAt(ctx)
	if err != nil {
		return err
	}

	configWells, err := m.repo.CountConfigWells(ctx)
	if err != nil {
		return err
	}

	statusWells, err := m.repo.CountStatusWells(ctx)
	if err != nil {
		return err
	}

	status := StuckStatus(stuck, m.cfg.Health.WarningStuck, m.cfg.Health.CriticalStuck)

	detail := map[string]any{
		"stuck_packets": stuck,
		"config_wells":  configWells,
		"status_wells":  statusWells,
	}
	if latest != nil {
		detail["latest_processed_age_minutes"] = int(now.Sub(*latest) / time.Minute)
	}

	if status != "ok" {
		m.logger.Warn("system health degraded", zap.String("status", status), zap.Int("stuck_packets", stuck))
	}

	return m.repo.WriteHealthSummary(ctx, "overall", status, detail, now)
}

// StuckStatus maps the inbox backlog onto the overall status tiers.
func StuckStatus(stuck, warningAt, criticalAt int) string {
	switch {
	case stuck > criticalAt:
		return "critical"
	case stuck > warningAt:
		return "warning"
	default:
		return "ok"
	}
}
