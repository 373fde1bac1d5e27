package config_test

import (
	"testing"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/tankpull")
	t.Setenv("RABBITMQ_URL", "amqp://localhost:5672")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.ServiceName != "tank-pull-worker" {
		t.Errorf("Unexpected service name %q", cfg.ServiceName)
	}
	if cfg.Wells.BblsPerFoot != 20 {
		t.Errorf("Expected 20 bbls/ft default, got %v", cfg.Wells.BblsPerFoot)
	}
	if cfg.Estimator.FlagRatio != 1.5 || cfg.Estimator.AnomalyRatio != 2.0 {
		t.Errorf("Unexpected filter ratios: %v / %v", cfg.Estimator.FlagRatio, cfg.Estimator.AnomalyRatio)
	}
	if cfg.Watchdog.Interval != 5*time.Minute || cfg.Watchdog.StaleAfter != 2*time.Minute {
		t.Errorf("Unexpected watchdog timing: %v / %v", cfg.Watchdog.Interval, cfg.Watchdog.StaleAfter)
	}
	if cfg.Health.WarningStuck != 5 || cfg.Health.CriticalStuck != 20 {
		t.Errorf("Unexpected health thresholds: %d / %d", cfg.Health.WarningStuck, cfg.Health.CriticalStuck)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/tankpull")
	t.Setenv("RABBITMQ_URL", "amqp://localhost:5672")
	t.Setenv("AFR_ROLLING_WINDOW", "7")
	t.Setenv("WATCHDOG_STALE_AFTER", "90s")
	t.Setenv("WELL_DEFAULT_TANKS", "2.5")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Estimator.RollingWindow != 7 {
		t.Errorf("Expected rolling window 7, got %d", cfg.Estimator.RollingWindow)
	}
	if cfg.Watchdog.StaleAfter != 90*time.Second {
		t.Errorf("Expected 90s stale-after, got %v", cfg.Watchdog.StaleAfter)
	}
	if cfg.Wells.DefaultTanks != 2.5 {
		t.Errorf("Expected 2.5 default tanks, got %v", cfg.Wells.DefaultTanks)
	}
}

func TestLoad_RequiredVariables(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RABBITMQ_URL", "amqp://localhost:5672")
	if _, err := config.Load(); err == nil {
		t.Error("Expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost:5432/tankpull")
	t.Setenv("RABBITMQ_URL", "")
	if _, err := config.Load(); err == nil {
		t.Error("Expected error when RABBITMQ_URL is missing")
	}
}
