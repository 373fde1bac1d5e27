package main

import (
	"github.com/bakkenops/tank-pull-worker/internal/config"
	"github.com/bakkenops/tank-pull-worker/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
