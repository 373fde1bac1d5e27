package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithPacketKey returns a logger with packet_key field
func WithPacketKey(logger *zap.Logger, packetKey string) *zap.Logger {
	return logger.With(zap.String("packet_key", packetKey))
}

// WithWell returns a logger with well field
func WithWell(logger *zap.Logger, wellName string) *zap.Logger {
	return logger.With(zap.String("well", wellName))
}
