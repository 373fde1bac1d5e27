package main

import (
	"context"

	"github.com/bakkenops/tank-pull-worker/internal/afr"
	"github.com/bakkenops/tank-pull-worker/internal/anomaly"
	"github.com/bakkenops/tank-pull-worker/internal/config"
	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/bakkenops/tank-pull-worker/internal/httpapi"
	"github.com/bakkenops/tank-pull-worker/internal/mq"
	"github.com/bakkenops/tank-pull-worker/internal/observability"
	"github.com/bakkenops/tank-pull-worker/internal/production"
	"github.com/bakkenops/tank-pull-worker/internal/repository"
	"github.com/bakkenops/tank-pull-worker/internal/service"
	"github.com/bakkenops/tank-pull-worker/internal/watchdog"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	svc *service.Service,
) (*mq.Consumer, error) {
	// Create context for consumer that will be cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection: conn,
		Queue:      cfg.RabbitMQ.PacketQueue,
		DLQQueue:   cfg.RabbitMQ.DLQQueue,
		Exchange:   cfg.RabbitMQ.PacketExchange,
		BindingKeys: []string{
			cfg.RabbitMQ.PacketRoutingKey,
			cfg.RabbitMQ.RetriggerRoutingKey,
		},
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: svc.ProcessMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	// Register lifecycle hooks
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting worker consumer",
				zap.String("queue", cfg.RabbitMQ.PacketQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

// startWatchdogs runs the inbox reconciler and the health monitor on their
// own timers, independent of packet handling.
func startWatchdogs(lc fx.Lifecycle, wd *watchdog.Watchdog, hm *watchdog.HealthMonitor) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			go wd.Run(ctx)
			go hm.Run(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			return nil
		},
	})
}

// startHTTP forces construction of the HTTP server; its fx lifecycle hooks
// do the actual serving.
func startHTTP(_ *httpapi.Server) {}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideClock provides the real clock; tests substitute a fake one
func ProvideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

// ProvideMetrics creates and registers the pipeline metrics
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics()
}

// ProvideAnomalyFilter creates a new anomaly filter instance
func ProvideAnomalyFilter(cfg *config.Config) *anomaly.Filter {
	return anomaly.NewFilter(cfg.Estimator.FlagRatio, cfg.Estimator.AnomalyRatio, cfg.Estimator.MinKnownGood)
}

// ProvideEstimator creates a new flow-rate estimator instance
func ProvideEstimator(cfg *config.Config, filter *anomaly.Filter) *afr.Estimator {
	return afr.NewEstimator(filter,
		cfg.Estimator.RollingWindow,
		cfg.Estimator.StepMinRates,
		cfg.Estimator.StepLookback,
		cfg.Estimator.StepThreshold)
}

// ProvideAggregator creates a new production aggregator instance
func ProvideAggregator(cfg *config.Config) *production.Aggregator {
	return production.NewAggregator(cfg.Production.MaxRateDays, cfg.Wells.BblsPerFoot)
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	exchanges := []string{cfg.RabbitMQ.PacketExchange, cfg.RabbitMQ.StatusExchange}
	return mq.NewPublisher(conn, exchanges, logger)
}

// ProvideService creates the packet processing service
func ProvideService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	filter *anomaly.Filter,
	estimator *afr.Estimator,
	aggregator *production.Aggregator,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *service.Service {
	return service.NewService(repo, publisher, filter, estimator, aggregator, cfg, metrics, logger)
}

// ProvideWatchdog creates the inbox reconciler
func ProvideWatchdog(
	repo *repository.Repository,
	publisher *mq.Publisher,
	cfg *config.Config,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *watchdog.Watchdog {
	return watchdog.NewWatchdog(repo, publisher, cfg, clock, metrics, logger)
}

// ProvideHealthMonitor creates the system health monitor
func ProvideHealthMonitor(
	repo *repository.Repository,
	cfg *config.Config,
	clock clockwork.Clock,
	logger *zap.Logger,
) *watchdog.HealthMonitor {
	return watchdog.NewHealthMonitor(repo, cfg, clock, logger)
}

// ProvideHTTPServer creates the metrics and status HTTP server
func ProvideHTTPServer(lc fx.Lifecycle, cfg *config.Config, repo *repository.Repository, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(lc, cfg, repo, logger)
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}
