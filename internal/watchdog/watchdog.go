package watchdog

import (
	"context"
	"sort"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/config"
	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/bakkenops/tank-pull-worker/internal/mq"
	"github.com/bakkenops/tank-pull-worker/internal/observability"
	"github.com/bakkenops/tank-pull-worker/internal/repository"
	"github.com/bakkenops/tank-pull-worker/tools/packetkey"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Watchdog reconciles the inbox on a timer. Packets whose notification was
// lost sit in the inbox forever; the watchdog rewrites them under a fresh
// key and republishes, forcing the handlers to fire again. Duplicate
// submissions of the same logical event are collapsed to the earliest one.
type Watchdog struct {
	repo      *repository.Repository
	publisher *mq.Publisher
	cfg       *config.Config
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewWatchdog creates a watchdog over the given clock. Tests inject a fake
// clock to step through sweeps deterministically.
func NewWatchdog(
	repo *repository.Repository,
	publisher *mq.Publisher,
	cfg *config.Config,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Watchdog {
	return &Watchdog{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run sweeps the inbox on the configured interval until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.cfg.Watchdog.Interval)
	defer ticker.Stop()

	w.logger.Info("watchdog started", zap.Duration("interval", w.cfg.Watchdog.Interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopped")
			return
		case <-ticker.Chan():
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("watchdog sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepPlan is the action list one reconciliation pass derived from the
// current inbox contents.
type SweepPlan struct {
	DuplicateKeys []string        // exact duplicates to delete
	Stranded      []db.PullPacket // unique packets old enough to retrigger
}

// PlanSweep groups inbox packets by (event timestamp, well name), marks all
// but the earliest arrival of each group as duplicates, and marks remaining
// packets older than staleAfter as stranded. Arrival time comes from the
// packet key; a key without a parsable prefix counts as already stale.
func PlanSweep(packets []db.PullPacket, now time.Time, staleAfter time.Duration) SweepPlan {
	type groupKey struct {
		eventTime int64
		wellName  string
	}

	groups := make(map[groupKey][]db.PullPacket)
	for _, pkt := range packets {
		k := groupKey{eventTime: pkt.DateTime.Unix(), wellName: pkt.WellName}
		groups[k] = append(groups[k], pkt)
	}

	var plan SweepPlan
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return arrivalOf(group[i]).Before(arrivalOf(group[j]))
		})

		keeper := group[0]
		for _, dup := range group[1:] {
			plan.DuplicateKeys = append(plan.DuplicateKeys, dup.PacketKey)
		}

		arrival, err := packetkey.ArrivalTime(keeper.PacketKey)
		if err != nil || now.Sub(arrival) > staleAfter {
			plan.Stranded = append(plan.Stranded, keeper)
		}
	}

	return plan
}

func arrivalOf(pkt db.PullPacket) time.Time {
	if t, err := packetkey.ArrivalTime(pkt.PacketKey); err == nil {
		return t
	}
	// Unparsable keys sort last so a well-formed submission wins.
	return time.Unix(1<<60, 0)
}

// Sweep runs one reconciliation pass and records a summary document.
func (w *Watchdog) Sweep(ctx context.Context) error {
	packets, err := w.repo.ListIncomingPackets(ctx)
	if err != nil {
		w.writeSummary(ctx, "error", 0, 0)
		return err
	}

	w.metrics.InboxDepth.Set(float64(len(packets)))

	plan := PlanSweep(packets, w.clock.Now().UTC(), w.cfg.Watchdog.StaleAfter)

	duplicatesDeleted := 0
	for _, key := range plan.DuplicateKeys {
		deleted, err := w.repo.DeleteIncomingPacket(ctx, key)
		if err != nil {
			w.logger.Error("failed to delete duplicate packet", zap.Error(err), zap.String("packet_key", key))
			continue
		}
		if deleted {
			duplicatesDeleted++
			w.metrics.WatchdogDuplicates.Inc()
		}
	}

	retriggered := 0
	for _, pkt := range plan.Stranded {
		if err := w.retrigger(ctx, pkt); err != nil {
			w.logger.Error("failed to retrigger stranded packet", zap.Error(err), zap.String("packet_key", pkt.PacketKey))
			continue
		}
		retriggered++
		w.metrics.WatchdogRetriggered.Inc()
		// Pace the rewrites so a big backlog doesn't become a write burst.
		w.clock.Sleep(w.cfg.Watchdog.RewriteDelay)
	}

	if duplicatesDeleted > 0 || retriggered > 0 {
		w.logger.Info("watchdog sweep finished",
			zap.Int("duplicates_deleted", duplicatesDeleted),
			zap.Int("retriggered", retriggered),
		)
	}

	w.writeSummary(ctx, "ok", retriggered, duplicatesDeleted)
	return nil
}

// retrigger rewrites a stranded packet under a fresh key and republishes
// its notification so the creation-triggered handlers fire again.
func (w *Watchdog) retrigger(ctx context.Context, pkt db.PullPacket) error {
	deleted, err := w.repo.DeleteIncomingPacket(ctx, pkt.PacketKey)
	if err != nil {
		return err
	}
	if !deleted {
		// A handler consumed it between the scan and now.
		return nil
	}

	now := w.clock.Now().UTC()
	rewritten := pkt
	rewritten.PacketKey = packetkey.Generate(now, pkt.WellName)
	rewritten.RetriggeredFrom = pkt.PacketKey
	rewritten.CreatedAt = now

	if err := w.repo.InsertIncomingPacket(ctx, &rewritten); err != nil {
		return err
	}

	return w.publisher.PublishPacketNotification(ctx,
		w.cfg.RabbitMQ.PacketExchange,
		w.cfg.RabbitMQ.RetriggerRoutingKey,
		mq.PacketNotification{
			PacketKey:       rewritten.PacketKey,
			RetriggeredFrom: pkt.PacketKey,
		},
	)
}

func (w *Watchdog) writeSummary(ctx context.Context, status string, stranded, duplicates int) {
	detail := map[string]any{
		"stranded_retriggered": stranded,
		"duplicates_deleted":   duplicates,
	}
	if err := w.repo.WriteHealthSummary(ctx, "watchdog", status, detail, w.clock.Now().UTC()); err != nil {
		w.logger.Error("failed to write watchdog summary", zap.Error(err))
	}
}
