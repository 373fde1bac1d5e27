package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/jackc/pgx/v5"
)

// UpsertProductionLog creates or updates the well's production-day record.
// The first pull of the day creates the row with pull_count 1; later pulls
// refresh the volumes and increment the count.
func (r *Repository) UpsertProductionLog(ctx context.Context, entry *db.ProductionLogEntry) error {
	query := `
		INSERT INTO production_log (
			well_key, prod_date, afr_bbls_day, window_bbls_day,
			overnight_bbls_day, updated_at, pull_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		ON CONFLICT (well_key, prod_date) DO UPDATE SET
			afr_bbls_day = EXCLUDED.afr_bbls_day,
			window_bbls_day = EXCLUDED.window_bbls_day,
			overnight_bbls_day = EXCLUDED.overnight_bbls_day,
			updated_at = EXCLUDED.updated_at,
			pull_count = production_log.pull_count + 1
	`

	_, err := r.pool.Exec(ctx, query,
		entry.WellKey,
		entry.Date,
		entry.AfrBblsDay,
		entry.WindowBblsDay,
		entry.OvernightBblsDay,
		entry.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert production log: %w", err)
	}

	return nil
}

// InsertPerformanceSample records a predicted-vs-actual level sample.
func (r *Repository) InsertPerformanceSample(ctx context.Context, sample *db.PerformanceSample) error {
	query := `
		INSERT INTO performance_rows (well_key, ts, sample_date, actual_inches, predicted_inches)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		sample.WellKey,
		sample.Timestamp,
		sample.Date,
		sample.ActualInches,
		sample.PredictedInches,
	)

	if err != nil {
		return fmt.Errorf("failed to insert performance sample: %w", err)
	}

	return nil
}

// WriteHealthSummary upserts a named system-health document.
func (r *Repository) WriteHealthSummary(ctx context.Context, name, status string, detail map[string]any, at time.Time) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to marshal health detail: %w", err)
	}

	query := `
		INSERT INTO system_health (name, status, detail, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			status = EXCLUDED.status,
			detail = EXCLUDED.detail,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.pool.Exec(ctx, query, name, status, payload, at); err != nil {
		return fmt.Errorf("failed to write health summary: %w", err)
	}

	return nil
}

// GetHealthSummary reads a named system-health document. Returns nil when
// no summary has been written yet.
func (r *Repository) GetHealthSummary(ctx context.Context, name string) (*db.HealthSummary, error) {
	query := `SELECT name, status, detail, updated_at FROM system_health WHERE name = $1`

	var (
		summary db.HealthSummary
		payload []byte
	)
	err := r.pool.QueryRow(ctx, query, name).Scan(&summary.Name, &summary.Status, &payload, &summary.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query health summary: %w", err)
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &summary.Detail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal health detail: %w", err)
		}
	}

	return &summary, nil
}
