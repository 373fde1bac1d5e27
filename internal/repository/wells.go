package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/jackc/pgx/v5"
)

const wellConfigColumns = `
	well_name, tanks, bottom_level_feet, pull_bbls, route,
	avg_flow_rate_display, minutes_per_foot
`

// GetWellConfig resolves a well's configuration, trying the exact name
// first and then the legacy no-space key. Returns nil without error when
// the well is missing from config entirely.
func (r *Repository) GetWellConfig(ctx context.Context, wellName string) (*db.WellConfig, error) {
	query := `SELECT ` + wellConfigColumns + ` FROM well_config WHERE well_name = $1`

	cfg, err := scanWellConfig(r.pool.QueryRow(ctx, query, wellName))
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to query well config: %w", err)
	}

	// Legacy rows were keyed with spaces stripped from the well name.
	fallback := `SELECT ` + wellConfigColumns + ` FROM well_config WHERE replace(well_name, ' ', '') = replace($1, ' ', '')`
	cfg, err = scanWellConfig(r.pool.QueryRow(ctx, fallback, wellName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query well config by no-space key: %w", err)
	}

	return cfg, nil
}

// UpdateWellConfigAFR writes the cached flow-rate display fields back onto
// the well's config row for dashboard consumption.
func (r *Repository) UpdateWellConfigAFR(ctx context.Context, wellName, display string, minutesPerFoot float64) error {
	query := `
		UPDATE well_config
		SET avg_flow_rate_display = $2, minutes_per_foot = $3
		WHERE well_name = $1 OR replace(well_name, ' ', '') = replace($1, ' ', '')
	`

	_, err := r.pool.Exec(ctx, query, wellName, display, minutesPerFoot)
	if err != nil {
		return fmt.Errorf("failed to update cached flow rate: %w", err)
	}

	return nil
}

// CountConfigWells returns the number of configured wells.
func (r *Repository) CountConfigWells(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM well_config`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count config wells: %w", err)
	}
	return count, nil
}

const wellStatusColumns = `
	response_key, well_name, current_level_display, current_level_inches,
	flow_rate_display, flow_rate_days, bbls_24hrs, window_bbls_day,
	overnight_bbls_day, time_till_pull, next_pull_time,
	last_pull_level_inches, last_pull_bbls, last_pull_driver,
	last_pull_time, last_pull_packet_id, is_down, updated_at
`

// ReplaceWellStatus deletes every status row for the well and inserts the
// new one, in a single transaction. The transaction keeps the one-live-row
// invariant even when two handlers race on the same well.
func (r *Repository) ReplaceWellStatus(ctx context.Context, status *db.WellStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin status replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM packets_outgoing WHERE well_name = $1`, status.WellName); err != nil {
		return fmt.Errorf("failed to delete prior status rows: %w", err)
	}

	insert := `
		INSERT INTO packets_outgoing (` + wellStatusColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = tx.Exec(ctx, insert,
		status.ResponseKey,
		status.WellName,
		status.CurrentLevelDisplay,
		status.CurrentLevelInches,
		status.FlowRateDisplay,
		status.FlowRateDays,
		status.Bbls24Hrs,
		status.WindowBblsDay,
		status.OvernightBblsDay,
		status.TimeTillPull,
		status.NextPullTime,
		status.LastPullLevelInches,
		status.LastPullBbls,
		status.LastPullDriver,
		status.LastPullTime,
		status.LastPullPacketID,
		status.IsDown,
		status.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert status row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit status replace: %w", err)
	}

	return nil
}

// GetWellStatus returns the well's current status, or nil when the well
// has no live status document.
func (r *Repository) GetWellStatus(ctx context.Context, wellName string) (*db.WellStatus, error) {
	query := `
		SELECT ` + wellStatusColumns + `
		FROM packets_outgoing
		WHERE well_name = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var s db.WellStatus
	err := r.pool.QueryRow(ctx, query, wellName).Scan(
		&s.ResponseKey,
		&s.WellName,
		&s.CurrentLevelDisplay,
		&s.CurrentLevelInches,
		&s.FlowRateDisplay,
		&s.FlowRateDays,
		&s.Bbls24Hrs,
		&s.WindowBblsDay,
		&s.OvernightBblsDay,
		&s.TimeTillPull,
		&s.NextPullTime,
		&s.LastPullLevelInches,
		&s.LastPullBbls,
		&s.LastPullDriver,
		&s.LastPullTime,
		&s.LastPullPacketID,
		&s.IsDown,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query well status: %w", err)
	}

	return &s, nil
}

// ClearWellStatus removes every status row for the well. Used when the
// last processed packet for a well is deleted.
func (r *Repository) ClearWellStatus(ctx context.Context, wellName string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM packets_outgoing WHERE well_name = $1`, wellName); err != nil {
		return fmt.Errorf("failed to clear well status: %w", err)
	}
	return nil
}

// CountStatusWells returns the number of wells with a live status row.
func (r *Repository) CountStatusWells(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(DISTINCT well_name) FROM packets_outgoing`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count status wells: %w", err)
	}
	return count, nil
}

func scanWellConfig(row pgx.Row) (*db.WellConfig, error) {
	var cfg db.WellConfig
	err := row.Scan(
		&cfg.WellName,
		&cfg.Tanks,
		&cfg.BottomLevelFeet,
		&cfg.PullBbls,
		&cfg.Route,
		&cfg.AvgFlowRateDisplay,
		&cfg.MinutesPerFoot,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
