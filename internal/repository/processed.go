package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/bakkenops/tank-pull-worker/internal/production"
	"github.com/jackc/pgx/v5"
)

// historyFilter excludes rows that must not feed flow-rate history scans:
// edit/history key artifacts, edited rows, and imported well-history stubs.
const historyFilter = `
	packet_id NOT LIKE 'edit\_%'
	AND packet_id NOT LIKE 'history\_%'
	AND NOT was_edited
	AND request_type <> 'wellHistory'
`

const processedColumns = `
	packet_id, well_name, request_type, date_time,
	tank_level_feet, tank_top_inches, tank_after_inches, bbls_taken,
	driver_name, driver_id, well_down,
	time_dif_days, recovery_inches, flow_rate_days,
	recovery_needed_inches, days_to_pull, next_pull_time,
	anomaly_level, was_edited, processed_at, edited_at, edited_by
`

// InsertProcessedPacket writes a new history record.
func (r *Repository) InsertProcessedPacket(ctx context.Context, p *db.ProcessedPacket) error {
	query := `
		INSERT INTO packets_processed (` + processedColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.pool.Exec(ctx, query, processedArgs(p)...)
	if err != nil {
		return fmt.Errorf("failed to insert processed packet: %w", err)
	}

	return nil
}

// UpdateProcessedPacket overwrites a history record in place (edits).
func (r *Repository) UpdateProcessedPacket(ctx context.Context, p *db.ProcessedPacket) error {
	query := `
		UPDATE packets_processed SET
			well_name = $2, request_type = $3, date_time = $4,
			tank_level_feet = $5, tank_top_inches = $6, tank_after_inches = $7, bbls_taken = $8,
			driver_name = $9, driver_id = $10, well_down = $11,
			time_dif_days = $12, recovery_inches = $13, flow_rate_days = $14,
			recovery_needed_inches = $15, days_to_pull = $16, next_pull_time = $17,
			anomaly_level = $18, was_edited = $19, processed_at = $20, edited_at = $21, edited_by = $22
		WHERE packet_id = $1
	`

	_, err := r.pool.Exec(ctx, query, processedArgs(p)...)
	if err != nil {
		return fmt.Errorf("failed to update processed packet: %w", err)
	}

	return nil
}

// GetProcessedPacket loads a history record by id. Returns nil without
// error when the id is unknown.
func (r *Repository) GetProcessedPacket(ctx context.Context, packetID string) (*db.ProcessedPacket, error) {
	query := `SELECT ` + processedColumns + ` FROM packets_processed WHERE packet_id = $1`

	p, err := scanProcessedPacket(r.pool.QueryRow(ctx, query, packetID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query processed packet: %w", err)
	}

	return p, nil
}

// DeleteProcessedPacket removes a history record. Returns whether a row
// actually existed.
func (r *Repository) DeleteProcessedPacket(ctx context.Context, packetID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM packets_processed WHERE packet_id = $1`, packetID)
	if err != nil {
		return false, fmt.Errorf("failed to delete processed packet: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RecentFlowRates returns the well's most recent positive per-pull flow
// rates in chronological order, for the estimator and anomaly filter.
// excludeID drops one packet from the scan (an edit must not see the row
// it is rewriting); pass empty to include everything.
func (r *Repository) RecentFlowRates(ctx context.Context, wellName string, limit int, excludeID string) ([]float64, error) {
	query := `
		SELECT flow_rate_days
		FROM packets_processed
		WHERE well_name = $1 AND flow_rate_days > 0 AND packet_id <> $3 AND ` + historyFilter + `
		ORDER BY date_time DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, wellName, limit, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent flow rates: %w", err)
	}
	defer rows.Close()

	var rates []float64
	for rows.Next() {
		var rate float64
		if err := rows.Scan(&rate); err != nil {
			return nil, fmt.Errorf("failed to scan flow rate: %w", err)
		}
		rates = append(rates, rate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	// Query returns newest first; the filter needs oldest first.
	for i, j := 0, len(rates)-1; i < j; i, j = i+1, j-1 {
		rates[i], rates[j] = rates[j], rates[i]
	}

	return rates, nil
}

// HistoricalPulls projects the well's recent processed history into the
// aggregator's input form, oldest first.
func (r *Repository) HistoricalPulls(ctx context.Context, wellName string, limit int) ([]production.Pull, error) {
	query := `
		SELECT date_time, tank_level_feet, bbls_taken, well_down
		FROM packets_processed
		WHERE well_name = $1
		  AND packet_id NOT LIKE 'edit\_%'
		  AND packet_id NOT LIKE 'history\_%'
		  AND request_type <> 'wellHistory'
		ORDER BY date_time DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, wellName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical pulls: %w", err)
	}
	defer rows.Close()

	var pulls []production.Pull
	for rows.Next() {
		var p production.Pull
		if err := rows.Scan(&p.Timestamp, &p.TankLevelFeet, &p.BblsTaken, &p.WellDown); err != nil {
			return nil, fmt.Errorf("failed to scan historical pull: %w", err)
		}
		pulls = append(pulls, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	for i, j := 0, len(pulls)-1; i < j; i, j = i+1, j-1 {
		pulls[i], pulls[j] = pulls[j], pulls[i]
	}

	return pulls, nil
}

// PriorProcessedPacket returns the packet chronologically immediately
// before the given time for the well, excluding one id (an edited packet
// must not be its own predecessor). Nil when none exists.
func (r *Repository) PriorProcessedPacket(ctx context.Context, wellName string, before time.Time, excludeID string) (*db.ProcessedPacket, error) {
	query := `
		SELECT ` + processedColumns + `
		FROM packets_processed
		WHERE well_name = $1 AND date_time < $2 AND packet_id <> $3
		ORDER BY date_time DESC
		LIMIT 1
	`

	p, err := scanProcessedPacket(r.pool.QueryRow(ctx, query, wellName, before, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query prior processed packet: %w", err)
	}

	return p, nil
}

// LatestProcessedPacket returns the well's most recent remaining history
// record by timestamp, or nil if the well has none.
func (r *Repository) LatestProcessedPacket(ctx context.Context, wellName string) (*db.ProcessedPacket, error) {
	query := `
		SELECT ` + processedColumns + `
		FROM packets_processed
		WHERE well_name = $1
		ORDER BY date_time DESC
		LIMIT 1
	`

	p, err := scanProcessedPacket(r.pool.QueryRow(ctx, query, wellName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest processed packet: %w", err)
	}

	return p, nil
}

// LatestProcessedAt returns the newest processed_at across all wells, for
// the health monitor. Nil when no history exists at all.
func (r *Repository) LatestProcessedAt(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `SELECT max(processed_at) FROM packets_processed`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest processed time: %w", err)
	}
	return latest, nil
}

func processedArgs(p *db.ProcessedPacket) []any {
	return []any{
		p.PacketID,
		p.WellName,
		p.RequestType,
		p.DateTime,
		p.TankLevelFeet,
		p.TankTopInches,
		p.TankAfterInches,
		p.BblsTaken,
		p.DriverName,
		p.DriverID,
		p.WellDown,
		p.TimeDifDays,
		p.RecoveryInches,
		p.FlowRateDays,
		p.RecoveryNeededInches,
		p.DaysToPull,
		p.NextPullTime,
		p.AnomalyLevel,
		p.WasEdited,
		p.ProcessedAt,
		p.EditedAt,
		p.EditedBy,
	}
}

func scanProcessedPacket(row pgx.Row) (*db.ProcessedPacket, error) {
	var p db.ProcessedPacket
	err := row.Scan(
		&p.PacketID,
		&p.WellName,
		&p.RequestType,
		&p.DateTime,
		&p.TankLevelFeet,
		&p.TankTopInches,
		&p.TankAfterInches,
		&p.BblsTaken,
		&p.DriverName,
		&p.DriverID,
		&p.WellDown,
		&p.TimeDifDays,
		&p.RecoveryInches,
		&p.FlowRateDays,
		&p.RecoveryNeededInches,
		&p.DaysToPull,
		&p.NextPullTime,
		&p.AnomalyLevel,
		&p.WasEdited,
		&p.ProcessedAt,
		&p.EditedAt,
		&p.EditedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
