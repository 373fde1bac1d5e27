package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bakkenops/tank-pull-worker/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is an alias for pgx.Tx
type Tx = pgx.Tx

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertIncomingPacket appends a packet to the inbox. Used by the watchdog
// when rewriting stranded packets under a fresh key.
func (r *Repository) InsertIncomingPacket(ctx context.Context, pkt *db.PullPacket) error {
	query := `
		INSERT INTO packets_incoming (
			packet_key, well_name, request_type, target_packet_id, date_time,
			tank_level_feet, tank_top_inches, bbls_taken, driver_name, driver_id,
			well_down, predicted_level_inches, retriggered_from, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		pkt.PacketKey,
		pkt.WellName,
		pkt.RequestType,
		pkt.TargetPacketID,
		pkt.DateTime,
		pkt.TankLevelFeet,
		pkt.TankTopInches,
		pkt.BblsTaken,
		pkt.DriverName,
		pkt.DriverID,
		pkt.WellDown,
		pkt.PredictedLevelInches,
		pkt.RetriggeredFrom,
		pkt.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert incoming packet: %w", err)
	}

	return nil
}

// GetIncomingPacket loads an inbox entry by key. Returns nil without error
// when the packet has already been consumed.
func (r *Repository) GetIncomingPacket(ctx context.Context, packetKey string) (*db.PullPacket, error) {
	query := `
		SELECT packet_key, well_name, request_type, target_packet_id, date_time,
		       tank_level_feet, tank_top_inches, bbls_taken, driver_name, driver_id,
		       well_down, predicted_level_inches, retriggered_from, created_at
		FROM packets_incoming
		WHERE packet_key = $1
	`

	pkt, err := scanIncomingPacket(r.pool.QueryRow(ctx, query, packetKey))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query incoming packet: %w", err)
	}

	return pkt, nil
}

// DeleteIncomingPacket removes an inbox entry. The delete doubles as the
// ack: a false return means another invocation already consumed it.
func (r *Repository) DeleteIncomingPacket(ctx context.Context, packetKey string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM packets_incoming WHERE packet_key = $1`, packetKey)
	if err != nil {
		return false, fmt.Errorf("failed to delete incoming packet: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListIncomingPackets returns the whole inbox, oldest first. The watchdog
// scans this for duplicates and stranded work.
func (r *Repository) ListIncomingPackets(ctx context.Context) ([]db.PullPacket, error) {
	query := `
		SELECT packet_key, well_name, request_type, target_packet_id, date_time,
		       tank_level_feet, tank_top_inches, bbls_taken, driver_name, driver_id,
		       well_down, predicted_level_inches, retriggered_from, created_at
		FROM packets_incoming
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query incoming packets: %w", err)
	}
	defer rows.Close()

	var packets []db.PullPacket
	for rows.Next() {
		pkt, err := scanIncomingPacket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incoming packet: %w", err)
		}
		packets = append(packets, *pkt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return packets, nil
}

// CountIncomingPackets returns the inbox depth for health reporting.
func (r *Repository) CountIncomingPackets(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM packets_incoming`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count incoming packets: %w", err)
	}
	return count, nil
}

func scanIncomingPacket(row pgx.Row) (*db.PullPacket, error) {
	var pkt db.PullPacket
	err := row.Scan(
		&pkt.PacketKey,
		&pkt.WellName,
		&pkt.RequestType,
		&pkt.TargetPacketID,
		&pkt.DateTime,
		&pkt.TankLevelFeet,
		&pkt.TankTopInches,
		&pkt.BblsTaken,
		&pkt.DriverName,
		&pkt.DriverID,
		&pkt.WellDown,
		&pkt.PredictedLevelInches,
		&pkt.RetriggeredFrom,
		&pkt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkt, nil
}
