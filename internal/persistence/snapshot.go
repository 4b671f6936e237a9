package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"MarketLedger/internal/ledger"
	"MarketLedger/internal/metadata"
	"MarketLedger/internal/state"

	"github.com/google/uuid"
)

// SnapshotManager handles creating and loading state snapshots for
// recovery. A snapshot carries every book the core holds in memory:
// balances, assets, marketplaces, open listings, metadata records,
// recent idempotency keys, and the state hash chain tip.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData contains the full in-memory state at a point in time.
type SnapshotData struct {
	Sequence        int64                       `json:"sequence"`
	StateHash       []byte                      `json:"state_hash"`
	Balances        []ledger.BalanceSnapshot    `json:"balances"`
	Assets          []ledger.AssetSnapshot      `json:"assets"`
	Marketplaces    []state.MarketplaceSnapshot `json:"marketplaces"`
	Listings        []state.ListingSnapshot     `json:"listings"`
	Metadata        []metadata.RecordSnapshot   `json:"metadata"`
	IdempotencyKeys []string                    `json:"idempotency_keys"`
	CreatedAt       time.Time                   `json:"created_at"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot to Postgres. Snapshots are taken
// periodically; recovery loads the latest verified one and replays the
// log from snapshot.sequence+1.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	sizeBytes := len(data)
	formatVersion := int32(1) // v1: JSON-encoded SnapshotData

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO market_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6
	`, snapshotID, snap.Sequence, data, snap.StateHash, formatVersion, sizeBytes, snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot, or nil
// for a cold start.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM market_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// MarkVerified marks a snapshot as verified after integrity check.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE market_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadOpsFrom loads operations from a given sequence for replay. Used
// for warm restart (replay from snapshot) and cold restart (replay all).
func (sm *SnapshotManager) LoadOpsFrom(ctx context.Context, fromSequence int64, limit int) ([]OpRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, op_type, idempotency_key, marketplace, payload,
		       state_hash, prev_hash, timestamp
		FROM market_log.ops
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []OpRow
	for rows.Next() {
		var o OpRow
		if err := rows.Scan(
			&o.Sequence, &o.OpType, &o.IdempotencyKey, &o.Marketplace,
			&o.Payload, &o.StateHash, &o.PrevHash, &o.Timestamp,
		); err != nil {
			return nil, err
		}
		ops = append(ops, o)
	}

	return ops, rows.Err()
}

// PruneSnapshots deletes all but the newest keep verified snapshots.
// Unverified snapshots older than the newest verified one go too.
func (sm *SnapshotManager) PruneSnapshots(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := sm.db.ExecContext(ctx, `
		DELETE FROM market_log.snapshots
		WHERE sequence < (
			SELECT COALESCE(MIN(sequence), 0) FROM (
				SELECT sequence FROM market_log.snapshots
				WHERE verified = TRUE
				ORDER BY sequence DESC
				LIMIT $1
			) kept
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// GetLatestSequence returns the highest sequence in the operation log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM market_log.ops
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty log
	}
	return seq.Int64, nil
}
