package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// OpLogWriter writes applied operations and their journals to Postgres
// using multi-row INSERT. ON CONFLICT DO NOTHING makes re-writing a
// batch after a crash harmless.
type OpLogWriter struct {
	db *sql.DB
}

// OpRow represents a row in market_log.ops
type OpRow struct {
	Sequence       int64
	OpType         string
	IdempotencyKey string
	Marketplace    *string
	Payload        []byte // JSON-encoded operation payload
	StateHash      []byte
	PrevHash       []byte
	Timestamp      time.Time
}

// JournalRow represents a row in market_log.journal
type JournalRow struct {
	JournalID     string
	BatchID       string
	OpRef         string
	Sequence      int64
	DebitAccount  string
	CreditAccount string
	Asset         string
	Amount        int64
	JournalType   string
	Timestamp     int64
}

func NewOpLogWriter(db *sql.DB) *OpLogWriter {
	return &OpLogWriter{db: db}
}

// WriteOpBatch writes a batch of operations to market_log.ops inside tx.
func (w *OpLogWriter) WriteOpBatch(ctx context.Context, tx *sql.Tx, ops []OpRow) error {
	if len(ops) == 0 {
		return nil
	}

	query := `INSERT INTO market_log.ops
		(sequence, op_type, idempotency_key, marketplace, payload, state_hash, prev_hash, timestamp)
		VALUES `

	values := make([]string, 0, len(ops))
	args := make([]interface{}, 0, len(ops)*8)

	for i, o := range ops {
		base := i * 8
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			o.Sequence, o.OpType, o.IdempotencyKey, o.Marketplace,
			o.Payload, o.StateHash, o.PrevHash, o.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	// Bare form so both the sequence key and the (op_type,
	// idempotency_key) unique constraint absorb replays instead of
	// failing every retry of the batch.
	query += " ON CONFLICT DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteJournalBatch writes a batch of journal entries to market_log.journal inside tx.
func (w *OpLogWriter) WriteJournalBatch(ctx context.Context, tx *sql.Tx, journals []JournalRow) error {
	if len(journals) == 0 {
		return nil
	}

	query := `INSERT INTO market_log.journal
		(journal_id, batch_id, op_ref, sequence, debit_account, credit_account, asset, amount, journal_type, timestamp)
		VALUES `

	values := make([]string, 0, len(journals))
	args := make([]interface{}, 0, len(journals)*10)

	for i, j := range journals {
		base := i * 10
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args,
			j.JournalID, j.BatchID, j.OpRef, j.Sequence,
			j.DebitAccount, j.CreditAccount, j.Asset, j.Amount,
			j.JournalType, j.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (journal_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
