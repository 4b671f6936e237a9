package projection

import (
	"MarketLedger/internal/observability"
	"context"
	"database/sql"
	"fmt"
	"log"
)

// JournalEntry is the projection-side view of a settled journal leg.
// Account paths and asset are the string forms used in the journal log.
type JournalEntry struct {
	DebitAccount  string
	CreditAccount string
	Asset         string
	Amount        int64
	JournalType   string
}

// ProjectionOutput mirrors what the projection worker needs from a
// processed operation. The orchestrator (cmd/marketd) builds one from
// core.CoreOutput so this package never imports the core.
type ProjectionOutput struct {
	Sequence    int64
	OpType      string
	Marketplace *string
	Address     string
	Treasury    string
	Admin       string
	FeeBps      uint16
	Listing     string
	Asset       string
	Maker       string
	Taker       string
	Price       int64
	Fee         int64
	ToMaker     int64
	Journals    []JournalEntry
	TimestampUs int64
}

// ProjectionWorker consumes core outputs on a NON-BLOCKING channel and
// maintains read-side tables in Postgres plus the in-memory sale
// history. Projections are eventually consistent: if the worker falls
// behind the core drops outputs rather than stall, and the watermark
// plus RebuildProjections recover the gap.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	sales     *SaleHistory
	metrics   *observability.Metrics
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput, sales *SaleHistory, metrics *observability.Metrics) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
		sales:     sales,
		metrics:   metrics,
	}
}

// Run drains the projection channel until ctx is cancelled. Errors are
// logged and the output skipped; a later RebuildProjections repairs
// any divergence from the durable journal.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out, ok := <-pw.inputChan:
			if !ok {
				return nil
			}
			if err := pw.applyOutput(ctx, out); err != nil {
				log.Printf("projection: apply seq=%d op=%s failed: %v", out.Sequence, out.OpType, err)
				if pw.metrics != nil {
					pw.metrics.ProjectionDrops.WithLabelValues("apply_error").Inc()
				}
			}
		}
	}
}

func (pw *ProjectionWorker) applyOutput(ctx context.Context, out ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin projection tx: %w", err)
	}
	defer tx.Rollback()

	for _, j := range out.Journals {
		if err := applyBalanceDelta(ctx, tx, j.DebitAccount, j.Asset, j.Amount, out.Sequence); err != nil {
			return err
		}
		if err := applyBalanceDelta(ctx, tx, j.CreditAccount, j.Asset, -j.Amount, out.Sequence); err != nil {
			return err
		}
	}

	switch out.OpType {
	case "MarketplaceInitialize":
		if err := pw.insertMarketplace(ctx, tx, out); err != nil {
			return err
		}
	case "ListingCreate":
		if err := pw.insertListing(ctx, tx, out); err != nil {
			return err
		}
	case "ListingCancel":
		if err := closeListing(ctx, tx, out.Listing, "cancelled", out.Sequence); err != nil {
			return err
		}
	case "ListingPurchase":
		if err := closeListing(ctx, tx, out.Listing, "sold", out.Sequence); err != nil {
			return err
		}
		if err := pw.insertSale(ctx, tx, out); err != nil {
			return err
		}
	}

	if err := updateWatermark(ctx, tx, out.Sequence); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit projection tx: %w", err)
	}

	if out.OpType == "ListingPurchase" && pw.sales != nil {
		pw.sales.Record(SaleEntry{
			Sequence:    out.Sequence,
			Marketplace: deref(out.Marketplace),
			Listing:     out.Listing,
			Asset:       out.Asset,
			Taker:       out.Taker,
			Price:       out.Price,
			Fee:         out.Fee,
			ToMaker:     out.ToMaker,
			TimestampUs: out.TimestampUs,
		})
	}
	return nil
}

// applyBalanceDelta upserts one side of a journal leg. Debits increase
// the account balance, credits decrease it, matching the ledger's sign
// convention.
func applyBalanceDelta(ctx context.Context, tx *sql.Tx, accountPath, asset string, delta, sequence int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset, balance, last_sequence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_path, asset) DO UPDATE
		SET balance = projections.balances.balance + EXCLUDED.balance,
		    last_sequence = EXCLUDED.last_sequence`,
		accountPath, asset, delta, sequence)
	if err != nil {
		return fmt.Errorf("upsert balance %s/%s: %w", accountPath, asset, err)
	}
	return nil
}

func (pw *ProjectionWorker) insertMarketplace(ctx context.Context, tx *sql.Tx, out ProjectionOutput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.marketplaces (name, address, treasury, admin, fee_bps, created_sequence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO NOTHING`,
		deref(out.Marketplace), out.Address, out.Treasury, out.Admin, int32(out.FeeBps), out.Sequence)
	if err != nil {
		return fmt.Errorf("insert marketplace %s: %w", deref(out.Marketplace), err)
	}
	return nil
}

func (pw *ProjectionWorker) insertListing(ctx context.Context, tx *sql.Tx, out ProjectionOutput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.listings (listing, marketplace, maker, asset, price, status, opened_sequence, opened_at_us)
		VALUES ($1, $2, $3, $4, $5, 'open', $6, $7)
		ON CONFLICT (listing) DO UPDATE
		SET maker = EXCLUDED.maker,
		    price = EXCLUDED.price,
		    status = 'open',
		    opened_sequence = EXCLUDED.opened_sequence,
		    opened_at_us = EXCLUDED.opened_at_us,
		    closed_sequence = NULL`,
		out.Listing, deref(out.Marketplace), out.Maker, out.Asset, out.Price, out.Sequence, out.TimestampUs)
	if err != nil {
		return fmt.Errorf("insert listing %s: %w", out.Listing, err)
	}
	return nil
}

func closeListing(ctx context.Context, tx *sql.Tx, listing, status string, sequence int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE projections.listings
		SET status = $2, closed_sequence = $3
		WHERE listing = $1`,
		listing, status, sequence)
	if err != nil {
		return fmt.Errorf("close listing %s: %w", listing, err)
	}
	return nil
}

func (pw *ProjectionWorker) insertSale(ctx context.Context, tx *sql.Tx, out ProjectionOutput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.sales (sequence, marketplace, listing, asset, taker, price, fee, to_maker, sold_at_us)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (sequence) DO NOTHING`,
		out.Sequence, deref(out.Marketplace), out.Listing, out.Asset, out.Taker, out.Price, out.Fee, out.ToMaker, out.TimestampUs)
	if err != nil {
		return fmt.Errorf("insert sale seq=%d: %w", out.Sequence, err)
	}
	return nil
}

func updateWatermark(ctx context.Context, tx *sql.Tx, sequence int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (id, last_sequence)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE
		SET last_sequence = GREATEST(projections.watermark.last_sequence, EXCLUDED.last_sequence)`,
		sequence)
	if err != nil {
		return fmt.Errorf("update watermark: %w", err)
	}
	return nil
}

// Watermark returns the highest sequence the projections have applied,
// or 0 when no output has been projected yet.
func (pw *ProjectionWorker) Watermark(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := pw.db.QueryRowContext(ctx,
		`SELECT last_sequence FROM projections.watermark WHERE id = 1`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read watermark: %w", err)
	}
	return seq.Int64, nil
}

// RebuildProjections drops the balance projection and recomputes it
// from the durable journal log. Used after a crash when projections
// may have missed dropped outputs. Listing and sale projections are
// repaired by the live worker as new outputs arrive; balances are the
// only table queries treat as authoritative.
func (pw *ProjectionWorker) RebuildProjections(ctx context.Context) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE projections.balances`); err != nil {
		return fmt.Errorf("truncate balances: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset, balance, last_sequence)
		SELECT account_path, asset, SUM(delta), MAX(sequence)
		FROM (
			SELECT debit_account AS account_path, asset, amount AS delta, sequence
			FROM market_log.journal
			UNION ALL
			SELECT credit_account AS account_path, asset, -amount AS delta, sequence
			FROM market_log.journal
		) legs
		GROUP BY account_path, asset
		HAVING SUM(delta) <> 0`)
	if err != nil {
		return fmt.Errorf("rebuild balances: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (id, last_sequence)
		SELECT 1, COALESCE(MAX(sequence), 0) FROM market_log.journal
		ON CONFLICT (id) DO UPDATE SET last_sequence = EXCLUDED.last_sequence`); err != nil {
		return fmt.Errorf("rebuild watermark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild tx: %w", err)
	}
	log.Printf("projection: balances rebuilt from journal")
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
