package persistence

import (
	"MarketLedger/internal/observability"
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// CoreOutput mirrors core.CoreOutput to avoid an import cycle. The
// orchestrator (cmd/marketd) bridges between core.CoreOutput and this.
type CoreOutput struct {
	OpRow       OpRow
	JournalRows []JournalRow
}

// PersistenceWorker drains the persist channel and batch-writes to
// Postgres. The persist channel uses BLOCKING sends from the core, so
// if this worker falls behind, the core stalls and no operation is
// ever lost.
type PersistenceWorker struct {
	writer       *OpLogWriter
	db           *sql.DB
	inputChan    <-chan CoreOutput
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewPersistenceWorker(
	db *sql.DB,
	inputChan <-chan CoreOutput,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *PersistenceWorker {
	return &PersistenceWorker{
		writer:       NewOpLogWriter(db),
		db:           db,
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the persistence worker loop. It batches incoming outputs
// and flushes either when the batch is full or the flush timeout expires.
// Blocks until ctx is cancelled.
func (pw *PersistenceWorker) Run(ctx context.Context) error {
	opBatch := make([]OpRow, 0, pw.batchSize)
	journalBatch := make([]JournalRow, 0, pw.batchSize*4)

	timer := time.NewTimer(pw.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Graceful shutdown: flush remaining
			if len(opBatch) > 0 {
				if err := pw.flush(context.Background(), opBatch, journalBatch); err != nil {
					log.Printf("ERROR: final flush failed: %v", err)
				}
			}
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				if len(opBatch) > 0 {
					if err := pw.flush(context.Background(), opBatch, journalBatch); err != nil {
						log.Printf("ERROR: final flush failed: %v", err)
					}
				}
				return nil
			}

			opBatch = append(opBatch, output.OpRow)
			journalBatch = append(journalBatch, output.JournalRows...)

			if len(opBatch) >= pw.batchSize {
				if err := pw.flushWithRetry(ctx, opBatch, journalBatch); err != nil {
					log.Printf("ERROR: batch flush failed after retries: %v", err)
				}
				opBatch = opBatch[:0]
				journalBatch = journalBatch[:0]
				timer.Reset(pw.flushTimeout)
			}

		case <-timer.C:
			if len(opBatch) > 0 {
				if err := pw.flushWithRetry(ctx, opBatch, journalBatch); err != nil {
					log.Printf("ERROR: timeout flush failed after retries: %v", err)
				}
				opBatch = opBatch[:0]
				journalBatch = journalBatch[:0]
			}
			timer.Reset(pw.flushTimeout)
		}
	}
}

// flushWithRetry attempts to flush with exponential backoff. The worker
// NEVER drops operations: it retries until the write succeeds or the
// context is cancelled, and even then attempts one final flush.
func (pw *PersistenceWorker) flushWithRetry(ctx context.Context, ops []OpRow, journals []JournalRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: persistence retry attempt %d (backoff=%v, ops=%d)",
				attempt, backoff, len(ops))
			select {
			case <-ctx.Done():
				finalErr := pw.flush(context.Background(), ops, journals)
				if finalErr != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := pw.flush(ctx, ops, journals)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: persistence flush succeeded after %d retries", attempt)
			}
			return nil
		}

		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("retry").Inc()
		}
	}
}

func (pw *PersistenceWorker) flush(ctx context.Context, ops []OpRow, journals []JournalRow) error {
	start := time.Now()

	// Operations and journals land in one transaction: a sequence in
	// market_log.ops always has its journal rows alongside it.
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}
	defer tx.Rollback()

	if err := pw.writer.WriteOpBatch(ctx, tx, ops); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_ops").Inc()
		}
		return err
	}

	if err := pw.writer.WriteJournalBatch(ctx, tx, journals); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_journals").Inc()
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	if pw.metrics != nil {
		pw.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		pw.metrics.PersistOpsWritten.Add(float64(len(ops)))
		pw.metrics.PersistJournalsWritten.Add(float64(len(journals)))
	}

	return nil
}
