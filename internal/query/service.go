package query

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	"MarketLedger/internal/derive"
	"MarketLedger/internal/ledger"
)

// QueryService provides read-only access to the projection tables and
// the durable operation log. All responses carry as_of_sequence, the
// projection watermark at read time, so clients can reason about
// freshness relative to submitted operations.
type QueryService struct {
	db *sql.DB
}

func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// GetBalance returns the projected balance at one account path.
// Missing rows read as zero.
func (qs *QueryService) GetBalance(ctx context.Context, accountPath string) (*BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var asset string
	var balance int64
	err = qs.db.QueryRowContext(ctx, `
		SELECT asset, balance FROM projections.balances
		WHERE account_path = $1
	`, accountPath).Scan(&asset, &balance)
	if err == sql.ErrNoRows {
		return &BalanceResponse{AccountPath: accountPath, AsOfSequence: asOfSeq}, nil
	}
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		AccountPath:  accountPath,
		Asset:        asset,
		Balance:      balance,
		AsOfSequence: asOfSeq,
	}, nil
}

// GetCurrencyBalance returns a holder's native currency balance.
func (qs *QueryService) GetCurrencyBalance(ctx context.Context, holder derive.Address) (*BalanceResponse, error) {
	return qs.GetBalance(ctx, ledger.NewCurrencyAccount(holder).AccountPath())
}

// GetHolderBalances returns every non-zero projected balance held by
// one address, currency and tokens alike.
func (qs *QueryService) GetHolderBalances(ctx context.Context, holder derive.Address) ([]BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	pattern := "user:" + holder.String() + ":%"
	rows, err := qs.db.QueryContext(ctx, `
		SELECT account_path, asset, balance
		FROM projections.balances
		WHERE account_path LIKE $1 AND balance <> 0
		ORDER BY account_path
	`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []BalanceResponse
	for rows.Next() {
		var b BalanceResponse
		b.AsOfSequence = asOfSeq
		if err := rows.Scan(&b.AccountPath, &b.Asset, &b.Balance); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// GetMarketplace returns one projected marketplace by name, or nil
// when the name is not initialized.
func (qs *QueryService) GetMarketplace(ctx context.Context, name string) (*MarketplaceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var m MarketplaceResponse
	m.AsOfSequence = asOfSeq
	var feeBps int32
	err = qs.db.QueryRowContext(ctx, `
		SELECT name, address, treasury, admin, fee_bps, created_sequence
		FROM projections.marketplaces
		WHERE name = $1
	`, name).Scan(&m.Name, &m.Address, &m.Treasury, &m.Admin, &feeBps, &m.CreatedSequence)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.FeeBps = uint16(feeBps)
	return &m, nil
}

// GetListing returns one projected listing by its derived address.
func (qs *QueryService) GetListing(ctx context.Context, listing string) (*ListingResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var l ListingResponse
	l.AsOfSequence = asOfSeq
	err = qs.db.QueryRowContext(ctx, `
		SELECT listing, marketplace, maker, asset, price, status,
		       opened_sequence, opened_at_us, closed_sequence
		FROM projections.listings
		WHERE listing = $1
	`, listing).Scan(
		&l.Listing, &l.Marketplace, &l.Maker, &l.Asset, &l.Price, &l.Status,
		&l.OpenedSequence, &l.OpenedAtUs, &l.ClosedSequence,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetOpenListings returns open listings for a marketplace, newest first.
func (qs *QueryService) GetOpenListings(ctx context.Context, marketplace string, limit int) ([]ListingResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT listing, marketplace, maker, asset, price, status,
		       opened_sequence, opened_at_us, closed_sequence
		FROM projections.listings
		WHERE marketplace = $1 AND status = 'open'
		ORDER BY opened_sequence DESC
		LIMIT $2
	`, marketplace, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []ListingResponse
	for rows.Next() {
		var l ListingResponse
		l.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&l.Listing, &l.Marketplace, &l.Maker, &l.Asset, &l.Price, &l.Status,
			&l.OpenedSequence, &l.OpenedAtUs, &l.ClosedSequence,
		); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// GetSales returns settled purchases with cursor-based pagination:
// pass the lowest sequence from the previous page as afterSequence to
// fetch the next one.
func (qs *QueryService) GetSales(
	ctx context.Context,
	marketplace *string,
	limit int,
	afterSequence *int64,
) ([]SaleResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT sequence, marketplace, listing, asset, taker, price, fee, to_maker, sold_at_us
		FROM projections.sales
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if marketplace != nil {
		query += fmt.Sprintf(" AND marketplace = $%d", argIdx)
		args = append(args, *marketplace)
		argIdx++
	}
	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []SaleResponse
	for rows.Next() {
		var s SaleResponse
		s.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&s.Sequence, &s.Marketplace, &s.Listing, &s.Asset, &s.Taker,
			&s.Price, &s.Fee, &s.ToMaker, &s.SoldAtUs,
		); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// GetJournalHistory returns journal legs touching a holder's accounts,
// newest first, with cursor-based pagination.
func (qs *QueryService) GetJournalHistory(
	ctx context.Context,
	holder derive.Address,
	limit int,
	afterSequence *int64,
) ([]JournalHistoryEntry, error) {
	pattern := "%:" + holder.String() + ":%"

	query := `
		SELECT journal_id, batch_id, op_ref, sequence,
		       debit_account, credit_account, asset, amount, journal_type, timestamp
		FROM market_log.journal
		WHERE (debit_account LIKE $1 OR credit_account LIKE $1)
	`
	args := []interface{}{pattern}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.OpRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.Asset, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetOpHistory returns the operation log tail, newest first.
func (qs *QueryService) GetOpHistory(ctx context.Context, limit int, afterSequence *int64) ([]OpHistoryEntry, error) {
	query := `
		SELECT sequence, op_type, idempotency_key, COALESCE(marketplace, ''),
		       state_hash, EXTRACT(EPOCH FROM timestamp)::bigint * 1000000
		FROM market_log.ops
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OpHistoryEntry
	for rows.Next() {
		var e OpHistoryEntry
		var stateHash []byte
		if err := rows.Scan(
			&e.Sequence, &e.OpType, &e.IdempotencyKey, &e.Marketplace,
			&stateHash, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		e.StateHash = hex.EncodeToString(stateHash)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain continuity over the operation log
// and the global zero-sum invariant over projected balances.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT o1.sequence
		FROM market_log.ops o1
		LEFT JOIN market_log.ops o2 ON o2.sequence = o1.sequence - 1
		WHERE o1.sequence > 0 AND o1.prev_hash != COALESCE(o2.state_hash, o1.prev_hash)
		ORDER BY o1.sequence
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	balanceRows, err := qs.db.QueryContext(ctx, `
		SELECT asset, SUM(balance) AS total
		FROM projections.balances
		GROUP BY asset
		HAVING SUM(balance) != 0
	`)
	if err != nil {
		return nil, err
	}
	defer balanceRows.Close()

	for balanceRows.Next() {
		var ua UnbalancedAsset
		if err := balanceRows.Scan(&ua.Asset, &ua.Imbalance); err != nil {
			return nil, err
		}
		report.UnbalancedAssets = append(report.UnbalancedAssets, ua)
	}
	if err := balanceRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnbalancedAssets) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE id = 1
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}
