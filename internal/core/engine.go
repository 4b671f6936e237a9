package core

import (
	"MarketLedger/internal/derive"
	"MarketLedger/internal/event"
	"MarketLedger/internal/feemath"
	"MarketLedger/internal/ledger"
	"MarketLedger/internal/metadata"
	"MarketLedger/internal/observability"
	"MarketLedger/internal/state"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"
)

var (
	ErrUnknownOp        = errors.New("core: unknown operation type")
	ErrDedupUnavailable = errors.New("core: idempotency lookup unavailable")
	ErrNotUnique        = errors.New("core: asset is not a single indivisible unit")
	ErrEditionNotFinal  = errors.New("core: asset edition is not finalized")
	ErrNotMintAuthority = errors.New("core: caller is not the mint authority")
	ErrMintLocked       = errors.New("core: edition finalized, supply is locked")
)

// MarketCore is the single-threaded operation processor. All state
// mutation happens here, one operation at a time, so apply order alone
// determines the final state. Nothing outside this goroutine touches
// the books.
type MarketCore struct {
	// sequence is written only by the core goroutine but read by the
	// snapshot scheduler and health checker, hence atomic.
	sequence     atomic.Int64
	hasher       *StateHasher
	balances     *ledger.BalanceTracker
	assets       *ledger.AssetBook
	marketplaces *state.MarketplaceBook
	listings     *state.ListingBook
	registry     *metadata.MemoryRegistry
	idempotency  *IdempotencyChecker
	metrics      *observability.Metrics

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

// CoreOutput is the per-operation record handed to the persistence and
// projection workers.
type CoreOutput struct {
	Envelope *event.OpEnvelope
	Batch    *ledger.Batch
	Receipt  *Receipt
}

// Receipt summarizes one applied operation for the submitter. Derived
// addresses are echoed back so callers never compute them client-side.
type Receipt struct {
	Sequence    int64  `json:"sequence"`
	OpType      string `json:"op_type"`
	Duplicate   bool   `json:"duplicate,omitempty"`
	StateHash   string `json:"state_hash,omitempty"`
	Marketplace string `json:"marketplace,omitempty"`
	Treasury    string `json:"treasury,omitempty"`
	Listing     string `json:"listing,omitempty"`
	Asset       string `json:"asset,omitempty"`
	Price       int64  `json:"price,omitempty"`
	Fee         int64  `json:"fee,omitempty"`
	ToMaker     int64  `json:"to_maker,omitempty"`
}

// OpResult is the reply for a synchronous submission.
type OpResult struct {
	Receipt *Receipt
	Err     error
}

// OpRequest carries one operation into the core goroutine. Reply is nil
// for fire-and-forget sources (NATS); synchronous callers receive
// exactly one OpResult. A request with Barrier set carries no operation:
// the function runs inside the core goroutine, giving callers a
// consistent point to export state without pausing ingestion for long.
type OpRequest struct {
	Op      event.Operation
	Reply   chan OpResult
	Barrier func()
}

func NewMarketCore(
	startSequence int64,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	idempotencyTTL time.Duration,
	metrics *observability.Metrics,
) *MarketCore {
	c := &MarketCore{
		hasher:         NewStateHasher(),
		balances:       ledger.NewBalanceTracker(),
		assets:         ledger.NewAssetBook(),
		marketplaces:   state.NewMarketplaceBook(),
		listings:       state.NewListingBook(),
		registry:       metadata.NewMemoryRegistry(),
		idempotency:    NewIdempotencyChecker(idempotencyTTL, dbChecker),
		metrics:        metrics,
		persistChan:    persistChan,
		projectionChan: projectionChan,
	}
	c.sequence.Store(startSequence)
	return c
}

// Run drains the request channel until it closes or the context ends.
// This is the only goroutine allowed to call ProcessOperation.
func (c *MarketCore) Run(ctx context.Context, requests <-chan OpRequest) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			if req.Barrier != nil {
				req.Barrier()
				continue
			}
			receipt, err := c.ProcessOperation(req.Op)
			if req.Reply != nil {
				req.Reply <- OpResult{Receipt: receipt, Err: err}
			}
		}
	}
}

// ProcessOperation is the main processing pipeline: validate, dedup,
// dispatch, seal into the hash chain, emit, mark processed.
func (c *MarketCore) ProcessOperation(op event.Operation) (*Receipt, error) {
	start := time.Now()
	opType := op.OpType()
	key := op.IdempotencyKey()

	if err := op.Validate(); err != nil {
		c.countRejected(opType, "validation")
		return nil, err
	}

	dup, tier, err := c.idempotency.IsDuplicate(opType.String(), key)
	if err != nil {
		// Applying without an authoritative dedup answer risks a double
		// commit once the cache entry for the first apply has expired.
		// Reject and let the submitter retry.
		c.countRejected(opType, "dedup_unavailable")
		return nil, fmt.Errorf("%w: %v", ErrDedupUnavailable, err)
	}
	if dup {
		if c.metrics != nil {
			c.metrics.IdempotencyDuplicates.WithLabelValues(opType.String(), tier).Inc()
			c.metrics.OpsRejected.WithLabelValues(opType.String(), "duplicate").Inc()
		}
		return &Receipt{OpType: opType.String(), Duplicate: true}, nil
	}

	receipt, batch, err := c.dispatch(op)
	if err != nil {
		c.countRejected(opType, rejectReason(err))
		return nil, fmt.Errorf("%s: %w", opType, err)
	}

	payload, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", opType, err)
	}

	seq := c.sequence.Load()
	prevHash := c.hasher.GetPrevHash()
	stateHash := c.hasher.ComputeHash(seq, c.computeStateDigest(batch))

	var marketplace *string
	if name := op.MarketplaceName(); name != "" {
		marketplace = &name
	}

	envelope := &event.OpEnvelope{
		Sequence:       seq,
		IdempotencyKey: key,
		OpType:         opType,
		Marketplace:    marketplace,
		Timestamp:      time.UnixMicro(opTimestamp(op)),
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	receipt.Sequence = seq
	receipt.OpType = opType.String()
	receipt.StateHash = fmt.Sprintf("%x", stateHash)

	output := CoreOutput{Envelope: envelope, Batch: batch, Receipt: receipt}

	// Persistence gets a blocking send so no applied operation is ever
	// lost; projections get a non-blocking send and rebuild from the
	// log if they fall behind.
	select {
	case c.persistChan <- output:
	default:
		if c.metrics != nil {
			c.metrics.PersistBackpressure.Inc()
		}
		c.persistChan <- output
	}
	select {
	case c.projectionChan <- output:
	default:
		if c.metrics != nil {
			c.metrics.ProjectionDrops.WithLabelValues("core").Inc()
		}
	}

	c.sequence.Store(seq + 1)
	c.idempotency.MarkProcessed(opType.String(), key)

	if c.metrics != nil {
		c.metrics.OpsApplied.WithLabelValues(opType.String()).Inc()
		c.metrics.OpDuration.WithLabelValues(opType.String()).Observe(time.Since(start).Seconds())
		c.metrics.Sequence.Set(float64(seq + 1))
		c.metrics.ListingsOpen.Set(float64(c.listings.Count()))
		if batch != nil {
			for _, j := range batch.Journals {
				c.metrics.Journals.WithLabelValues(j.JournalType.String()).Inc()
			}
		}
	}

	return receipt, nil
}

// Replay re-applies a logged operation during recovery. The hash chain
// and sequence advance exactly as they did the first time; nothing is
// emitted and the dedup tiers are bypassed (the log itself is the
// source).
func (c *MarketCore) Replay(op event.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	_, batch, err := c.dispatch(op)
	if err != nil {
		return fmt.Errorf("replay %s: %w", op.OpType(), err)
	}
	seq := c.sequence.Load()
	c.hasher.ComputeHash(seq, c.computeStateDigest(batch))
	c.sequence.Store(seq + 1)
	c.idempotency.MarkProcessed(op.OpType().String(), op.IdempotencyKey())
	if c.metrics != nil {
		c.metrics.ReplayOpsTotal.Inc()
		c.metrics.Sequence.Set(float64(seq + 1))
		c.metrics.ListingsOpen.Set(float64(c.listings.Count()))
	}
	return nil
}

func (c *MarketCore) dispatch(op event.Operation) (*Receipt, *ledger.Batch, error) {
	switch o := op.(type) {
	case *event.MarketplaceInitialize:
		return c.handleMarketplaceInitialize(o)
	case *event.CurrencyDeposit:
		return c.handleCurrencyDeposit(o)
	case *event.AssetIssue:
		return c.handleAssetIssue(o)
	case *event.AssetMint:
		return c.handleAssetMint(o)
	case *event.ListingCreate:
		return c.handleListingCreate(o)
	case *event.ListingCancel:
		return c.handleListingCancel(o)
	case *event.ListingPurchase:
		return c.handleListingPurchase(o)
	default:
		return nil, nil, fmt.Errorf("%w: %T", ErrUnknownOp, op)
	}
}

func (c *MarketCore) newPlan(opRef string, timestampUs int64) *ledger.Plan {
	return ledger.NewPlan(c.balances, c.assets, opRef, c.sequence.Load(), timestampUs)
}

func (c *MarketCore) handleMarketplaceInitialize(op *event.MarketplaceInitialize) (*Receipt, *ledger.Batch, error) {
	m, err := state.NewMarketplace(op.Admin, op.Name, op.FeeBps, op.TimestampUs)
	if err != nil {
		return nil, nil, err
	}
	if err := c.marketplaces.Create(m); err != nil {
		return nil, nil, err
	}
	return &Receipt{
		Marketplace: m.Address.String(),
		Treasury:    m.Treasury.String(),
	}, nil, nil
}

func (c *MarketCore) handleCurrencyDeposit(op *event.CurrencyDeposit) (*Receipt, *ledger.Batch, error) {
	plan := c.newPlan(op.Key, op.TimestampUs)
	source := ledger.NewExternalAccount(ledger.ExternalDeposits, ledger.NativeAsset)
	dest := ledger.NewCurrencyAccount(op.Account)
	if err := plan.TransferCurrency(ledger.JournalTypeDeposit, source, dest, op.Amount); err != nil {
		return nil, nil, err
	}
	if err := plan.Commit(); err != nil {
		return nil, nil, err
	}
	return &Receipt{}, plan.Batch(), nil
}

func (c *MarketCore) handleAssetIssue(op *event.AssetIssue) (*Receipt, *ledger.Batch, error) {
	addr, bump, err := derive.Mint(op.URISeed)
	if err != nil {
		return nil, nil, err
	}
	if c.assets.Exists(addr) {
		return nil, nil, fmt.Errorf("%w: %s", ledger.ErrAssetExists, addr)
	}
	if err := c.registry.Register(addr, op.Name, op.Symbol, op.URI); err != nil {
		return nil, nil, err
	}
	if err := c.assets.Create(ledger.AssetInfo{
		Address:       addr,
		Bump:          bump,
		Decimals:      op.Decimals,
		MintAuthority: op.Issuer,
	}); err != nil {
		return nil, nil, err
	}
	if c.metrics != nil {
		c.metrics.AssetsIssued.Inc()
	}
	return &Receipt{Asset: addr.String()}, nil, nil
}

func (c *MarketCore) handleAssetMint(op *event.AssetMint) (*Receipt, *ledger.Batch, error) {
	addr, _, err := derive.Mint(op.URISeed)
	if err != nil {
		return nil, nil, err
	}
	info, err := c.assets.Get(addr)
	if err != nil {
		return nil, nil, err
	}
	if info.MintAuthority != op.Caller {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotMintAuthority, op.Caller)
	}
	if info.EditionFinal {
		return nil, nil, fmt.Errorf("%w: %s", ErrMintLocked, addr)
	}
	newSupply, err := feemath.CheckedAdd(info.Supply, op.Quantity)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ledger.ErrSupplyOverflow, err)
	}

	plan := c.newPlan(op.Key, op.TimestampUs)
	dest := ledger.NewUserAccount(op.Caller, addr)
	if err := plan.MintToken(addr, dest, op.Quantity); err != nil {
		return nil, nil, err
	}
	if err := plan.Commit(); err != nil {
		return nil, nil, err
	}

	// Minting creates the permanent edition of record, so supply is
	// locked the moment the first (and only) mint lands.
	info.Supply = newSupply
	info.EditionFinal = true
	if err := c.registry.FinalizeEdition(addr); err != nil {
		return nil, nil, err
	}
	return &Receipt{Asset: addr.String()}, plan.Batch(), nil
}

func (c *MarketCore) handleListingCreate(op *event.ListingCreate) (*Receipt, *ledger.Batch, error) {
	m, err := c.marketplaces.GetByName(op.Marketplace)
	if err != nil {
		return nil, nil, err
	}
	info, err := c.assets.Get(op.Asset)
	if err != nil {
		return nil, nil, err
	}
	// Only a finalized one-of-one is sellable. Enforcing this here
	// keeps every open listing's vault at exactly one indivisible unit.
	if info.Supply != 1 || info.Decimals != 0 {
		return nil, nil, fmt.Errorf("%w: supply=%d decimals=%d", ErrNotUnique, info.Supply, info.Decimals)
	}
	if !info.EditionFinal {
		return nil, nil, fmt.Errorf("%w: %s", ErrEditionNotFinal, op.Asset)
	}

	l, err := state.NewListing(m.Address, op.Maker, op.Asset, op.Price, op.TimestampUs)
	if err != nil {
		return nil, nil, err
	}
	if _, err := c.listings.Get(l.Address); err == nil {
		return nil, nil, fmt.Errorf("%w: %s", state.ErrListingExists, op.Asset)
	}

	plan := c.newPlan(op.Key, op.TimestampUs)
	if err := state.DepositToVault(plan, l, info.Decimals); err != nil {
		return nil, nil, err
	}
	if err := plan.Commit(); err != nil {
		return nil, nil, err
	}
	if err := c.listings.Create(l); err != nil {
		return nil, nil, err
	}
	return &Receipt{
		Marketplace: m.Address.String(),
		Listing:     l.Address.String(),
		Asset:       op.Asset.String(),
		Price:       op.Price,
	}, plan.Batch(), nil
}

func (c *MarketCore) handleListingCancel(op *event.ListingCancel) (*Receipt, *ledger.Batch, error) {
	m, err := c.marketplaces.GetByName(op.Marketplace)
	if err != nil {
		return nil, nil, err
	}
	l, err := c.listings.GetByPair(m.Address, op.Asset)
	if err != nil {
		return nil, nil, err
	}
	if l.Maker != op.Maker {
		return nil, nil, fmt.Errorf("%w: %s", state.ErrNotMaker, op.Maker)
	}
	info, err := c.assets.Get(op.Asset)
	if err != nil {
		return nil, nil, err
	}

	plan := c.newPlan(op.Key, op.TimestampUs)
	if err := state.ReleaseVault(plan, l, l.Maker, info.Decimals); err != nil {
		return nil, nil, err
	}
	if err := plan.Commit(); err != nil {
		return nil, nil, err
	}
	c.listings.Remove(l.Address)
	if c.metrics != nil {
		c.metrics.ListingsWithdrawn.WithLabelValues(m.Name).Inc()
	}
	return &Receipt{
		Marketplace: m.Address.String(),
		Listing:     l.Address.String(),
		Asset:       op.Asset.String(),
	}, plan.Batch(), nil
}

func (c *MarketCore) handleListingPurchase(op *event.ListingPurchase) (*Receipt, *ledger.Batch, error) {
	m, err := c.marketplaces.GetByName(op.Marketplace)
	if err != nil {
		return nil, nil, err
	}
	l, err := c.listings.GetByPair(m.Address, op.Asset)
	if err != nil {
		return nil, nil, err
	}
	info, err := c.assets.Get(op.Asset)
	if err != nil {
		return nil, nil, err
	}
	fee, toMaker, err := feemath.Split(l.Price, m.FeeBps)
	if err != nil {
		return nil, nil, err
	}

	plan := c.newPlan(op.Key, op.TimestampUs)
	takerCurrency := ledger.NewCurrencyAccount(op.Taker)
	if toMaker > 0 {
		if op.Taker == l.Maker {
			// A maker buying their own listing pays the proceeds to
			// themselves. The zero-effect leg is not staged, but the
			// balance must still cover it, as a real transfer would.
			if c.balances.CurrencyBalance(op.Taker) < toMaker {
				return nil, nil, fmt.Errorf("%w: %s has %d, need %d",
					ledger.ErrInsufficientFunds, takerCurrency.AccountPath(),
					c.balances.CurrencyBalance(op.Taker), toMaker)
			}
		} else if err := plan.TransferCurrency(ledger.JournalTypePayment,
			takerCurrency, ledger.NewCurrencyAccount(l.Maker), toMaker); err != nil {
			return nil, nil, err
		}
	}
	if fee > 0 {
		if err := plan.TransferCurrency(ledger.JournalTypeFee,
			takerCurrency, ledger.NewTreasuryAccount(m.Treasury), fee); err != nil {
			return nil, nil, err
		}
	}
	if err := state.ReleaseVault(plan, l, op.Taker, info.Decimals); err != nil {
		return nil, nil, err
	}
	if err := plan.Commit(); err != nil {
		return nil, nil, err
	}
	c.listings.Remove(l.Address)

	if c.metrics != nil {
		c.metrics.SalesSettled.WithLabelValues(m.Name).Inc()
		c.metrics.SaleVolume.WithLabelValues(m.Name).Add(float64(l.Price))
		c.metrics.FeesCollected.WithLabelValues(m.Name).Add(float64(fee))
	}
	return &Receipt{
		Marketplace: m.Address.String(),
		Treasury:    m.Treasury.String(),
		Listing:     l.Address.String(),
		Asset:       op.Asset.String(),
		Price:       l.Price,
		Fee:         fee,
		ToMaker:     toMaker,
	}, plan.Batch(), nil
}

// computeStateDigest builds the canonical bytes hashed into the chain:
// every account a batch touched, sorted by path, with its post-apply
// balance.
func (c *MarketCore) computeStateDigest(batch *ledger.Batch) []byte {
	if batch == nil {
		return nil
	}

	affected := make(map[ledger.AccountKey]bool)
	for _, j := range batch.Journals {
		affected[j.DebitAccount] = true
		affected[j.CreditAccount] = true
	}

	accounts := make([]ledger.AccountKey, 0, len(affected))
	for key := range affected {
		accounts = append(accounts, key)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	digest := make([]byte, 0, len(accounts)*64)
	for _, key := range accounts {
		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, c.balances.GetBalance(key))
	}
	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

func (c *MarketCore) countRejected(opType event.OpType, reason string) {
	if c.metrics != nil {
		c.metrics.OpsRejected.WithLabelValues(opType.String(), reason).Inc()
	}
}

// rejectReason maps a handler error to the metrics label taxonomy.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "funds"
	case errors.Is(err, state.ErrMarketplaceExists),
		errors.Is(err, state.ErrListingExists),
		errors.Is(err, ledger.ErrAssetExists),
		errors.Is(err, ErrMintLocked):
		return "conflict"
	case errors.Is(err, state.ErrMarketplaceUnknown),
		errors.Is(err, state.ErrListingNotOpen),
		errors.Is(err, ledger.ErrUnknownAsset),
		errors.Is(err, metadata.ErrNotRegistered):
		return "not_found"
	case errors.Is(err, state.ErrNotMaker),
		errors.Is(err, ErrNotMintAuthority),
		errors.Is(err, ledger.ErrMissingAuthority),
		errors.Is(err, ledger.ErrAuthorityMismatch):
		return "unauthorized"
	case errors.Is(err, state.ErrNameLength),
		errors.Is(err, state.ErrBadPrice),
		errors.Is(err, feemath.ErrFeeOutOfRange),
		errors.Is(err, ledger.ErrNonPositiveAmount),
		errors.Is(err, ErrNotUnique),
		errors.Is(err, ErrEditionNotFinal):
		return "validation"
	default:
		return "internal"
	}
}

// opTimestamp extracts the submitter-supplied timestamp. The core never
// reads the wall clock for envelope timestamps; replay must reproduce
// them exactly.
func opTimestamp(op event.Operation) int64 {
	switch o := op.(type) {
	case *event.MarketplaceInitialize:
		return o.TimestampUs
	case *event.CurrencyDeposit:
		return o.TimestampUs
	case *event.AssetIssue:
		return o.TimestampUs
	case *event.AssetMint:
		return o.TimestampUs
	case *event.ListingCreate:
		return o.TimestampUs
	case *event.ListingCancel:
		return o.TimestampUs
	case *event.ListingPurchase:
		return o.TimestampUs
	default:
		return 0
	}
}

// --- Snapshot & Startup ---

// StateExport is the serializable in-memory state captured for
// snapshots and restored on warm start.
type StateExport struct {
	Sequence        int64
	StateHash       [32]byte
	Balances        []ledger.BalanceSnapshot
	Assets          []ledger.AssetSnapshot
	Marketplaces    []state.MarketplaceSnapshot
	Listings        []state.ListingSnapshot
	Metadata        []metadata.RecordSnapshot
	IdempotencyKeys []string
}

// ExportState captures the books after the last applied operation.
func (c *MarketCore) ExportState() *StateExport {
	return &StateExport{
		Sequence:        c.sequence.Load() - 1,
		StateHash:       c.hasher.GetPrevHash(),
		Balances:        c.balances.Export(),
		Assets:          c.assets.Export(),
		Marketplaces:    c.marketplaces.Export(),
		Listings:        c.listings.Export(),
		Metadata:        c.registry.Export(),
		IdempotencyKeys: c.idempotency.Keys(),
	}
}

// RestoreState loads a snapshot. The log replay that follows continues
// the hash chain from the restored tip.
func (c *MarketCore) RestoreState(snap *StateExport) error {
	if err := c.balances.Restore(snap.Balances); err != nil {
		return fmt.Errorf("restore balances: %w", err)
	}
	if err := c.assets.Restore(snap.Assets); err != nil {
		return fmt.Errorf("restore assets: %w", err)
	}
	if err := c.marketplaces.Restore(snap.Marketplaces); err != nil {
		return fmt.Errorf("restore marketplaces: %w", err)
	}
	if err := c.listings.Restore(snap.Listings); err != nil {
		return fmt.Errorf("restore listings: %w", err)
	}
	if err := c.registry.Restore(snap.Metadata); err != nil {
		return fmt.Errorf("restore metadata: %w", err)
	}
	c.idempotency.Warm(snap.IdempotencyKeys)
	c.hasher.SetPrevHash(snap.StateHash)
	c.sequence.Store(snap.Sequence + 1)
	if c.metrics != nil {
		c.metrics.Sequence.Set(float64(snap.Sequence + 1))
		c.metrics.ListingsOpen.Set(float64(c.listings.Count()))
	}
	return nil
}

// Balance read helpers. Only safe from the core goroutine (or before
// Run starts); concurrent readers go through the query service instead.

func (c *MarketCore) CurrencyBalance(holder derive.Address) int64 {
	return c.balances.CurrencyBalance(holder)
}

func (c *MarketCore) TokenBalance(holder, asset derive.Address) int64 {
	return c.balances.TokenBalance(holder, asset)
}

func (c *MarketCore) VaultBalance(listing, asset derive.Address) int64 {
	return c.balances.VaultBalance(listing, asset)
}

func (c *MarketCore) TreasuryBalance(treasury derive.Address) int64 {
	return c.balances.GetBalance(ledger.NewTreasuryAccount(treasury))
}

// GetSequence returns the next sequence to assign. Safe to call from
// any goroutine.
func (c *MarketCore) GetSequence() int64 {
	return c.sequence.Load()
}

// GetStateHash returns the current chain tip.
func (c *MarketCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}
