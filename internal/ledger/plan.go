package ledger

import (
	"errors"
	"fmt"

	"MarketLedger/internal/derive"

	"github.com/google/uuid"
)

// Storage deposits charged when the protocol creates closable records.
// They are escrowed at the system storage account and refunded to the
// maker when the record is torn down.
const (
	StorageDepositListing int64 = 1_566_000
	StorageDepositVault   int64 = 2_039_280
)

var (
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrNonPositiveAmount = errors.New("ledger: amount must be positive")
	ErrDecimalsMismatch  = errors.New("ledger: decimals do not match asset")
	ErrMissingAuthority  = errors.New("ledger: transfer from derived account requires an authority")
	ErrAuthorityMismatch = errors.New("ledger: authority does not re-derive to holding address")
	ErrAccountNotEmpty   = errors.New("ledger: account balance must be zero before close")
	ErrSupplyOverflow    = errors.New("ledger: asset supply overflow")
)

// Plan stages the journal entries of one atomic operation. Every leg is
// validated against the effective balance (current balance plus earlier
// staged legs), so a multi-leg operation that cannot fully complete is
// rejected before any balance changes. Commit applies the whole batch
// at once.
type Plan struct {
	tracker *BalanceTracker
	assets  *AssetBook
	batch   *Batch
	deltas  map[AccountKey]int64
	closes  []AccountKey
}

// NewPlan opens a staging area for the operation identified by opRef.
func NewPlan(tracker *BalanceTracker, assets *AssetBook, opRef string, sequence, timestamp int64) *Plan {
	return &Plan{
		tracker: tracker,
		assets:  assets,
		batch: &Batch{
			BatchID:   uuid.New(),
			OpRef:     opRef,
			Sequence:  sequence,
			Timestamp: timestamp,
		},
		deltas: make(map[AccountKey]int64),
	}
}

func (p *Plan) effective(key AccountKey) int64 {
	return p.tracker.GetBalance(key) + p.deltas[key]
}

func (p *Plan) stage(jt JournalType, debit, credit AccountKey, amount int64) {
	p.batch.Journals = append(p.batch.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       p.batch.BatchID,
		OpRef:         p.batch.OpRef,
		Sequence:      p.batch.Sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		Asset:         debit.Asset,
		Amount:        amount,
		JournalType:   jt,
		Timestamp:     p.batch.Timestamp,
	})
	p.deltas[debit] += amount
	p.deltas[credit] -= amount
}

// TransferCurrency stages a native currency movement. Funds are checked
// against the effective balance unless the source is an external
// boundary account.
func (p *Plan) TransferCurrency(jt JournalType, from, to AccountKey, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrNonPositiveAmount, amount)
	}
	if from.Asset != NativeAsset || to.Asset != NativeAsset {
		return fmt.Errorf("currency transfer touching token account %s", from.AccountPath())
	}
	if from.Scope != ScopeExternal && p.effective(from) < amount {
		return fmt.Errorf("%w: %s has %d, need %d",
			ErrInsufficientFunds, from.AccountPath(), p.effective(from), amount)
	}
	p.stage(jt, to, from, amount)
	return nil
}

// TransferToken stages a token movement of the given asset. Decimals
// must match the asset record (the checked-transfer contract). Transfers
// out of program-owned accounts require an authority that re-derives to
// the holding address; a mismatch is the forged-or-stale-reference case
// and always aborts.
func (p *Plan) TransferToken(jt JournalType, asset derive.Address, from, to AccountKey, amount int64, decimals uint8, auth *derive.Authority) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrNonPositiveAmount, amount)
	}
	info, err := p.assets.Get(asset)
	if err != nil {
		return err
	}
	if info.Decimals != decimals {
		return fmt.Errorf("%w: asset %s has %d, caller passed %d",
			ErrDecimalsMismatch, asset, info.Decimals, decimals)
	}
	if from.Asset != asset || to.Asset != asset {
		return fmt.Errorf("token transfer account keyed to wrong asset")
	}
	if from.Scope == ScopeDerived {
		if auth == nil {
			return ErrMissingAuthority
		}
		if !auth.Authorizes(from.Holder) {
			return fmt.Errorf("%w: holder %s", ErrAuthorityMismatch, from.Holder)
		}
	}
	if from.Scope != ScopeExternal && p.effective(from) < amount {
		return fmt.Errorf("%w: %s has %d, need %d",
			ErrInsufficientFunds, from.AccountPath(), p.effective(from), amount)
	}
	p.stage(jt, to, from, amount)
	return nil
}

// MintToken stages the creation of new units into a personal balance.
// The issuance boundary account absorbs the credit side.
func (p *Plan) MintToken(asset derive.Address, to AccountKey, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrNonPositiveAmount, amount)
	}
	if _, err := p.assets.Get(asset); err != nil {
		return err
	}
	if to.Asset != asset {
		return fmt.Errorf("mint destination keyed to wrong asset")
	}
	source := NewExternalAccount(ExternalIssuance, asset)
	p.stage(JournalTypeAssetMint, to, source, amount)
	return nil
}

// CloseAccount stages the removal of an emptied balance record. The
// effective balance must be zero once earlier staged legs apply;
// anything else means an asset would be stranded or destroyed.
func (p *Plan) CloseAccount(account AccountKey) error {
	if bal := p.effective(account); bal != 0 {
		return fmt.Errorf("%w: %s still holds %d", ErrAccountNotEmpty, account.AccountPath(), bal)
	}
	p.closes = append(p.closes, account)
	return nil
}

// Batch exposes the staged batch for persistence and projection.
func (p *Plan) Batch() *Batch {
	return p.batch
}

// Commit applies all staged legs and closes to the tracker as a unit.
// Nothing before Commit has touched live state, so an operation that
// failed mid-plan has zero observable effect.
func (p *Plan) Commit() error {
	if len(p.batch.Journals) > 0 {
		if err := p.tracker.ApplyBatch(p.batch); err != nil {
			return err
		}
	}
	for _, key := range p.closes {
		if err := p.tracker.Remove(key); err != nil {
			return err
		}
	}
	return nil
}
