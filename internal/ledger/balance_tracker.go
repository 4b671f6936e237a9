package ledger

import (
	"fmt"
	"sort"

	"MarketLedger/internal/derive"
)

// BalanceTracker maintains in-memory balances for both the currency
// ledger and the token ledger. Only the single-threaded core touches it.
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]int64),
	}
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}

	return nil
}

// GetBalance returns the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) int64 {
	return bt.balances[key]
}

// CurrencyBalance returns a user's native currency balance.
func (bt *BalanceTracker) CurrencyBalance(holder derive.Address) int64 {
	return bt.balances[NewCurrencyAccount(holder)]
}

// TokenBalance returns a user's balance of one asset.
func (bt *BalanceTracker) TokenBalance(holder, asset derive.Address) int64 {
	return bt.balances[NewUserAccount(holder, asset)]
}

// VaultBalance returns the custody balance of a listing's vault.
func (bt *BalanceTracker) VaultBalance(listing, asset derive.Address) int64 {
	return bt.balances[NewVaultAccount(listing, asset)]
}

// Remove deletes an account record entirely. Callers must have drained
// the balance first; a non-zero remove indicates a custody bug.
func (bt *BalanceTracker) Remove(key AccountKey) error {
	if bal := bt.balances[key]; bal != 0 {
		return fmt.Errorf("cannot remove account %s with balance %d", key.AccountPath(), bal)
	}
	delete(bt.balances, key)
	return nil
}

// ValidateNonNegative checks that no user, derived, or system account
// went below zero. External boundary accounts are exempt: they absorb
// the off-ledger side of deposits and issuance.
func (bt *BalanceTracker) ValidateNonNegative() error {
	for key, bal := range bt.balances {
		if key.Scope == ScopeExternal {
			continue
		}
		if bal < 0 {
			return fmt.Errorf("account %s has negative balance %d", key.AccountPath(), bal)
		}
	}
	return nil
}

// BalanceSnapshot is the serializable form of one account balance.
type BalanceSnapshot struct {
	Scope  uint8  `json:"scope"`
	Holder string `json:"holder"`
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

// Export returns all non-zero balances in deterministic order.
func (bt *BalanceTracker) Export() []BalanceSnapshot {
	out := make([]BalanceSnapshot, 0, len(bt.balances))
	for key, bal := range bt.balances {
		if bal == 0 {
			continue
		}
		out = append(out, BalanceSnapshot{
			Scope:  uint8(key.Scope),
			Holder: key.Holder.String(),
			Asset:  key.Asset.String(),
			Amount: bal,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Holder != out[j].Holder {
			return out[i].Holder < out[j].Holder
		}
		return out[i].Asset < out[j].Asset
	})
	return out
}

// Restore replaces the tracker contents from a snapshot.
func (bt *BalanceTracker) Restore(snaps []BalanceSnapshot) error {
	balances := make(map[AccountKey]int64, len(snaps))
	for _, s := range snaps {
		holder, err := derive.ParseAddress(s.Holder)
		if err != nil {
			return fmt.Errorf("restore holder: %w", err)
		}
		asset, err := derive.ParseAddress(s.Asset)
		if err != nil {
			return fmt.Errorf("restore asset: %w", err)
		}
		key := AccountKey{Scope: AccountScope(s.Scope), Holder: holder, Asset: asset}
		balances[key] = s.Amount
	}
	bt.balances = balances
	return nil
}
