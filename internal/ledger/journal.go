package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeDeposit JournalType = iota
	JournalTypePayment
	JournalTypeFee
	JournalTypeEscrowDeposit
	JournalTypeEscrowRelease
	JournalTypeAssetMint
	JournalTypeStorageDeposit
	JournalTypeStorageRefund
)

func (jt JournalType) String() string {
	switch jt {
	case JournalTypeDeposit:
		return "deposit"
	case JournalTypePayment:
		return "payment"
	case JournalTypeFee:
		return "fee"
	case JournalTypeEscrowDeposit:
		return "escrow_deposit"
	case JournalTypeEscrowRelease:
		return "escrow_release"
	case JournalTypeAssetMint:
		return "asset_mint"
	case JournalTypeStorageDeposit:
		return "storage_deposit"
	case JournalTypeStorageRefund:
		return "storage_refund"
	default:
		return "unknown"
	}
}

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups the entries of one operation
	OpRef         string      // Idempotency key of the source operation
	Sequence      int64       // Global operation sequence
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	Asset         [32]byte    // Asset moved (zero = native currency)
	Amount        int64       // Smallest-unit amount (ALWAYS positive)
	JournalType   JournalType // Entry type
	Timestamp     int64       // Operation timestamp (epoch microseconds)
}

// Batch represents the balanced set of journal entries produced by one
// atomic operation. Either the whole batch applies or none of it does.
type Batch struct {
	BatchID   uuid.UUID
	OpRef     string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// Validate ensures the batch is well-formed. Each entry is a balanced
// transfer by construction (one positive amount moving from credit
// account to debit account), so Σ debits == Σ credits holds per entry;
// multi-leg operations (purchase with fee split) use multiple entries
// under one batch_id.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}
		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}
		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
		if j.DebitAccount.Asset != j.CreditAccount.Asset {
			return fmt.Errorf("journal %s moves value across assets", j.JournalID)
		}
	}

	return nil
}
