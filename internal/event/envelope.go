package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// OpType discriminator for operation payloads
type OpType int32

const (
	OpTypeUnknown OpType = iota
	OpTypeMarketplaceInitialize
	OpTypeCurrencyDeposit
	OpTypeAssetIssue
	OpTypeAssetMint
	OpTypeListingCreate
	OpTypeListingCancel
	OpTypeListingPurchase
)

func (ot OpType) String() string {
	switch ot {
	case OpTypeMarketplaceInitialize:
		return "MarketplaceInitialize"
	case OpTypeCurrencyDeposit:
		return "CurrencyDeposit"
	case OpTypeAssetIssue:
		return "AssetIssue"
	case OpTypeAssetMint:
		return "AssetMint"
	case OpTypeListingCreate:
		return "ListingCreate"
	case OpTypeListingCancel:
		return "ListingCancel"
	case OpTypeListingPurchase:
		return "ListingPurchase"
	default:
		return "Unknown"
	}
}

// OpEnvelope wraps every applied operation in the log
type OpEnvelope struct {
	// Global monotonic sequence assigned by the core
	Sequence int64

	// Stable idempotency key from the submitter
	IdempotencyKey string

	// Operation type discriminator
	OpType OpType

	// Marketplace context (nil for marketplace-independent ops)
	Marketplace *string

	// Submission timestamp carried on the operation, not wall clock
	Timestamp time.Time

	// JSON-encoded operation payload
	Payload []byte

	// SHA-256 of state AFTER applying this operation
	StateHash [32]byte

	// Previous operation's state hash (chain integrity)
	PrevHash [32]byte
}

// Operation is the interface all operation payloads implement
type Operation interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// OpType returns the discriminator
	OpType() OpType

	// MarketplaceName returns the marketplace context ("" when none)
	MarketplaceName() string

	// Validate checks input shape only; state-dependent checks belong
	// to the core
	Validate() error
}

// DecodePayload unmarshals a logged operation payload back into its
// typed form. Payloads are written with encoding/json from the typed
// structs, so replay round-trips exactly.
func DecodePayload(opType string, data []byte) (Operation, error) {
	var op Operation
	switch opType {
	case "MarketplaceInitialize":
		op = &MarketplaceInitialize{}
	case "CurrencyDeposit":
		op = &CurrencyDeposit{}
	case "AssetIssue":
		op = &AssetIssue{}
	case "AssetMint":
		op = &AssetMint{}
	case "ListingCreate":
		op = &ListingCreate{}
	case "ListingCancel":
		op = &ListingCancel{}
	case "ListingPurchase":
		op = &ListingPurchase{}
	default:
		return nil, fmt.Errorf("decode payload: unknown op type %q", opType)
	}
	if err := json.Unmarshal(data, op); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", opType, err)
	}
	return op, nil
}
