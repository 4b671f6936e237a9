package event

import (
	"errors"
	"fmt"

	"MarketLedger/internal/derive"
)

var (
	ErrMissingKey    = errors.New("event: missing idempotency key")
	ErrMissingActor  = errors.New("event: missing actor address")
	ErrBadAmount     = errors.New("event: amount must be positive")
	ErrMissingURI    = errors.New("event: missing metadata uri")
	ErrMissingSeed   = errors.New("event: missing uri seed")
	ErrMissingAsset  = errors.New("event: missing asset address")
	ErrMissingMarket = errors.New("event: missing marketplace name")
)

// MarketplaceInitialize creates the named marketplace record. Name and
// fee bounds are checked by the registry, not here: the core rejects
// them before any derived address is computed.
type MarketplaceInitialize struct {
	Key         string
	Admin       derive.Address
	Name        string
	FeeBps      uint16
	TimestampUs int64
}

func (op *MarketplaceInitialize) IdempotencyKey() string { return op.Key }
func (op *MarketplaceInitialize) OpType() OpType         { return OpTypeMarketplaceInitialize }
func (op *MarketplaceInitialize) MarketplaceName() string {
	return op.Name
}
func (op *MarketplaceInitialize) Validate() error {
	if op.Key == "" {
		return ErrMissingKey
	}
	if op.Admin.IsZero() {
		return fmt.Errorf("%w: admin", ErrMissingActor)
	}
	if op.Name == "" {
		return ErrMissingMarket
	}
	return nil
}

// CurrencyDeposit credits an account from the external currency
// boundary. It is how takers and makers are funded at all.
type CurrencyDeposit struct {
	Key         string
	Account     derive.Address
	Amount      int64
	TimestampUs int64
}

func (op *CurrencyDeposit) IdempotencyKey() string  { return op.Key }
func (op *CurrencyDeposit) OpType() OpType          { return OpTypeCurrencyDeposit }
func (op *CurrencyDeposit) MarketplaceName() string { return "" }
func (op *CurrencyDeposit) Validate() error {
	if op.Key == "" {
		return ErrMissingKey
	}
	if op.Account.IsZero() {
		return fmt.Errorf("%w: account", ErrMissingActor)
	}
	if op.Amount <= 0 {
		return fmt.Errorf("%w: %d", ErrBadAmount, op.Amount)
	}
	return nil
}

// AssetIssue creates a new asset identity at the address derived from
// the caller's unique tag and registers its metadata.
type AssetIssue struct {
	Key         string
	Issuer      derive.Address
	Name        string
	Symbol      string
	URI         string
	URISeed     string
	Decimals    uint8
	TimestampUs int64
}

func (op *AssetIssue) IdempotencyKey() string  { return op.Key }
func (op *AssetIssue) OpType() OpType          { return OpTypeAssetIssue }
func (op *AssetIssue) MarketplaceName() string { return "" }
func (op *AssetIssue) Validate() error {
	if op.Key == "" {
		return ErrMissingKey
	}
	if op.Issuer.IsZero() {
		return fmt.Errorf("%w: issuer", ErrMissingActor)
	}
	if op.URISeed == "" {
		return ErrMissingSeed
	}
	if op.URI == "" {
		return ErrMissingURI
	}
	return nil
}

// AssetMint mints units of an issued asset into the issuer's personal
// balance and then finalizes the edition of record, locking supply.
type AssetMint struct {
	Key         string
	Caller      derive.Address
	URISeed     string
	Quantity    int64
	TimestampUs int64
}

func (op *AssetMint) IdempotencyKey() string  { return op.Key }
func (op *AssetMint) OpType() OpType          { return OpTypeAssetMint }
func (op *AssetMint) MarketplaceName() string { return "" }
func (op *AssetMint) Validate() error {
	if op.Key == "" {
		return ErrMissingKey
	}
	if op.Caller.IsZero() {
		return fmt.Errorf("%w: caller", ErrMissingActor)
	}
	if op.URISeed == "" {
		return ErrMissingSeed
	}
	if op.Quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrBadAmount, op.Quantity)
	}
	return nil
}

// ListingCreate opens a sale offer and moves the asset into custody.
type ListingCreate struct {
	Key         string
	Maker       derive.Address
	Marketplace string
	Asset       derive.Address
	Price       int64
	TimestampUs int64
}

func (op *ListingCreate) IdempotencyKey() string  { return op.Key }
func (op *ListingCreate) OpType() OpType          { return OpTypeListingCreate }
func (op *ListingCreate) MarketplaceName() string { return op.Marketplace }
func (op *ListingCreate) Validate() error {
	if op.Key == "" {
		return ErrMissingKey
	}
	if op.Maker.IsZero() {
		return fmt.Errorf("%w: maker", ErrMissingActor)
	}
	if op.Marketplace == "" {
		return ErrMissingMarket
	}
	if op.Asset.IsZero() {
		return ErrMissingAsset
	}
	if op.Price <= 0 {
		return fmt.Errorf("%w: price %d", ErrBadAmount, op.Price)
	}
	return nil
}

// ListingCancel withdraws an open listing; only the maker may cancel.
type ListingCancel struct {
	Key         string
	Maker       derive.Address
	Marketplace string
	Asset       derive.Address
	TimestampUs int64
}

func (op *ListingCancel) IdempotencyKey() string  { return op.Key }
func (op *ListingCancel) OpType() OpType          { return OpTypeListingCancel }
func (op *ListingCancel) MarketplaceName() string { return op.Marketplace }
func (op *ListingCancel) Validate() error {
	if op.Key == "" {
		return ErrMissingKey
	}
	if op.Maker.IsZero() {
		return fmt.Errorf("%w: maker", ErrMissingActor)
	}
	if op.Marketplace == "" {
		return ErrMissingMarket
	}
	if op.Asset.IsZero() {
		return ErrMissingAsset
	}
	return nil
}

// ListingPurchase settles an open listing for its fixed price.
type ListingPurchase struct {
	Key         string
	Taker       derive.Address
	Marketplace string
	Asset       derive.Address
	TimestampUs int64
}

func (op *ListingPurchase) IdempotencyKey() string  { return op.Key }
func (op *ListingPurchase) OpType() OpType          { return OpTypeListingPurchase }
func (op *ListingPurchase) MarketplaceName() string { return op.Marketplace }
func (op *ListingPurchase) Validate() error {
	if op.Key == "" {
		return ErrMissingKey
	}
	if op.Taker.IsZero() {
		return fmt.Errorf("%w: taker", ErrMissingActor)
	}
	if op.Marketplace == "" {
		return ErrMissingMarket
	}
	if op.Asset.IsZero() {
		return ErrMissingAsset
	}
	return nil
}
