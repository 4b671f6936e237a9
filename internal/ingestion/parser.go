package ingestion

import (
	"MarketLedger/internal/derive"
	"MarketLedger/internal/event"
	"encoding/json"
	"fmt"
)

// ParseRawOp converts a RawOp (JSON bytes + operation type string) into
// a typed event.Operation. The ingestion shell parses and shape-checks
// here; state-dependent checks belong to the core.
func ParseRawOp(raw RawOp, opType string) (event.Operation, error) {
	switch opType {
	case "MarketplaceInitialize":
		return parseMarketplaceInitialize(raw.Data)
	case "CurrencyDeposit":
		return parseCurrencyDeposit(raw.Data)
	case "AssetIssue":
		return parseAssetIssue(raw.Data)
	case "AssetMint":
		return parseAssetMint(raw.Data)
	case "ListingCreate":
		return parseListingCreate(raw.Data)
	case "ListingCancel":
		return parseListingCancel(raw.Data)
	case "ListingPurchase":
		return parseListingPurchase(raw.Data)
	default:
		return nil, fmt.Errorf("unknown operation type: %s", opType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS and the
// HTTP API. Field names use snake_case; addresses are 64-char hex.

type marketplaceInitializeJSON struct {
	IdempotencyKey string `json:"idempotency_key"`
	Admin          string `json:"admin"`
	Name           string `json:"name"`
	FeeBps         uint16 `json:"fee_bps"`
	TimestampUs    int64  `json:"timestamp_us"`
}

func parseMarketplaceInitialize(data []byte) (*event.MarketplaceInitialize, error) {
	var j marketplaceInitializeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse MarketplaceInitialize: %w", err)
	}
	admin, err := derive.ParseAddress(j.Admin)
	if err != nil {
		return nil, fmt.Errorf("parse admin: %w", err)
	}
	return &event.MarketplaceInitialize{
		Key:         j.IdempotencyKey,
		Admin:       admin,
		Name:        j.Name,
		FeeBps:      j.FeeBps,
		TimestampUs: j.TimestampUs,
	}, nil
}

type currencyDepositJSON struct {
	IdempotencyKey string `json:"idempotency_key"`
	Account        string `json:"account"`
	Amount         int64  `json:"amount"`
	TimestampUs    int64  `json:"timestamp_us"`
}

func parseCurrencyDeposit(data []byte) (*event.CurrencyDeposit, error) {
	var j currencyDepositJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CurrencyDeposit: %w", err)
	}
	account, err := derive.ParseAddress(j.Account)
	if err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	return &event.CurrencyDeposit{
		Key:         j.IdempotencyKey,
		Account:     account,
		Amount:      j.Amount,
		TimestampUs: j.TimestampUs,
	}, nil
}

type assetIssueJSON struct {
	IdempotencyKey string `json:"idempotency_key"`
	Issuer         string `json:"issuer"`
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	URI            string `json:"uri"`
	URISeed        string `json:"uri_seed"`
	Decimals       uint8  `json:"decimals"`
	TimestampUs    int64  `json:"timestamp_us"`
}

func parseAssetIssue(data []byte) (*event.AssetIssue, error) {
	var j assetIssueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse AssetIssue: %w", err)
	}
	issuer, err := derive.ParseAddress(j.Issuer)
	if err != nil {
		return nil, fmt.Errorf("parse issuer: %w", err)
	}
	return &event.AssetIssue{
		Key:         j.IdempotencyKey,
		Issuer:      issuer,
		Name:        j.Name,
		Symbol:      j.Symbol,
		URI:         j.URI,
		URISeed:     j.URISeed,
		Decimals:    j.Decimals,
		TimestampUs: j.TimestampUs,
	}, nil
}

type assetMintJSON struct {
	IdempotencyKey string `json:"idempotency_key"`
	Caller         string `json:"caller"`
	URISeed        string `json:"uri_seed"`
	Quantity       int64  `json:"quantity"`
	TimestampUs    int64  `json:"timestamp_us"`
}

func parseAssetMint(data []byte) (*event.AssetMint, error) {
	var j assetMintJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse AssetMint: %w", err)
	}
	caller, err := derive.ParseAddress(j.Caller)
	if err != nil {
		return nil, fmt.Errorf("parse caller: %w", err)
	}
	return &event.AssetMint{
		Key:         j.IdempotencyKey,
		Caller:      caller,
		URISeed:     j.URISeed,
		Quantity:    j.Quantity,
		TimestampUs: j.TimestampUs,
	}, nil
}

type listingCreateJSON struct {
	IdempotencyKey string `json:"idempotency_key"`
	Maker          string `json:"maker"`
	Marketplace    string `json:"marketplace"`
	Asset          string `json:"asset"`
	Price          int64  `json:"price"`
	TimestampUs    int64  `json:"timestamp_us"`
}

func parseListingCreate(data []byte) (*event.ListingCreate, error) {
	var j listingCreateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ListingCreate: %w", err)
	}
	maker, err := derive.ParseAddress(j.Maker)
	if err != nil {
		return nil, fmt.Errorf("parse maker: %w", err)
	}
	asset, err := derive.ParseAddress(j.Asset)
	if err != nil {
		return nil, fmt.Errorf("parse asset: %w", err)
	}
	return &event.ListingCreate{
		Key:         j.IdempotencyKey,
		Maker:       maker,
		Marketplace: j.Marketplace,
		Asset:       asset,
		Price:       j.Price,
		TimestampUs: j.TimestampUs,
	}, nil
}

type listingCancelJSON struct {
	IdempotencyKey string `json:"idempotency_key"`
	Maker          string `json:"maker"`
	Marketplace    string `json:"marketplace"`
	Asset          string `json:"asset"`
	TimestampUs    int64  `json:"timestamp_us"`
}

func parseListingCancel(data []byte) (*event.ListingCancel, error) {
	var j listingCancelJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ListingCancel: %w", err)
	}
	maker, err := derive.ParseAddress(j.Maker)
	if err != nil {
		return nil, fmt.Errorf("parse maker: %w", err)
	}
	asset, err := derive.ParseAddress(j.Asset)
	if err != nil {
		return nil, fmt.Errorf("parse asset: %w", err)
	}
	return &event.ListingCancel{
		Key:         j.IdempotencyKey,
		Maker:       maker,
		Marketplace: j.Marketplace,
		Asset:       asset,
		TimestampUs: j.TimestampUs,
	}, nil
}

type listingPurchaseJSON struct {
	IdempotencyKey string `json:"idempotency_key"`
	Taker          string `json:"taker"`
	Marketplace    string `json:"marketplace"`
	Asset          string `json:"asset"`
	TimestampUs    int64  `json:"timestamp_us"`
}

func parseListingPurchase(data []byte) (*event.ListingPurchase, error) {
	var j listingPurchaseJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ListingPurchase: %w", err)
	}
	taker, err := derive.ParseAddress(j.Taker)
	if err != nil {
		return nil, fmt.Errorf("parse taker: %w", err)
	}
	asset, err := derive.ParseAddress(j.Asset)
	if err != nil {
		return nil, fmt.Errorf("parse asset: %w", err)
	}
	return &event.ListingPurchase{
		Key:         j.IdempotencyKey,
		Taker:       taker,
		Marketplace: j.Marketplace,
		Asset:       asset,
		TimestampUs: j.TimestampUs,
	}, nil
}
