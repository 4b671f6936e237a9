package ingestion_test

import (
	"MarketLedger/internal/event"
	"MarketLedger/internal/ingestion"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

const (
	hexAddrA = "1000000000000000000000000000000000000000000000000000000000000001"
	hexAddrB = "1000000000000000000000000000000000000000000000000000000000000002"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawOp {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawOp{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseMarketplaceInitialize(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "init-1",
		"admin":           hexAddrA,
		"name":            "artmarket",
		"fee_bps":         uint16(250),
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	op, err := ingestion.ParseRawOp(raw, "MarketplaceInitialize")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	mi, ok := op.(*event.MarketplaceInitialize)
	if !ok {
		t.Fatalf("expected *event.MarketplaceInitialize, got %T", op)
	}
	if mi.Name != "artmarket" {
		t.Errorf("name: got %s, want artmarket", mi.Name)
	}
	if mi.FeeBps != 250 {
		t.Errorf("fee_bps: got %d, want 250", mi.FeeBps)
	}
	if mi.Admin.String() != hexAddrA {
		t.Errorf("admin round trip: got %s", mi.Admin)
	}
	if mi.OpType() != event.OpTypeMarketplaceInitialize {
		t.Errorf("op type: got %v", mi.OpType())
	}
	if err := mi.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestParseCurrencyDeposit(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "dep-1",
		"account":         hexAddrA,
		"amount":          int64(1_000_000),
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	op, err := ingestion.ParseRawOp(raw, "CurrencyDeposit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	cd, ok := op.(*event.CurrencyDeposit)
	if !ok {
		t.Fatalf("expected *event.CurrencyDeposit, got %T", op)
	}
	if cd.Amount != 1_000_000 {
		t.Errorf("amount: got %d, want 1_000_000", cd.Amount)
	}
}

func TestParseAssetIssue(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "issue-1",
		"issuer":          hexAddrA,
		"name":            "Sunset No. 4",
		"symbol":          "SUN4",
		"uri":             "https://assets.example/sunset-4.json",
		"uri_seed":        "sunset-4",
		"decimals":        uint8(0),
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	op, err := ingestion.ParseRawOp(raw, "AssetIssue")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ai, ok := op.(*event.AssetIssue)
	if !ok {
		t.Fatalf("expected *event.AssetIssue, got %T", op)
	}
	if ai.URISeed != "sunset-4" {
		t.Errorf("uri_seed: got %s", ai.URISeed)
	}
	if ai.Decimals != 0 {
		t.Errorf("decimals: got %d, want 0", ai.Decimals)
	}
}

func TestParseAssetMint(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "mint-1",
		"caller":          hexAddrA,
		"uri_seed":        "sunset-4",
		"quantity":        int64(1),
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	op, err := ingestion.ParseRawOp(raw, "AssetMint")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	am, ok := op.(*event.AssetMint)
	if !ok {
		t.Fatalf("expected *event.AssetMint, got %T", op)
	}
	if am.Quantity != 1 {
		t.Errorf("quantity: got %d, want 1", am.Quantity)
	}
}

func TestParseListingCreate(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "list-1",
		"maker":           hexAddrA,
		"marketplace":     "artmarket",
		"asset":           hexAddrB,
		"price":           int64(10_000),
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	op, err := ingestion.ParseRawOp(raw, "ListingCreate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	lc, ok := op.(*event.ListingCreate)
	if !ok {
		t.Fatalf("expected *event.ListingCreate, got %T", op)
	}
	if lc.Price != 10_000 {
		t.Errorf("price: got %d, want 10_000", lc.Price)
	}
	if lc.MarketplaceName() != "artmarket" {
		t.Errorf("marketplace: got %s", lc.MarketplaceName())
	}
	if lc.Asset.String() != hexAddrB {
		t.Errorf("asset round trip: got %s", lc.Asset)
	}
}

func TestParseListingCancel(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "cancel-1",
		"maker":           hexAddrA,
		"marketplace":     "artmarket",
		"asset":           hexAddrB,
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	op, err := ingestion.ParseRawOp(raw, "ListingCancel")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, ok := op.(*event.ListingCancel); !ok {
		t.Fatalf("expected *event.ListingCancel, got %T", op)
	}
}

func TestParseListingPurchase(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "buy-1",
		"taker":           hexAddrA,
		"marketplace":     "artmarket",
		"asset":           hexAddrB,
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	op, err := ingestion.ParseRawOp(raw, "ListingPurchase")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, ok := op.(*event.ListingPurchase); !ok {
		t.Fatalf("expected *event.ListingPurchase, got %T", op)
	}
}

func TestParseBadAddress(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "dep-1",
		"account":         "not-hex",
		"amount":          int64(100),
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawOp(raw, "CurrencyDeposit"); err == nil {
		t.Fatal("expected an error for a malformed address")
	}
}

func TestParseShortAddress(t *testing.T) {
	payload := map[string]interface{}{
		"idempotency_key": "dep-1",
		"account":         strings.TrimSuffix(hexAddrA, "01"),
		"amount":          int64(100),
		"timestamp_us":    int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawOp(raw, "CurrencyDeposit"); err == nil {
		t.Fatal("expected an error for a truncated address")
	}
}

func TestParseUnknownOpType(t *testing.T) {
	raw := rawFromJSON(t, map[string]interface{}{})
	if _, err := ingestion.ParseRawOp(raw, "OrderCancel"); err == nil {
		t.Fatal("expected an error for an unknown operation type")
	}
}

func TestParseMalformedJSON(t *testing.T) {
	raw := ingestion.RawOp{Subject: "test", Data: []byte("{nope"), Timestamp: time.Now()}
	if _, err := ingestion.ParseRawOp(raw, "AssetMint"); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
