package derive_test

import (
	"bytes"
	"errors"
	"testing"

	"MarketLedger/internal/derive"
)

// ============================================================================
// Test: Derive
// ============================================================================

func TestDerive_Deterministic(t *testing.T) {
	a1, b1, err := derive.Derive([]byte("marketplace"), []byte("Test Market"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	a2, b2, err := derive.Derive([]byte("marketplace"), []byte("Test Market"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	if a1 != a2 {
		t.Errorf("same seeds produced different addresses: %s vs %s", a1, a2)
	}
	if b1 != b2 {
		t.Errorf("same seeds produced different bumps: %d vs %d", b1, b2)
	}
}

func TestDerive_DistinctSeedsDistinctAddresses(t *testing.T) {
	a1, _, _ := derive.Derive([]byte("marketplace"), []byte("alpha"))
	a2, _, _ := derive.Derive([]byte("marketplace"), []byte("beta"))

	if a1 == a2 {
		t.Error("different seeds must not collide")
	}
}

func TestDerive_SeedBoundariesNotAmbiguous(t *testing.T) {
	// Length-prefixed hashing: ("ab","c") and ("a","bc") must differ.
	a1, _, _ := derive.Derive([]byte("ab"), []byte("c"))
	a2, _, _ := derive.Derive([]byte("a"), []byte("bc"))

	if a1 == a2 {
		t.Error("seed boundary ambiguity: concatenation-equal tuples collided")
	}
}

func TestDerive_SeedTooLong(t *testing.T) {
	long := bytes.Repeat([]byte("x"), 33)
	_, _, err := derive.Derive([]byte("marketplace"), long)
	if !errors.Is(err, derive.ErrSeedTooLong) {
		t.Errorf("want ErrSeedTooLong, got %v", err)
	}
}

func TestDerive_AddressOutsideReservedPrefix(t *testing.T) {
	addr, _, err := derive.Derive([]byte("mint"), []byte("unique-tag"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if addr[0] == 0xff {
		t.Error("derived address landed inside the reserved prefix")
	}
}

// ============================================================================
// Test: DeriveWithBump / Authority
// ============================================================================

func TestDeriveWithBump_RoundTrip(t *testing.T) {
	addr, bump, err := derive.Derive([]byte("treasury"), []byte("parent-addr-bytes"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	again, err := derive.DeriveWithBump(bump, []byte("treasury"), []byte("parent-addr-bytes"))
	if err != nil {
		t.Fatalf("derive with bump: %v", err)
	}
	if again != addr {
		t.Errorf("re-derivation mismatch: %s vs %s", again, addr)
	}
}

func TestAuthority_Authorizes(t *testing.T) {
	mkt, _, _ := derive.Marketplace("Authority Market")
	asset, _, _ := derive.Mint("authority-asset")
	listing, bump, err := derive.Listing(mkt, asset)
	if err != nil {
		t.Fatalf("derive listing: %v", err)
	}

	auth := derive.ListingAuthority(mkt, asset, bump)
	if !auth.Authorizes(listing) {
		t.Error("authority with correct seeds and bump must authorize the listing address")
	}

	// A forged bump must not authorize.
	forged := derive.ListingAuthority(mkt, asset, bump+1)
	if forged.Authorizes(listing) {
		t.Error("authority with wrong bump must not authorize")
	}

	// Seeds for a different asset must not authorize.
	other, _, _ := derive.Mint("different-asset")
	wrongSeeds := derive.ListingAuthority(mkt, other, bump)
	if wrongSeeds.Authorizes(listing) {
		t.Error("authority with wrong seeds must not authorize")
	}
}

func TestNewAuthority_CopiesSeeds(t *testing.T) {
	seed := []byte("mutable")
	auth := derive.NewAuthority(7, seed)
	seed[0] = 'X'

	if string(auth.Seeds[0]) != "mutable" {
		t.Error("authority must not alias caller-owned seed slices")
	}
}

// ============================================================================
// Test: seed helpers
// ============================================================================

func TestMarketplaceAndTreasuryChain(t *testing.T) {
	mkt, _, err := derive.Marketplace("Chained")
	if err != nil {
		t.Fatalf("marketplace: %v", err)
	}
	tre, bump, err := derive.Treasury(mkt)
	if err != nil {
		t.Fatalf("treasury: %v", err)
	}

	if tre == mkt {
		t.Error("treasury must differ from its marketplace")
	}
	if !derive.TreasuryAuthority(mkt, bump).Authorizes(tre) {
		t.Error("treasury authority must re-derive to the treasury address")
	}
}

func TestParseAddress_RoundTrip(t *testing.T) {
	addr, _, _ := derive.System("storage_deposits")
	parsed, err := derive.ParseAddress(addr.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != addr {
		t.Errorf("round trip mismatch: %s vs %s", parsed, addr)
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	if _, err := derive.ParseAddress("zz"); err == nil {
		t.Error("non-hex input must fail")
	}
	if _, err := derive.ParseAddress("abcd"); err == nil {
		t.Error("short input must fail")
	}
}
