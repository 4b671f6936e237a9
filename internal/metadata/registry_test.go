package metadata_test

import (
	"errors"
	"testing"

	"MarketLedger/internal/derive"
	"MarketLedger/internal/metadata"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := metadata.NewMemoryRegistry()
	asset, _, _ := derive.Mint("meta-1")

	if err := r.Register(asset, "Service NFT", "SNFT", "https://example.com/1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec, err := r.Get(asset)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Name != "Service NFT" || rec.Symbol != "SNFT" {
		t.Errorf("record mismatch: %+v", rec)
	}
}

func TestRegistry_MutableUntilFinalized(t *testing.T) {
	r := metadata.NewMemoryRegistry()
	asset, _, _ := derive.Mint("meta-2")

	if err := r.Register(asset, "Draft", "DRF", "https://example.com/draft"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(asset, "Final", "FNL", "https://example.com/final"); err != nil {
		t.Fatalf("re-register before finalize: %v", err)
	}
	if err := r.FinalizeEdition(asset); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Identical re-registration is a no-op.
	if err := r.Register(asset, "Final", "FNL", "https://example.com/final"); err != nil {
		t.Errorf("idempotent re-register: %v", err)
	}
	// Changing data after finalize is rejected.
	err := r.Register(asset, "Changed", "CHG", "https://example.com/changed")
	if !errors.Is(err, metadata.ErrEditionFinal) {
		t.Errorf("want ErrEditionFinal, got %v", err)
	}
}

func TestRegistry_FinalizeUnknown(t *testing.T) {
	r := metadata.NewMemoryRegistry()
	asset, _, _ := derive.Mint("meta-3")

	if err := r.FinalizeEdition(asset); !errors.Is(err, metadata.ErrNotRegistered) {
		t.Errorf("want ErrNotRegistered, got %v", err)
	}
}

func TestRegistry_ExportRestore(t *testing.T) {
	r := metadata.NewMemoryRegistry()
	asset, _, _ := derive.Mint("meta-4")
	if err := r.Register(asset, "Kept", "KPT", "https://example.com/kept"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.FinalizeEdition(asset); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	restored := metadata.NewMemoryRegistry()
	if err := restored.Restore(r.Export()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	rec, err := restored.Get(asset)
	if err != nil {
		t.Fatalf("get after restore: %v", err)
	}
	if !rec.EditionFinal || rec.Name != "Kept" {
		t.Errorf("restored record mismatch: %+v", rec)
	}
}
