package projection

import "testing"

func sale(seq int64, mkt string, price int64) SaleEntry {
	return SaleEntry{
		Sequence:    seq,
		Marketplace: mkt,
		Listing:     "listing",
		Asset:       "asset",
		Taker:       "taker",
		Price:       price,
		Fee:         price / 40,
		ToMaker:     price - price/40,
		TimestampUs: seq * 1_000_000,
	}
}

// ---------------------------------------------------------------------------
// Recent ordering and bounds
// ---------------------------------------------------------------------------

func TestSaleHistory_RecentNewestFirst(t *testing.T) {
	sh := NewSaleHistory(10)
	for i := int64(1); i <= 5; i++ {
		sh.Record(sale(i, "gallery", 1000*i))
	}

	got := sh.Recent(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Sequence != 5 || got[1].Sequence != 4 || got[2].Sequence != 3 {
		t.Errorf("expected sequences 5,4,3, got %d,%d,%d",
			got[0].Sequence, got[1].Sequence, got[2].Sequence)
	}
}

func TestSaleHistory_EvictsOldest(t *testing.T) {
	sh := NewSaleHistory(3)
	for i := int64(1); i <= 5; i++ {
		sh.Record(sale(i, "gallery", 1000))
	}

	if sh.Len() != 3 {
		t.Fatalf("expected buffer capped at 3, got %d", sh.Len())
	}
	got := sh.Recent(0)
	if got[len(got)-1].Sequence != 3 {
		t.Errorf("expected oldest surviving sequence 3, got %d", got[len(got)-1].Sequence)
	}
}

// ---------------------------------------------------------------------------
// Per-marketplace filtering
// ---------------------------------------------------------------------------

func TestSaleHistory_ByMarketplace(t *testing.T) {
	sh := NewSaleHistory(10)
	sh.Record(sale(1, "gallery", 1000))
	sh.Record(sale(2, "bazaar", 2000))
	sh.Record(sale(3, "gallery", 3000))

	got := sh.ByMarketplace("gallery", 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 gallery sales, got %d", len(got))
	}
	if got[0].Sequence != 3 || got[1].Sequence != 1 {
		t.Errorf("expected sequences 3,1, got %d,%d", got[0].Sequence, got[1].Sequence)
	}
}

func TestSaleHistory_CacheInvalidatedOnRecord(t *testing.T) {
	sh := NewSaleHistory(10)
	sh.Record(sale(1, "gallery", 1000))

	// Prime the per-marketplace cache.
	if got := sh.ByMarketplace("gallery", 0); len(got) != 1 {
		t.Fatalf("expected 1 sale before second record, got %d", len(got))
	}

	sh.Record(sale(2, "gallery", 2000))
	got := sh.ByMarketplace("gallery", 0)
	if len(got) != 2 {
		t.Errorf("expected cache invalidation to surface 2 sales, got %d", len(got))
	}
}
