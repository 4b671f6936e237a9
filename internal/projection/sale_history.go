package projection

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// SaleEntry is one settled purchase as seen by the read side.
type SaleEntry struct {
	Sequence    int64  `json:"sequence"`
	Marketplace string `json:"marketplace"`
	Listing     string `json:"listing"`
	Asset       string `json:"asset"`
	Taker       string `json:"taker"`
	Price       int64  `json:"price"`
	Fee         int64  `json:"fee"`
	ToMaker     int64  `json:"to_maker"`
	TimestampUs int64  `json:"timestamp_us"`
}

// SaleHistory keeps a bounded in-memory tail of recent sales for the
// HTTP query surface, plus a short-lived per-marketplace cache so hot
// marketplaces do not rescan the tail on every request. The durable
// record lives in projections.sales; this is a serving convenience.
type SaleHistory struct {
	mu      sync.RWMutex
	entries []SaleEntry
	maxSize int
	byMkt   *cache.Cache
}

func NewSaleHistory(maxSize int) *SaleHistory {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &SaleHistory{
		entries: make([]SaleEntry, 0, maxSize),
		maxSize: maxSize,
		byMkt:   cache.New(5*time.Second, time.Minute),
	}
}

// Record appends a sale, evicting the oldest entry when the tail is
// full. Called by the projection worker after the output commits.
func (sh *SaleHistory) Record(e SaleEntry) {
	sh.mu.Lock()
	if len(sh.entries) == sh.maxSize {
		copy(sh.entries, sh.entries[1:])
		sh.entries[len(sh.entries)-1] = e
	} else {
		sh.entries = append(sh.entries, e)
	}
	sh.mu.Unlock()
	sh.byMkt.Delete(e.Marketplace)
}

// Recent returns up to limit sales, newest first.
func (sh *SaleHistory) Recent(limit int) []SaleEntry {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if limit <= 0 || limit > len(sh.entries) {
		limit = len(sh.entries)
	}
	out := make([]SaleEntry, 0, limit)
	for i := len(sh.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, sh.entries[i])
	}
	return out
}

// ByMarketplace returns the tail of sales for one marketplace, newest
// first. Results are cached briefly since the tail only changes on new
// purchases.
func (sh *SaleHistory) ByMarketplace(marketplace string, limit int) []SaleEntry {
	if cached, ok := sh.byMkt.Get(marketplace); ok {
		all := cached.([]SaleEntry)
		if limit > 0 && limit < len(all) {
			return all[:limit]
		}
		return all
	}

	sh.mu.RLock()
	all := make([]SaleEntry, 0, 16)
	for i := len(sh.entries) - 1; i >= 0; i-- {
		if sh.entries[i].Marketplace == marketplace {
			all = append(all, sh.entries[i])
		}
	}
	sh.mu.RUnlock()

	sh.byMkt.SetDefault(marketplace, all)
	if limit > 0 && limit < len(all) {
		return all[:limit]
	}
	return all
}

// Len reports the number of buffered sales.
func (sh *SaleHistory) Len() int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.entries)
}
