package core

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// IdempotencyChecker implements two-tier deduplication: a TTL'd
// in-memory cache in front of a Postgres lookup over the operation log.
type IdempotencyChecker struct {
	cache     *gocache.Cache
	dbChecker DBIdempotencyChecker
}

// DBIdempotencyChecker is the interface for the Postgres dedup lookup
type DBIdempotencyChecker interface {
	IsDuplicate(opType string, idempotencyKey string) (bool, error)
}

// NewIdempotencyChecker creates a checker whose tier-1 entries expire
// after ttl. Expired entries fall through to the Postgres tier, which
// is authoritative.
func NewIdempotencyChecker(ttl time.Duration, dbChecker DBIdempotencyChecker) *IdempotencyChecker {
	return &IdempotencyChecker{
		cache:     gocache.New(ttl, 2*ttl),
		dbChecker: dbChecker,
	}
}

// IsDuplicate checks if an operation has been processed (two-tier lookup).
// tier is "cache" or "postgres" when dup is true. A tier-2 lookup error
// is returned as-is: without an answer from the authoritative tier the
// operation must not be applied, or an expired cache entry would let a
// repeat commit twice.
func (ic *IdempotencyChecker) IsDuplicate(opType, idempotencyKey string) (dup bool, tier string, err error) {
	compositeKey := fmt.Sprintf("%s:%s", opType, idempotencyKey)

	if _, found := ic.cache.Get(compositeKey); found {
		return true, "cache", nil
	}

	if ic.dbChecker != nil {
		isDup, err := ic.dbChecker.IsDuplicate(opType, idempotencyKey)
		if err != nil {
			return false, "", fmt.Errorf("dedup lookup %s:%s: %w", opType, idempotencyKey, err)
		}
		if isDup {
			ic.cache.SetDefault(compositeKey, struct{}{})
			return true, "postgres", nil
		}
	}

	return false, "", nil
}

// MarkProcessed records a key after successful processing.
func (ic *IdempotencyChecker) MarkProcessed(opType, idempotencyKey string) {
	ic.cache.SetDefault(fmt.Sprintf("%s:%s", opType, idempotencyKey), struct{}{})
}

// Warm preloads keys recovered from a snapshot.
func (ic *IdempotencyChecker) Warm(compositeKeys []string) {
	for _, k := range compositeKeys {
		ic.cache.SetDefault(k, struct{}{})
	}
}

// Keys returns the currently cached composite keys for snapshotting.
func (ic *IdempotencyChecker) Keys() []string {
	items := ic.cache.Items()
	out := make([]string, 0, len(items))
	for k := range items {
		out = append(out, k)
	}
	return out
}
