// Package metadata implements the descriptive-asset registry the
// marketplace delegates to: name/symbol/URI records plus the permanent
// edition-of-record marker that locks an asset's supply.
package metadata

import (
	"errors"
	"fmt"
	"sort"

	"MarketLedger/internal/derive"
)

var (
	ErrNotRegistered = errors.New("metadata: asset not registered")
	ErrEditionFinal  = errors.New("metadata: edition already finalized")
)

// Record is one asset's descriptive entry.
type Record struct {
	Asset        derive.Address
	Name         string
	Symbol       string
	URI          string
	EditionFinal bool
}

// Registry is the collaborator contract. Idempotency and mutability
// policy live here, not in the marketplace protocol.
type Registry interface {
	// Register creates or updates the record for an asset. Re-registering
	// identical data is a no-op; changing data is allowed until the
	// edition is finalized.
	Register(asset derive.Address, name, symbol, uri string) error

	// FinalizeEdition permanently marks the edition of record. Finalizing
	// twice is idempotent.
	FinalizeEdition(asset derive.Address) error

	// Get returns the record for an asset.
	Get(asset derive.Address) (*Record, error)
}

// MemoryRegistry is the in-process registry owned by the core. Only the
// single-threaded core mutates it; snapshots carry its contents.
type MemoryRegistry struct {
	records map[derive.Address]*Record
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		records: make(map[derive.Address]*Record),
	}
}

func (r *MemoryRegistry) Register(asset derive.Address, name, symbol, uri string) error {
	if existing, ok := r.records[asset]; ok {
		if existing.EditionFinal {
			if existing.Name == name && existing.Symbol == symbol && existing.URI == uri {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrEditionFinal, asset)
		}
	}
	r.records[asset] = &Record{Asset: asset, Name: name, Symbol: symbol, URI: uri}
	return nil
}

func (r *MemoryRegistry) FinalizeEdition(asset derive.Address) error {
	rec, ok := r.records[asset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, asset)
	}
	rec.EditionFinal = true
	return nil
}

func (r *MemoryRegistry) Get(asset derive.Address) (*Record, error) {
	rec, ok := r.records[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, asset)
	}
	return rec, nil
}

// RecordSnapshot is the serializable form of one registry entry.
type RecordSnapshot struct {
	Asset        string `json:"asset"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	URI          string `json:"uri"`
	EditionFinal bool   `json:"edition_final"`
}

// Export returns all records in deterministic order.
func (r *MemoryRegistry) Export() []RecordSnapshot {
	out := make([]RecordSnapshot, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, RecordSnapshot{
			Asset:        rec.Asset.String(),
			Name:         rec.Name,
			Symbol:       rec.Symbol,
			URI:          rec.URI,
			EditionFinal: rec.EditionFinal,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// Restore replaces the registry contents from a snapshot.
func (r *MemoryRegistry) Restore(snaps []RecordSnapshot) error {
	records := make(map[derive.Address]*Record, len(snaps))
	for _, s := range snaps {
		asset, err := derive.ParseAddress(s.Asset)
		if err != nil {
			return fmt.Errorf("restore metadata asset: %w", err)
		}
		records[asset] = &Record{
			Asset:        asset,
			Name:         s.Name,
			Symbol:       s.Symbol,
			URI:          s.URI,
			EditionFinal: s.EditionFinal,
		}
	}
	r.records = records
	return nil
}
