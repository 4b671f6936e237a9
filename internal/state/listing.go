package state

import (
	"errors"
	"fmt"
	"sort"

	"MarketLedger/internal/derive"
)

var (
	ErrListingExists  = errors.New("state: listing already open for this asset")
	ErrListingNotOpen = errors.New("state: no open listing")
	ErrNotMaker       = errors.New("state: caller is not the listing maker")
	ErrBadPrice       = errors.New("state: price must be positive")
)

// Listing is one open sale offer. Its derived address is keyed by
// (marketplace, asset), so at most one can exist per pair at a time; the
// record is destroyed when the sale settles or the maker withdraws.
type Listing struct {
	Address     derive.Address
	Marketplace derive.Address
	Maker       derive.Address
	Asset       derive.Address
	Price       int64
	Bump        uint8
	CreatedAt   int64
}

// NewListing validates inputs and derives the listing address. No book
// mutation happens here.
func NewListing(marketplace, maker, asset derive.Address, price int64, createdAt int64) (*Listing, error) {
	if price <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadPrice, price)
	}
	addr, bump, err := derive.Listing(marketplace, asset)
	if err != nil {
		return nil, fmt.Errorf("derive listing: %w", err)
	}
	return &Listing{
		Address:     addr,
		Marketplace: marketplace,
		Maker:       maker,
		Asset:       asset,
		Price:       price,
		Bump:        bump,
		CreatedAt:   createdAt,
	}, nil
}

// Authority returns the capability that authorizes vault operations for
// this listing. No private key exists for the listing address; holding
// the seed tuple and bump is the only way to move the escrowed asset.
func (l *Listing) Authority() derive.Authority {
	return derive.ListingAuthority(l.Marketplace, l.Asset, l.Bump)
}

// ListingBook tracks open listings by derived address.
type ListingBook struct {
	records map[derive.Address]*Listing
}

func NewListingBook() *ListingBook {
	return &ListingBook{
		records: make(map[derive.Address]*Listing),
	}
}

// Create opens a listing. An occupied derived address is the
// double-listing case and fails as a state conflict.
func (b *ListingBook) Create(l *Listing) error {
	if _, ok := b.records[l.Address]; ok {
		return fmt.Errorf("%w: asset %s", ErrListingExists, l.Asset)
	}
	b.records[l.Address] = l
	return nil
}

// Get returns the open listing at a derived address.
func (b *ListingBook) Get(addr derive.Address) (*Listing, error) {
	l, ok := b.records[addr]
	if !ok {
		return nil, fmt.Errorf("%w at %s", ErrListingNotOpen, addr)
	}
	return l, nil
}

// GetByPair re-derives the address for (marketplace, asset) and looks
// it up.
func (b *ListingBook) GetByPair(marketplace, asset derive.Address) (*Listing, error) {
	addr, _, err := derive.Listing(marketplace, asset)
	if err != nil {
		return nil, err
	}
	return b.Get(addr)
}

// Remove destroys a listing record after its terminal transition.
func (b *ListingBook) Remove(addr derive.Address) {
	delete(b.records, addr)
}

// ByMarketplace returns the open listings under one marketplace, ordered
// by address for determinism.
func (b *ListingBook) ByMarketplace(marketplace derive.Address) []*Listing {
	var out []*Listing
	for _, l := range b.records {
		if l.Marketplace == marketplace {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.String() < out[j].Address.String() })
	return out
}

// Count returns the number of open listings.
func (b *ListingBook) Count() int {
	return len(b.records)
}

// ListingSnapshot is the serializable form of one open listing.
type ListingSnapshot struct {
	Address     string `json:"address"`
	Marketplace string `json:"marketplace"`
	Maker       string `json:"maker"`
	Asset       string `json:"asset"`
	Price       int64  `json:"price"`
	Bump        uint8  `json:"bump"`
	CreatedAt   int64  `json:"created_at"`
}

// Export returns all open listings in deterministic order.
func (b *ListingBook) Export() []ListingSnapshot {
	out := make([]ListingSnapshot, 0, len(b.records))
	for _, l := range b.records {
		out = append(out, ListingSnapshot{
			Address:     l.Address.String(),
			Marketplace: l.Marketplace.String(),
			Maker:       l.Maker.String(),
			Asset:       l.Asset.String(),
			Price:       l.Price,
			Bump:        l.Bump,
			CreatedAt:   l.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Restore replaces the book contents from a snapshot.
func (b *ListingBook) Restore(snaps []ListingSnapshot) error {
	records := make(map[derive.Address]*Listing, len(snaps))
	for _, s := range snaps {
		addr, err := derive.ParseAddress(s.Address)
		if err != nil {
			return fmt.Errorf("restore listing address: %w", err)
		}
		marketplace, err := derive.ParseAddress(s.Marketplace)
		if err != nil {
			return fmt.Errorf("restore listing marketplace: %w", err)
		}
		maker, err := derive.ParseAddress(s.Maker)
		if err != nil {
			return fmt.Errorf("restore listing maker: %w", err)
		}
		asset, err := derive.ParseAddress(s.Asset)
		if err != nil {
			return fmt.Errorf("restore listing asset: %w", err)
		}
		records[addr] = &Listing{
			Address:     addr,
			Marketplace: marketplace,
			Maker:       maker,
			Asset:       asset,
			Price:       s.Price,
			Bump:        s.Bump,
			CreatedAt:   s.CreatedAt,
		}
	}
	b.records = records
	return nil
}
