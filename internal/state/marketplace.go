package state

import (
	"errors"
	"fmt"
	"sort"

	"MarketLedger/internal/derive"
	"MarketLedger/internal/feemath"
)

var (
	ErrNameLength         = errors.New("state: marketplace name must be 1-32 bytes")
	ErrMarketplaceExists  = errors.New("state: marketplace already initialized")
	ErrMarketplaceUnknown = errors.New("state: marketplace not found")
)

// Marketplace is the singleton fee-configured root record for one name.
// The name is immutable after creation and doubles as a derivation seed,
// so its length check runs before any address is computed.
type Marketplace struct {
	Address      derive.Address
	Treasury     derive.Address
	Admin        derive.Address
	Name         string
	FeeBps       uint16
	Bump         uint8
	TreasuryBump uint8
	CreatedAt    int64
}

// NewMarketplace validates inputs and derives the record and treasury
// addresses. No book mutation happens here.
func NewMarketplace(admin derive.Address, name string, feeBps uint16, createdAt int64) (*Marketplace, error) {
	if len(name) < 1 || len(name) > 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrNameLength, len(name))
	}
	if feeBps > feemath.MaxFeeBps {
		return nil, fmt.Errorf("%w (%d)", feemath.ErrFeeOutOfRange, feeBps)
	}

	addr, bump, err := derive.Marketplace(name)
	if err != nil {
		return nil, fmt.Errorf("derive marketplace: %w", err)
	}
	treasury, treasuryBump, err := derive.Treasury(addr)
	if err != nil {
		return nil, fmt.Errorf("derive treasury: %w", err)
	}

	return &Marketplace{
		Address:      addr,
		Treasury:     treasury,
		Admin:        admin,
		Name:         name,
		FeeBps:       feeBps,
		Bump:         bump,
		TreasuryBump: treasuryBump,
		CreatedAt:    createdAt,
	}, nil
}

// TreasuryAuthority returns the capability over the marketplace treasury.
func (m *Marketplace) TreasuryAuthority() derive.Authority {
	return derive.TreasuryAuthority(m.Address, m.TreasuryBump)
}

// MarketplaceBook tracks initialized marketplaces by derived address.
type MarketplaceBook struct {
	records map[derive.Address]*Marketplace
}

func NewMarketplaceBook() *MarketplaceBook {
	return &MarketplaceBook{
		records: make(map[derive.Address]*Marketplace),
	}
}

// Create inserts a marketplace. An occupied address means the name is
// taken; re-initialization is not idempotent.
func (b *MarketplaceBook) Create(m *Marketplace) error {
	if _, ok := b.records[m.Address]; ok {
		return fmt.Errorf("%w: %q", ErrMarketplaceExists, m.Name)
	}
	b.records[m.Address] = m
	return nil
}

// Get returns the marketplace at a derived address.
func (b *MarketplaceBook) Get(addr derive.Address) (*Marketplace, error) {
	m, ok := b.records[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMarketplaceUnknown, addr)
	}
	return m, nil
}

// GetByName re-derives the address for a name and looks it up.
func (b *MarketplaceBook) GetByName(name string) (*Marketplace, error) {
	if len(name) < 1 || len(name) > 32 {
		return nil, ErrNameLength
	}
	addr, _, err := derive.Marketplace(name)
	if err != nil {
		return nil, err
	}
	m, ok := b.records[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMarketplaceUnknown, name)
	}
	return m, nil
}

// MarketplaceSnapshot is the serializable form of one marketplace.
type MarketplaceSnapshot struct {
	Address      string `json:"address"`
	Treasury     string `json:"treasury"`
	Admin        string `json:"admin"`
	Name         string `json:"name"`
	FeeBps       uint16 `json:"fee_bps"`
	Bump         uint8  `json:"bump"`
	TreasuryBump uint8  `json:"treasury_bump"`
	CreatedAt    int64  `json:"created_at"`
}

// Export returns all marketplaces in deterministic order.
func (b *MarketplaceBook) Export() []MarketplaceSnapshot {
	out := make([]MarketplaceSnapshot, 0, len(b.records))
	for _, m := range b.records {
		out = append(out, MarketplaceSnapshot{
			Address:      m.Address.String(),
			Treasury:     m.Treasury.String(),
			Admin:        m.Admin.String(),
			Name:         m.Name,
			FeeBps:       m.FeeBps,
			Bump:         m.Bump,
			TreasuryBump: m.TreasuryBump,
			CreatedAt:    m.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Restore replaces the book contents from a snapshot.
func (b *MarketplaceBook) Restore(snaps []MarketplaceSnapshot) error {
	records := make(map[derive.Address]*Marketplace, len(snaps))
	for _, s := range snaps {
		addr, err := derive.ParseAddress(s.Address)
		if err != nil {
			return fmt.Errorf("restore marketplace address: %w", err)
		}
		treasury, err := derive.ParseAddress(s.Treasury)
		if err != nil {
			return fmt.Errorf("restore treasury address: %w", err)
		}
		admin, err := derive.ParseAddress(s.Admin)
		if err != nil {
			return fmt.Errorf("restore admin address: %w", err)
		}
		records[addr] = &Marketplace{
			Address:      addr,
			Treasury:     treasury,
			Admin:        admin,
			Name:         s.Name,
			FeeBps:       s.FeeBps,
			Bump:         s.Bump,
			TreasuryBump: s.TreasuryBump,
			CreatedAt:    s.CreatedAt,
		}
	}
	b.records = records
	return nil
}
