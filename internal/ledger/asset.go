package ledger

import (
	"errors"
	"fmt"
	"sort"

	"MarketLedger/internal/derive"
)

var (
	ErrUnknownAsset = errors.New("ledger: unknown asset")
	ErrAssetExists  = errors.New("ledger: asset already exists")
)

// AssetInfo is the identity record of one asset mint. It carries
// identity, not balances (those live in the BalanceTracker).
type AssetInfo struct {
	Address       derive.Address
	Bump          uint8
	Decimals      uint8
	Supply        int64
	MintAuthority derive.Address
	// EditionFinal marks the permanent edition of record: once set, no
	// further units can ever be minted.
	EditionFinal bool
}

// AssetBook tracks every issued asset by its derived mint address.
type AssetBook struct {
	assets map[derive.Address]*AssetInfo
}

func NewAssetBook() *AssetBook {
	return &AssetBook{
		assets: make(map[derive.Address]*AssetInfo),
	}
}

// Create registers a new asset identity. Fails if the address is occupied.
func (ab *AssetBook) Create(info AssetInfo) error {
	if _, ok := ab.assets[info.Address]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, info.Address)
	}
	cp := info
	ab.assets[info.Address] = &cp
	return nil
}

// Get returns the asset identity, or ErrUnknownAsset.
func (ab *AssetBook) Get(addr derive.Address) (*AssetInfo, error) {
	info, ok := ab.assets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, addr)
	}
	return info, nil
}

// Exists reports whether the mint address is occupied.
func (ab *AssetBook) Exists(addr derive.Address) bool {
	_, ok := ab.assets[addr]
	return ok
}

// AssetSnapshot is the serializable form of one asset identity.
type AssetSnapshot struct {
	Address       string `json:"address"`
	Bump          uint8  `json:"bump"`
	Decimals      uint8  `json:"decimals"`
	Supply        int64  `json:"supply"`
	MintAuthority string `json:"mint_authority"`
	EditionFinal  bool   `json:"edition_final"`
}

// Export returns all assets in deterministic order.
func (ab *AssetBook) Export() []AssetSnapshot {
	out := make([]AssetSnapshot, 0, len(ab.assets))
	for _, a := range ab.assets {
		out = append(out, AssetSnapshot{
			Address:       a.Address.String(),
			Bump:          a.Bump,
			Decimals:      a.Decimals,
			Supply:        a.Supply,
			MintAuthority: a.MintAuthority.String(),
			EditionFinal:  a.EditionFinal,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Restore replaces the book contents from a snapshot.
func (ab *AssetBook) Restore(snaps []AssetSnapshot) error {
	assets := make(map[derive.Address]*AssetInfo, len(snaps))
	for _, s := range snaps {
		addr, err := derive.ParseAddress(s.Address)
		if err != nil {
			return fmt.Errorf("restore asset address: %w", err)
		}
		authority, err := derive.ParseAddress(s.MintAuthority)
		if err != nil {
			return fmt.Errorf("restore mint authority: %w", err)
		}
		assets[addr] = &AssetInfo{
			Address:       addr,
			Bump:          s.Bump,
			Decimals:      s.Decimals,
			Supply:        s.Supply,
			MintAuthority: authority,
			EditionFinal:  s.EditionFinal,
		}
	}
	ab.assets = assets
	return nil
}
