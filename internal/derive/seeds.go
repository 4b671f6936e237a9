package derive

// Seed prefixes for the protocol's derived records. The tuples mirror the
// record hierarchy: a marketplace is named, its treasury hangs off the
// marketplace address, a listing hangs off (marketplace, asset), and an
// asset mint hangs off a caller-supplied unique tag.
const (
	SeedMarketplace = "marketplace"
	SeedTreasury    = "treasury"
	SeedMint        = "mint"
	SeedSystem      = "system"
)

// Marketplace derives the record address for a marketplace name.
func Marketplace(name string) (Address, uint8, error) {
	return Derive([]byte(SeedMarketplace), []byte(name))
}

// Treasury derives the fee-collection address for a marketplace.
func Treasury(marketplace Address) (Address, uint8, error) {
	return Derive([]byte(SeedTreasury), marketplace.Bytes())
}

// Listing derives the listing address for an asset on a marketplace.
// The absence of a string prefix is deliberate: the pair of parent
// addresses is already unique.
func Listing(marketplace, asset Address) (Address, uint8, error) {
	return Derive(marketplace.Bytes(), asset.Bytes())
}

// Mint derives an asset identity from a caller-supplied unique tag.
func Mint(uriSeed string) (Address, uint8, error) {
	return Derive([]byte(SeedMint), []byte(uriSeed))
}

// System derives a well-known protocol account, e.g. the storage-deposit
// escrow. These exist so internal balances live at addresses nobody holds
// a key for, same as vaults.
func System(name string) (Address, uint8, error) {
	return Derive([]byte(SeedSystem), []byte(name))
}

// ListingAuthority builds the capability that authorizes transfers out of
// a listing's vault.
func ListingAuthority(marketplace, asset Address, bump uint8) Authority {
	return NewAuthority(bump, marketplace.Bytes(), asset.Bytes())
}

// TreasuryAuthority builds the capability for the marketplace treasury.
func TreasuryAuthority(marketplace Address, bump uint8) Authority {
	return NewAuthority(bump, []byte(SeedTreasury), marketplace.Bytes())
}
