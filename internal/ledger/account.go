package ledger

import (
	"fmt"

	"MarketLedger/internal/derive"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	// ScopeUser accounts belong to external key holders (makers, takers, admins).
	ScopeUser AccountScope = iota
	// ScopeDerived accounts are program-owned: vaults, treasuries. Moving
	// value out of them requires a derive.Authority, never a user signature.
	ScopeDerived
	// ScopeSystem accounts are protocol-internal escrows (storage deposits).
	ScopeSystem
	// ScopeExternal accounts are the boundary with the outside world
	// (deposit source, issuance source). They may carry negative balances.
	ScopeExternal
)

func (s AccountScope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeDerived:
		return "derived"
	case ScopeSystem:
		return "system"
	case ScopeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// NativeAsset is the currency ledger's asset id. Token balances use the
// asset's mint address instead.
var NativeAsset = derive.ZeroAddress

// AccountKey is the in-memory key for balance tracking.
type AccountKey struct {
	Scope  AccountScope
	Holder derive.Address
	Asset  derive.Address
}

// NewUserAccount keys a balance held by an external identity.
func NewUserAccount(holder, asset derive.Address) AccountKey {
	return AccountKey{Scope: ScopeUser, Holder: holder, Asset: asset}
}

// NewCurrencyAccount keys a user's native currency balance.
func NewCurrencyAccount(holder derive.Address) AccountKey {
	return AccountKey{Scope: ScopeUser, Holder: holder, Asset: NativeAsset}
}

// NewVaultAccount keys the custodial token balance owned by a listing.
func NewVaultAccount(listing, asset derive.Address) AccountKey {
	return AccountKey{Scope: ScopeDerived, Holder: listing, Asset: asset}
}

// NewTreasuryAccount keys a marketplace's fee-collection currency balance.
func NewTreasuryAccount(treasury derive.Address) AccountKey {
	return AccountKey{Scope: ScopeDerived, Holder: treasury, Asset: NativeAsset}
}

// NewSystemAccount keys a protocol escrow at a derived system address.
func NewSystemAccount(holder derive.Address) AccountKey {
	return AccountKey{Scope: ScopeSystem, Holder: holder, Asset: NativeAsset}
}

// NewExternalAccount keys a boundary account by name. External holders
// live in the reserved address prefix so they can never collide with a
// derived record.
func NewExternalAccount(name string, asset derive.Address) AccountKey {
	var holder derive.Address
	holder[0] = 0xff
	copy(holder[1:], []byte(name))
	return AccountKey{Scope: ScopeExternal, Holder: holder, Asset: asset}
}

// Well-known boundary account names.
const (
	ExternalDeposits = "deposits"
	ExternalIssuance = "issuance"
)

// AccountPath renders the key in the stable text form used by the
// operation log and projection tables.
func (k AccountKey) AccountPath() string {
	asset := "native"
	if k.Asset != NativeAsset {
		asset = k.Asset.String()
	}
	return fmt.Sprintf("%s:%s:%s", k.Scope, k.Holder, asset)
}
