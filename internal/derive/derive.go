package derive

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// DomainTag namespaces all derived identities.
const DomainTag = "MarketLedger:derive:v1"

// MaxSeedLen is the longest single seed accepted by Derive. Marketplace
// names are used directly as a seed, so name validation upstream depends
// on this limit.
const MaxSeedLen = 32

// reservedPrefix marks the identity range set aside for externally held
// keys. A derived candidate landing in it is skipped during bump search,
// so a derived address can never alias a reserved identity.
const reservedPrefix = 0xff

var (
	ErrSeedTooLong = errors.New("derive: seed exceeds 32 bytes")
	ErrNoValidBump = errors.New("derive: no valid bump for seed tuple")
)

// Address is a 32-byte derived or external identity.
type Address [32]byte

// ZeroAddress is the unset identity. The ledger uses it as the native
// currency sentinel.
var ZeroAddress Address

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText renders the hex form, so addresses serialize as JSON
// strings in payloads and snapshots.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the hex form.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes the hex text form produced by String.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	if len(raw) != len(a) {
		return a, fmt.Errorf("parse address: want %d bytes, got %d", len(a), len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// Derive computes the unique address for a seed tuple together with its
// bump. The search starts at bump 255 and walks down; the first candidate
// outside the reserved external-identity prefix wins. Identical seeds
// always produce the identical (address, bump) pair, which is what turns
// "one active record per seed tuple" into an addressing-level invariant.
func Derive(seeds ...[]byte) (Address, uint8, error) {
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return ZeroAddress, 0, ErrSeedTooLong
		}
	}

	for i := 0; i < 256; i++ {
		bump := uint8(255 - i)
		addr := deriveCandidate(bump, seeds)
		if addr[0] == reservedPrefix {
			continue
		}
		return addr, bump, nil
	}

	return ZeroAddress, 0, ErrNoValidBump
}

// DeriveWithBump recomputes the address for a known bump. Callers use it
// to verify a stored bump still authorizes the address it claims to.
func DeriveWithBump(bump uint8, seeds ...[]byte) (Address, error) {
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return ZeroAddress, ErrSeedTooLong
		}
	}
	addr := deriveCandidate(bump, seeds)
	if addr[0] == reservedPrefix {
		return ZeroAddress, ErrNoValidBump
	}
	return addr, nil
}

func deriveCandidate(bump uint8, seeds [][]byte) Address {
	h := sha256.New()
	h.Write([]byte(DomainTag))

	var lenBuf [4]byte
	for _, s := range seeds {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		h.Write(lenBuf[:])
		h.Write(s)
	}
	h.Write([]byte{bump})

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

// Authority is the capability a holder of the full seed tuple presents to
// operate on a derived address. It never leaves the process: handlers
// construct it from protocol state, the ledger verifies it, nothing
// serializes it.
type Authority struct {
	Seeds [][]byte
	Bump  uint8
}

// NewAuthority copies the seeds so later mutation of the inputs cannot
// change what the authority proves.
func NewAuthority(bump uint8, seeds ...[]byte) Authority {
	cp := make([][]byte, len(seeds))
	for i, s := range seeds {
		cp[i] = bytes.Clone(s)
	}
	return Authority{Seeds: cp, Bump: bump}
}

// Authorizes reports whether the authority re-derives to addr.
func (au Authority) Authorizes(addr Address) bool {
	derived, err := DeriveWithBump(au.Bump, au.Seeds...)
	if err != nil {
		return false
	}
	return derived == addr
}
