package feemath

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10_000

// MaxFeeBps is the largest representable fee (100%).
const MaxFeeBps = uint16(BpsDenominator)

var (
	ErrFeeOutOfRange = errors.New("feemath: fee_bps exceeds 10000")
	ErrNegativePrice = errors.New("feemath: price must be positive")
)

// Intermediate products of price * fee_bps can exceed int64, so the split
// runs through big.Int. The pool keeps the hot path allocation-free.
var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0)
	intPool.Put(v)
}

// Split divides a sale price between the maker and the marketplace
// treasury. The fee is floor(price * feeBps / 10000): rounding loss is
// absorbed by the treasury, never by maker or taker, and
// fee + toMaker == price holds exactly. Any value that cannot be
// represented aborts with an error; nothing saturates silently.
func Split(price int64, feeBps uint16) (fee, toMaker int64, err error) {
	if price <= 0 {
		return 0, 0, ErrNegativePrice
	}
	if feeBps > MaxFeeBps {
		return 0, 0, ErrFeeOutOfRange
	}

	num := getInt()
	num.Mul(big.NewInt(price), big.NewInt(int64(feeBps)))
	num.Quo(num, big.NewInt(BpsDenominator)) // floor for non-negative operands

	if !num.IsInt64() {
		putInt(num)
		return 0, 0, fmt.Errorf("feemath: fee overflows int64 for price=%d fee_bps=%d", price, feeBps)
	}
	fee = num.Int64()
	putInt(num)

	toMaker, err = CheckedSub(price, fee)
	if err != nil {
		return 0, 0, err
	}
	return fee, toMaker, nil
}

// CheckedSub returns a - b, failing on int64 wraparound.
func CheckedSub(a, b int64) (int64, error) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, fmt.Errorf("feemath: subtraction overflow: %d - %d", a, b)
	}
	return diff, nil
}

// CheckedAdd returns a + b, failing on int64 wraparound.
func CheckedAdd(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("feemath: addition overflow: %d + %d", a, b)
	}
	return sum, nil
}
