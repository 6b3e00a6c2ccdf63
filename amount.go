package nftagg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxDecimals bounds token precision at the human-amount boundary.
const MaxDecimals = 18

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseUnits converts a human-readable decimal amount ("1.5") into base units
// at the given precision. Excess fractional digits are truncated, never rounded
// up, so a parsed amount can never exceed what the caller typed.
func ParseUnits(amount string, decimals int32) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: decimals must be between 0 and %d, got %d", ErrInvalidParams, MaxDecimals, decimals)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a decimal amount", ErrInvalidParams, amount)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative, got %s", ErrInvalidParams, amount)
	}
	units := d.Shift(decimals).Truncate(0).BigInt()
	if units.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: amount overflows uint256", ErrInvalidParams)
	}
	return units, nil
}

// FormatUnits renders base units as a human-readable decimal string.
func FormatUnits(units *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(units, -decimals).String()
}

// Bps computes bps/10000 of value, floored. Used for fee-on-top amounts.
func Bps(value *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(value, big.NewInt(bps))
	return out.Div(out, big.NewInt(10000))
}

// PartialAmount computes floor(total * numerator / denominator). Every
// pro-rata computation in the SDK (partial-fill prices and fees) routes
// through this helper so rounding is floor division applied exactly once.
func PartialAmount(total, numerator, denominator *big.Int) *big.Int {
	if denominator == nil || denominator.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(total, numerator)
	return out.Div(out, denominator)
}

// InterpolateAmount linearly interpolates between start and end over
// [startTime, endTime], evaluated at t and clamped to the window. Division
// floors, matching on-chain dutch-auction math.
func InterpolateAmount(start, end *big.Int, startTime, endTime, t int64) *big.Int {
	if startTime >= endTime || t <= startTime {
		return new(big.Int).Set(start)
	}
	if t >= endTime {
		return new(big.Int).Set(end)
	}
	elapsed := big.NewInt(t - startTime)
	duration := big.NewInt(endTime - startTime)
	delta := new(big.Int).Sub(end, start)
	delta.Mul(delta, elapsed)
	delta.Div(delta, duration)
	return delta.Add(delta, start)
}

// RandomSalt draws a fresh 128-bit salt for order uniqueness.
func RandomSalt() *big.Int {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to read random salt: " + err.Error())
	}
	return new(big.Int).SetBytes(buf)
}
