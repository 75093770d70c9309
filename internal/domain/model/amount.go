package model

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Amount is a token amount in micro-units (6 decimals), matching the token's
// minimum unit. Stored and compared at full precision; rendered with 2
// decimals for display only.
type Amount int64

const (
	// MicrosPerUnit is the scale factor between whole tokens and micro-units.
	MicrosPerUnit = 1_000_000
)

// ParseAmount parses a decimal string like "0.11" into micro-units.
// More than 6 fractional digits is rejected rather than silently truncated.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 6 {
		return 0, fmt.Errorf("amount %q exceeds 6 decimal places", s)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac+strings.Repeat("0", 6-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}
	if w > (math.MaxInt64-f)/MicrosPerUnit {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return Amount(w*MicrosPerUnit + f), nil
}

// String renders the amount with exactly 2 decimal places for display.
// Precision beyond 2 decimals is kept internally, see StringFull.
func (a Amount) String() string {
	v := int64(a)
	return fmt.Sprintf("%d.%02d", v/MicrosPerUnit, (v%MicrosPerUnit)/10_000)
}

// StringFull renders all 6 decimal places.
func (a Amount) StringFull() string {
	v := int64(a)
	return fmt.Sprintf("%d.%06d", v/MicrosPerUnit, v%MicrosPerUnit)
}

// BigInt converts to the on-chain integer representation.
func (a Amount) BigInt() *big.Int {
	return big.NewInt(int64(a))
}

// AmountFromBigInt converts an on-chain integer back to an Amount.
// Values outside int64 range are rejected.
func AmountFromBigInt(v *big.Int) (Amount, error) {
	if v == nil {
		return 0, fmt.Errorf("nil big.Int")
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("amount %s out of range", v.String())
	}
	return Amount(v.Int64()), nil
}

// MulCount multiplies a per-action price by an action count.
func (a Amount) MulCount(n int) (Amount, error) {
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	if n > 0 && int64(a) > math.MaxInt64/int64(n) {
		return 0, fmt.Errorf("amount overflow: %d x %d", a, n)
	}
	return a * Amount(n), nil
}

// FeeBps computes a basis-point fee, rounded half-up to the minimum unit so
// at most half a micro-unit is lost to rounding.
func (a Amount) FeeBps(bps int64) Amount {
	return Amount((int64(a)*bps + 5_000) / 10_000)
}

// Abs returns the absolute difference between two amounts.
func AbsDiff(a, b Amount) Amount {
	if a > b {
		return a - b
	}
	return b - a
}
