package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in integer cents. Prices never go through floating
// point so discount math cannot drift.
type Money int64

// ParseMoney accepts "120", "120.5" or "120.50" and returns cents.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := w * 100

	switch len(frac) {
	case 0:
	case 1:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		cents += d * 10
	case 2:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		cents += d
	default:
		return 0, fmt.Errorf("invalid amount %q: at most two decimal places", s)
	}
	return Money(cents), nil
}

// String formats the amount with two decimal places ("85.00").
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ApplyPercent returns m scaled by pct/100 with half-up rounding on the
// cent. ApplyPercent(10000, 85) == 8500.
func (m Money) ApplyPercent(pct int64) Money {
	v := int64(m) * pct
	if v >= 0 {
		return Money((v + 50) / 100)
	}
	return Money((v - 50) / 100)
}
