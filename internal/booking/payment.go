package booking

import (
	"strings"
	"time"
)

// CardDetails is the card-like credential collected for web payments.
// Only the format is checked; no gateway is involved.
type CardDetails struct {
	Number string // digits, spaces allowed
	Expiry string // MM/YY
	CVV    string
}

// Validate checks number length + Luhn, MM/YY expiry not in the past, and
// a 3-digit CVV.
func (c CardDetails) Validate(now time.Time) error {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, c.Number)
	if len(digits) < 13 || len(digits) > 19 {
		return invalid("card_number", "must be 13-19 digits")
	}
	if !luhnValid(digits) {
		return invalid("card_number", "failed checksum")
	}

	exp, err := time.Parse("01/06", c.Expiry)
	if err != nil {
		return invalid("card_expiry", "must be MM/YY")
	}
	// Valid through the last day of the expiry month.
	endOfMonth := exp.AddDate(0, 1, 0)
	if !now.Before(endOfMonth) {
		return invalid("card_expiry", "card expired")
	}

	if len(c.CVV) != 3 {
		return invalid("card_cvv", "must be 3 digits")
	}
	for _, r := range c.CVV {
		if r < '0' || r > '9' {
			return invalid("card_cvv", "must be 3 digits")
		}
	}
	return nil
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		r := digits[i]
		if r < '0' || r > '9' {
			return false
		}
		d := int(r - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// MaskCardNumber keeps the last four digits for confirmation summaries.
func MaskCardNumber(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, number)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
