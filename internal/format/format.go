package format

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money formats an amount in dollars with two fractional digits.
// Example: Money(decimal.RequireFromString("1234.5")) => "$1,234.50"
func Money(amount decimal.Decimal) string {
	s := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	out := "$" + thousandSep(whole) + "." + frac
	if amount.IsNegative() && !amount.Round(2).IsZero() {
		return "-" + out
	}
	return out
}

// Price formats an amount followed by its currency label, e.g. "$15.00 CAD".
// An empty label yields the bare amount.
func Price(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return Money(amount)
	}
	return Money(amount) + " " + currency
}

// Count renders a label followed by a parenthesised number: "Cart (3)".
func Count(label string, n int) string {
	return label + " (" + strconv.Itoa(n) + ")"
}

func thousandSep(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	for i, c := range digits {
		if i != 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
