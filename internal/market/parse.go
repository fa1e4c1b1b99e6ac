package market

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// priceCleaner strips currency markers and thousands separators from display
// strings such as "₹2,450" or "Rs. 6,750".
var priceCleaner = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", ",", "", " ", "", " ", "")

// leadingNumber matches the signed numeric prefix of a change string such as
// "+25" or "-0.47%".
var leadingNumber = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?`)

// ParsePrice converts a display-formatted price string to a decimal. Strings
// that do not contain a finite number yield Valid=false; they are never
// coerced to zero.
func ParsePrice(s string) decimal.NullDecimal {
	cleaned := strings.TrimSpace(priceCleaner.Replace(s))
	if cleaned == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ParseChange extracts the leading signed numeric value of a change string.
// The raw string is retained on the observation for display; this parse is
// only used where the delta participates in arithmetic.
func ParseChange(s string) decimal.NullDecimal {
	cleaned := strings.TrimSpace(priceCleaner.Replace(s))
	match := leadingNumber.FindString(cleaned)
	if match == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
