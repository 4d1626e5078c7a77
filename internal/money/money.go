package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is a closed set of currency codes the application understands.
// Gigs may be priced in any of them; the settlement conversion boundary
// only accepts EUR and RSD.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
	RSD Currency = "RSD"
)

// ErrUnsupportedCurrency is returned when a currency code falls outside the
// supported set, or when a settlement is attempted in a currency the ledger
// cannot convert.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

var (
	// Epsilon is the sub-cent residue below which a remaining payment pool
	// is treated as exhausted.
	Epsilon = decimal.NewFromFloat(0.009)

	// PaidTolerance is the balance threshold under which a gig counts as
	// fully paid. Sub-cent residue from currency conversion is not a debt.
	PaidTolerance = decimal.NewFromFloat(0.01)

	rsdDetectionThreshold = decimal.NewFromInt(500)
)

// ParseCurrency validates a currency code against the supported set.
func ParseCurrency(code string) (Currency, error) {
	switch Currency(code) {
	case EUR, USD, GBP, RSD:
		return Currency(code), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
}

// ConvertToEUR converts an amount into EUR using the supplied EUR→RSD rate.
// EUR passes through unchanged. Only EUR and RSD are convertible; any other
// code is a validation failure at this boundary.
func ConvertToEUR(amount decimal.Decimal, cur Currency, eurToRsd decimal.Decimal) (decimal.Decimal, error) {
	switch cur {
	case EUR:
		return amount, nil
	case RSD:
		if eurToRsd.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("exchange rate must be positive, got %s", eurToRsd)
		}
		return Round(amount.Div(eurToRsd)), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: cannot settle in %q", ErrUnsupportedCurrency, cur)
	}
}

// FromEUR converts an EUR amount back into the given currency, for recording
// the original-currency amount on a payment row. The inverse of ConvertToEUR,
// with the same two-currency restriction.
func FromEUR(amountEUR decimal.Decimal, cur Currency, eurToRsd decimal.Decimal) (decimal.Decimal, error) {
	switch cur {
	case EUR:
		return amountEUR, nil
	case RSD:
		return Round(amountEUR.Mul(eurToRsd)), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: cannot settle in %q", ErrUnsupportedCurrency, cur)
	}
}

// Round rounds to 2 decimal places, half away from zero. All amounts are
// non-negative here, so this is round-half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DetectCurrency guesses the currency of a raw payment amount. Amounts over
// 500 are assumed to be RSD, everything else EUR. A UI convenience carried
// over from the original payment form, not a validation rule.
func DetectCurrency(amount decimal.Decimal) Currency {
	if amount.GreaterThan(rsdDetectionThreshold) {
		return RSD
	}
	return EUR
}

// IsSettled reports whether an outstanding balance is within the fully-paid
// tolerance.
func IsSettled(balance decimal.Decimal) bool {
	return balance.LessThanOrEqual(PaidTolerance)
}
