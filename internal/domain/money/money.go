// Package money holds the fixed-point arithmetic used for every monetary value in the ledger.
// Amounts carry exactly two fractional digits; VAT is rounded half-to-even.
package money

import (
	"math"

	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for monetary amounts
const Scale int32 = 2

var (
	// ErrInvalidAmount is returned for negative or non-finite amounts
	ErrInvalidAmount = ierr.NewError("invalid amount").Mark(ierr.ErrValidation)
	// ErrInvalidRate is returned for negative or non-finite VAT percentages
	ErrInvalidRate = ierr.NewError("invalid vat percentage").Mark(ierr.ErrValidation)

	hundred = decimal.NewFromInt(100)
)

// ComputeTotals derives the VAT and the gross total for a net amount.
// vatAmount = round_half_even(amount * rate / 100, 2) and totalAmount = amount + vatAmount.
// amount must already be a monetary value with at most two fractional digits.
func ComputeTotals(amount, vatPercentage decimal.Decimal) (vatAmount, totalAmount decimal.Decimal, err error) {
	if amount.IsNegative() {
		return decimal.Zero, decimal.Zero, ierr.WithError(ErrInvalidAmount).
			WithHint("Amount must not be negative").
			WithReportableDetails(map[string]any{
				"amount": amount.String(),
			}).
			Mark(ErrInvalidAmount, ierr.ErrValidation)
	}
	if vatPercentage.IsNegative() {
		return decimal.Zero, decimal.Zero, ierr.WithError(ErrInvalidRate).
			WithHint("VAT percentage must not be negative").
			WithReportableDetails(map[string]any{
				"vat_percentage": vatPercentage.String(),
			}).
			Mark(ErrInvalidRate, ierr.ErrValidation)
	}

	net, err := Normalize(amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	vatAmount = net.Mul(vatPercentage).Div(hundred).RoundBank(Scale)
	totalAmount = net.Add(vatAmount)
	return vatAmount, totalAmount, nil
}

// FromFloat converts an amount received as a float. NaN and infinities are rejected.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ierr.WithError(ErrInvalidAmount).
			WithHint("Amount must be a finite number").
			Mark(ErrInvalidAmount, ierr.ErrValidation)
	}
	return decimal.NewFromFloat(f), nil
}

// RateFromFloat converts a VAT percentage received as a float. NaN and infinities are rejected.
func RateFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ierr.WithError(ErrInvalidRate).
			WithHint("VAT percentage must be a finite number").
			Mark(ErrInvalidRate, ierr.ErrValidation)
	}
	return decimal.NewFromFloat(f), nil
}

// Normalize checks that d has at most two fractional digits and returns it at scale 2
func Normalize(d decimal.Decimal) (decimal.Decimal, error) {
	if !d.Equal(d.Truncate(Scale)) {
		return decimal.Zero, ierr.WithError(ErrInvalidAmount).
			WithHint("Amounts can have at most two decimal places").
			WithReportableDetails(map[string]any{
				"amount": d.String(),
			}).
			Mark(ErrInvalidAmount, ierr.ErrValidation)
	}
	return Round(d), nil
}

// Round rounds half-to-even at two fractional digits
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Scale)
}

// Format renders d with exactly two fractional digits, e.g. "1050.00"
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(Scale)
}

// Compare compares a and b at monetary precision
func Compare(a, b decimal.Decimal) int {
	return Round(a).Cmp(Round(b))
}

// Equal reports whether a and b are the same monetary value
func Equal(a, b decimal.Decimal) bool {
	return Compare(a, b) == 0
}

// Sum adds up the given amounts
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round(total)
}
