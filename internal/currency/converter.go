// Package currency is the single authority for USD→RUB price math.
// Every component that needs a ruble price goes through it; the
// conversion formula exists nowhere else in the codebase.
package currency

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/entity"
)

var usdAmountRe = regexp.MustCompile(`^\$(\d+(?:\.\d+)?)`)

var oneHundred = decimal.New(100, 0)

// Converter converts advertised USD prices to RUB with a fixed commission
// markup. Rate and commission come from configuration, never from user input.
type Converter struct {
	rate       decimal.Decimal // base USD→RUB exchange rate
	commission decimal.Decimal // commission markup, percent
}

func NewConverter(rate, commissionPercent decimal.Decimal) (*Converter, error) {
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: exchange rate must be positive, got %s", entity.ErrInvalidArgument, rate)
	}

	if commissionPercent.IsNegative() {
		return nil, fmt.Errorf("%w: commission must not be negative, got %s", entity.ErrInvalidArgument, commissionPercent)
	}

	return &Converter{
		rate:       rate,
		commission: commissionPercent,
	}, nil
}

// UsdToRub applies the base rate and the commission markup and rounds to
// the nearest whole ruble. Deterministic, no side effects.
func (c *Converter) UsdToRub(usd decimal.Decimal) decimal.Decimal {
	markup := oneHundred.Add(c.commission).Div(oneHundred)
	return usd.Mul(c.rate).Mul(markup).Round(0)
}

// ExtractUsdAmount parses a leading "$<number>" out of a free-form price
// label ("$49/mo" → 49). The second return is false for labels without a
// dollar amount ("Free", "Custom"); callers must treat such tiers as not
// purchasable at a numeric price.
func ExtractUsdAmount(priceLabel string) (decimal.Decimal, bool) {
	m := usdAmountRe.FindStringSubmatch(priceLabel)
	if m == nil {
		return decimal.Decimal{}, false
	}

	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Decimal{}, false
	}

	return amount, true
}
