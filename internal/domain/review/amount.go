package review

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/shared"
)

// ParseQuantize parses an amount_quantize increment such as "0.01".
// An empty increment means exact comparison (no rounding).
func ParseQuantize(increment string) (*decimal.Decimal, error) {
	if increment == "" {
		return nil, nil
	}
	inc, err := decimal.NewFromString(increment)
	if err != nil {
		return nil, fmt.Errorf("%w: amount_quantize %q is not a decimal", shared.ErrConfiguration, increment)
	}
	if inc.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount_quantize %q must be positive", shared.ErrConfiguration, increment)
	}
	return &inc, nil
}

// QuantizeAmount rounds v to the increment's decimal places using banker's
// rounding. A nil increment returns v unchanged.
func QuantizeAmount(v decimal.Decimal, increment *decimal.Decimal) decimal.Decimal {
	if increment == nil {
		return v
	}
	return v.RoundBank(-increment.Exponent())
}

// DecimalString renders d preserving its stored scale: a cents amount stays
// "50.00", never "50". Detail values and summaries use this so output scale
// follows the input data.
func DecimalString(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
