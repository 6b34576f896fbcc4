package review

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RuleConfigBase carries the knobs every rule supports. Rule config payloads
// embed it and add their own fields.
type RuleConfigBase struct {
	// Enabled short-circuits the rule to NOT_APPLICABLE when false.
	Enabled bool `json:"enabled"`
	// MissingDataPolicy is the status emitted when required input is absent.
	MissingDataPolicy RuleStatus `json:"missing_data_policy" validate:"oneof=NEEDS_REVIEW NOT_APPLICABLE"`
	// AmountQuantize is an optional decimal increment (e.g. "0.01"). When
	// set, amounts are rounded to its places (banker's rounding) before
	// comparison; when empty, comparisons are exact.
	AmountQuantize string `json:"amount_quantize,omitempty"`

	quantize *decimal.Decimal
}

// DefaultRuleConfigBase returns the shared defaults
func DefaultRuleConfigBase() RuleConfigBase {
	return RuleConfigBase{
		Enabled:           true,
		MissingDataPolicy: StatusNeedsReview,
	}
}

func (c *RuleConfigBase) normalize() error {
	q, err := ParseQuantize(c.AmountQuantize)
	if err != nil {
		return err
	}
	c.quantize = q
	return nil
}

// Quantize applies the configured amount_quantize increment to v
func (c RuleConfigBase) Quantize(v decimal.Decimal) decimal.Decimal {
	return QuantizeAmount(v, c.quantize)
}

// VarianceThreshold bounds an acceptable non-zero balance:
// allowed = max(floor_amount, |revenue| * pct_of_revenue).
type VarianceThreshold struct {
	FloorAmount  decimal.Decimal  `json:"floor_amount"`
	PctOfRevenue *decimal.Decimal `json:"pct_of_revenue,omitempty"`
}

// IsConfigured reports whether the threshold carries any usable bound
func (t VarianceThreshold) IsConfigured() bool {
	if t.FloorAmount.Sign() > 0 {
		return true
	}
	return t.PctOfRevenue != nil && t.PctOfRevenue.Sign() > 0
}

// AccountThresholdOverride pins a per-account variance threshold
type AccountThresholdOverride struct {
	AccountRef  string             `json:"account_ref" validate:"required"`
	AccountName string             `json:"account_name,omitempty"`
	Threshold   *VarianceThreshold `json:"threshold,omitempty"`
}

// ClientRulesConfig is the per-client configuration envelope, keyed by rule
// id. Unknown rule ids are ignored; a missing entry means the rule runs on
// its defaults.
type ClientRulesConfig struct {
	Rules map[string]json.RawMessage `json:"rules"`
}

// Decode overlays the raw payload for ruleID onto out (which must already
// hold the rule's defaults), then validates the result. All failures wrap
// shared.ErrConfiguration; the caller converts them into a NEEDS_REVIEW
// result for that rule only.
func (c ClientRulesConfig) Decode(ruleID string, out any) error {
	if raw, ok := c.Rules[ruleID]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: rule %s: %v", shared.ErrConfiguration, ruleID, err)
		}
	}
	if n, ok := out.(interface{ normalize() error }); ok {
		if err := n.normalize(); err != nil {
			return fmt.Errorf("%w: rule %s: %v", shared.ErrConfiguration, ruleID, err)
		}
	}
	if err := validate.Struct(out); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return fmt.Errorf("%w: rule %s: %v", shared.ErrInternal, ruleID, err)
		}
		return fmt.Errorf("%w: rule %s: %v", shared.ErrConfiguration, ruleID, err)
	}
	return nil
}
