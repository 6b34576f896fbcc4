package review

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Evidence and reconciliation meta payloads are free-form JSON; the helpers
// below coerce the handful of value shapes adapters are allowed to emit
// (strings, JSON numbers, pre-parsed values). Anything unrecognized coerces
// to the zero of the target, which callers treat as "absent".

// MetaDecimal coerces a meta value into a decimal amount
func MetaDecimal(v any) *decimal.Decimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return &x
	case *decimal.Decimal:
		return x
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return &d
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return nil
		}
		return &d
	case float64:
		d := decimal.NewFromFloat(x)
		return &d
	case int:
		d := decimal.NewFromInt(int64(x))
		return &d
	case int64:
		d := decimal.NewFromInt(x)
		return &d
	}
	return nil
}

// MetaDate coerces a meta value into a calendar date (ISO or DD/MM/YYYY)
func MetaDate(v any) *Date {
	switch x := v.(type) {
	case Date:
		if x.IsZero() {
			return nil
		}
		return &x
	case *Date:
		return x
	case time.Time:
		d := DateOf(x)
		return &d
	case string:
		if x == "" {
			return nil
		}
		d, err := ParseFlexibleDate(x)
		if err != nil {
			return nil
		}
		return &d
	}
	return nil
}

// MetaString coerces a meta value into a string ("" when absent)
func MetaString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	}
	return ""
}

// MetaBool coerces a meta value into a bool (false when absent)
func MetaBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(x)
		return err == nil && b
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	}
	return false
}

func objectList(v any) []map[string]any {
	switch raw := v.(type) {
	case []map[string]any:
		return raw
	case []any:
		out := make([]map[string]any, 0, len(raw))
		for _, it := range raw {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
