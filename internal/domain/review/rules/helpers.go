package rules

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// defaultCurrentAssetTypes lists the balance-sheet types treated as
// sales-side current assets when classifying clearing accounts.
func defaultCurrentAssetTypes() []string {
	return []string{
		"Bank",
		"Accounts Receivable",
		"Other Current Asset",
		"Cash and Cash Equivalents",
	}
}

func isCurrentAssetType(accountType string, currentAssetTypes []string) bool {
	if accountType == "" {
		return false
	}
	lowered := strings.ToLower(accountType)
	for _, t := range currentAssetTypes {
		if lowered == strings.ToLower(t) {
			return true
		}
	}
	return false
}

// nameContains reports whether name contains needle, case-insensitively
func nameContains(name, needle string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(needle))
}

func nameMatchesAny(name string, patterns []string) bool {
	lowered := strings.ToLower(name)
	for _, p := range patterns {
		if p != "" && strings.Contains(lowered, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// containsToken reports whether name contains token bounded by non-word
// characters on both sides. "A/P" matches "A/P Trade" but not "CA/Pacific".
func containsToken(name, token string) bool {
	lowered := strings.ToLower(name)
	tok := strings.ToLower(token)
	if tok == "" {
		return false
	}
	for start := 0; start <= len(lowered)-len(tok); {
		idx := strings.Index(lowered[start:], tok)
		if idx < 0 {
			return false
		}
		idx += start
		beforeOK := idx == 0 || !isWordByte(lowered[idx-1])
		end := idx + len(tok)
		afterOK := end == len(lowered) || !isWordByte(lowered[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}

// stringOrNil renders an optional decimal for detail values (JSON null when
// absent, exact scale-preserving string otherwise).
func stringOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return review.DecimalString(*d)
}

func pctString(d *decimal.Decimal) string {
	if d == nil {
		return "0"
	}
	return review.DecimalString(*d)
}

// evidenceAsOfMatches reports whether the evidence is dated exactly at
// period end.
func evidenceAsOfMatches(item *review.EvidenceItem, periodEnd review.Date) bool {
	return item != nil && item.AsOfDate != nil && item.AsOfDate.Equal(periodEnd)
}

// exemplarDetail returns the first detail whose per-account status equals
// the overall status; summaries quote it.
func exemplarDetail(details []review.ResultDetail, status review.RuleStatus) *review.ResultDetail {
	for i := range details {
		if details[i].Values != nil && details[i].Values["status"] == status.String() {
			return &details[i]
		}
	}
	return nil
}

// statusOrNil renders an optional per-check status for detail values
func statusOrNil(s *review.RuleStatus) any {
	if s == nil {
		return nil
	}
	return s.String()
}

func dateOrNil(d *review.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// latestReconciliation picks the snapshot with the greatest statement end
// date; undated snapshots lose to dated ones.
func latestReconciliation(candidates []review.ReconciliationSnapshot) review.ReconciliationSnapshot {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.StatementEndDate == nil {
			continue
		}
		if best.StatementEndDate == nil || c.StatementEndDate.After(*best.StatementEndDate) {
			best = c
		}
	}
	return best
}

// capStrings truncates long ref lists before they land in detail values
func capStrings(s []string, max int) []string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func balanceSheetNames(bs review.BalanceSheetSnapshot) map[string]string {
	names := make(map[string]string, len(bs.Accounts))
	for _, acct := range bs.Accounts {
		names[acct.AccountRef] = acct.Name
	}
	return names
}
