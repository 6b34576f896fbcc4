package rules

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// Shared builders for rule tests. Unless a scenario says otherwise, runs are
// anchored on a 2025-12-31 period end with a balance sheet dated the same day.

const testPeriodEnd = "2025-12-31"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func datePtr(s string) *review.Date {
	d := review.MustDate(s)
	return &d
}

func account(ref, name, balance string) review.AccountBalance {
	return review.AccountBalance{AccountRef: ref, Name: name, Balance: dec(balance)}
}

func typedAccount(ref, name, balance, accountType string) review.AccountBalance {
	acct := account(ref, name, balance)
	acct.Type = accountType
	return acct
}

func balanceSheet(asOf string, accounts ...review.AccountBalance) review.BalanceSheetSnapshot {
	return review.BalanceSheetSnapshot{
		AsOfDate: review.MustDate(asOf),
		Currency: "CAD",
		Accounts: accounts,
	}
}

func reviewContext(accounts ...review.AccountBalance) review.RuleContext {
	return review.RuleContext{
		PeriodEnd:    review.MustDate(testPeriodEnd),
		BalanceSheet: balanceSheet(testPeriodEnd, accounts...),
	}
}

func configFor(ruleID, payload string) review.ClientRulesConfig {
	return review.ClientRulesConfig{
		Rules: map[string]json.RawMessage{ruleID: json.RawMessage(payload)},
	}
}

func evidenceBundle(items ...review.EvidenceItem) review.EvidenceBundle {
	return review.EvidenceBundle{Items: items}
}

func revenueOf(total string) *review.ProfitAndLossSnapshot {
	return &review.ProfitAndLossSnapshot{
		PeriodStart: review.MustDate("2025-12-01"),
		PeriodEnd:   review.MustDate(testPeriodEnd),
		Currency:    "CAD",
		Totals:      map[string]decimal.Decimal{review.TotalRevenue: dec(total)},
	}
}

// amountEvidence is the common "report total as of period end" evidence shape
func amountEvidence(evidenceType, amount, asOf string) review.EvidenceItem {
	return review.EvidenceItem{
		EvidenceType: evidenceType,
		AsOfDate:     datePtr(asOf),
		Amount:       decPtr(amount),
	}
}

// itemsEvidence wraps row-level metadata under meta["items"]
func itemsEvidence(evidenceType, amount, asOf string, items []map[string]any) review.EvidenceItem {
	ev := amountEvidence(evidenceType, amount, asOf)
	ev.Meta = map[string]any{"items": items}
	return ev
}
