package review

import (
	"github.com/shopspring/decimal"
)

// RuleContext is the immutable input envelope for one review run. Rules
// read from it and never write.
type RuleContext struct {
	PeriodEnd         Date
	BalanceSheet      BalanceSheetSnapshot
	PriorBalanceSheet *BalanceSheetSnapshot
	ProfitAndLoss     *ProfitAndLossSnapshot
	Evidence          EvidenceBundle
	Reconciliations   []ReconciliationSnapshot
	ClientConfig      ClientRulesConfig
}

// AccountBalance returns the balance-sheet balance for an account_ref,
// or nil when the snapshot has no such row.
func (c RuleContext) AccountBalance(ref string) *decimal.Decimal {
	if acct := c.BalanceSheet.Account(ref); acct != nil {
		return &acct.Balance
	}
	return nil
}

// RevenueTotal returns the P&L revenue total, or nil when no P&L snapshot
// (or no revenue line) is available.
func (c RuleContext) RevenueTotal() *decimal.Decimal {
	if c.ProfitAndLoss == nil {
		return nil
	}
	return c.ProfitAndLoss.Total(TotalRevenue)
}

// AllowedVariance resolves a variance threshold against this context:
// max(floor_amount, |revenue| * pct_of_revenue). The revenue component is
// zero when the P&L or the percentage is absent.
func (c RuleContext) AllowedVariance(t VarianceThreshold) decimal.Decimal {
	allowed := t.FloorAmount
	if t.PctOfRevenue != nil {
		if rev := c.RevenueTotal(); rev != nil {
			allowed = decimal.Max(allowed, rev.Abs().Mul(*t.PctOfRevenue))
		}
	}
	return allowed
}
