package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/closebooks/backend/internal/domain/review"
)

// BankReconciledConfig scopes the reconciliation check and toggles the
// optional tie-outs. When expected_accounts is set it is the explicit
// scope list, compared against the balance-sheet bank/cc count; otherwise
// scope is inferred from account type/subtype and refined by
// include_accounts/exclude_accounts.
type BankReconciledConfig struct {
	review.RuleConfigBase
	ExpectedAccounts []string `json:"expected_accounts"`
	IncludeAccounts  []string `json:"include_accounts"`
	ExcludeAccounts  []string `json:"exclude_accounts"`

	RequireStatementEndDateGTEPeriodEnd        bool   `json:"require_statement_end_date_gte_period_end"`
	RequireStatementBalanceMatchesBalanceSheet bool   `json:"require_statement_balance_matches_balance_sheet"`
	StatementBalanceAttachmentEvidenceType     string `json:"statement_balance_attachment_evidence_type"`
}

func defaultBankReconciledConfig() *BankReconciledConfig {
	return &BankReconciledConfig{
		RuleConfigBase:                         review.DefaultRuleConfigBase(),
		RequireStatementEndDateGTEPeriodEnd:    true,
		StatementBalanceAttachmentEvidenceType: "statement_balance_attachment",
	}
}

// BankReconciled verifies every bank/credit-card account is reconciled
// through the review period end and that register, statement, attachment
// and balance-sheet figures all tie out.
type BankReconciled struct {
	review.BaseRule
}

func NewBankReconciled() *BankReconciled {
	return &BankReconciled{
		BaseRule: review.NewBaseRule(
			"BS-BANK-RECONCILED-THROUGH-PERIOD-END",
			"Bank/credit card accounts reconciled through statement date",
			"Bank reconciliations → Banks and Credit cards",
			[]string{"QBO (reports/exports)", "Bank statements (evidence)"},
		),
	}
}

func (r *BankReconciled) ConfigPrototype() any { return defaultBankReconciledConfig() }

func (r *BankReconciled) Evaluate(ctx review.RuleContext) review.RuleResult {
	cfg := defaultBankReconciledConfig()
	if err := ctx.ClientConfig.Decode(r.ID(), cfg); err != nil {
		return r.InvalidConfig(err)
	}
	if !cfg.Enabled {
		return r.Disabled()
	}
	missingStatus := cfg.MissingDataPolicy

	inferredRefs, inferDetail := inferBankScope(ctx)
	if inferredRefs == nil && len(cfg.ExpectedAccounts) == 0 {
		res := r.Result(review.StatusNeedsReview, fmt.Sprintf(
			"Cannot determine bank/credit card reconciliation scope for %s; account type/subtype data is missing.",
			ctx.PeriodEnd))
		if inferDetail != nil {
			res.Details = []review.ResultDetail{*inferDetail}
		}
		res.HumanAction = "Ensure the adapter provides Balance Sheet account type/subtype to infer bank/cc scope."
		return res
	}

	requiredRefs := bankScope(cfg, inferredRefs)
	if len(requiredRefs) == 0 {
		return r.Result(review.StatusNotApplicable,
			fmt.Sprintf("No bank/credit card accounts in-scope as of %s.", ctx.PeriodEnd))
	}

	names := balanceSheetNames(ctx.BalanceSheet)

	var (
		statuses []review.RuleStatus
		details  []review.ResultDetail
		evidence []review.EvidenceItem
	)
	if inferDetail != nil {
		statuses = append(statuses, review.StatusNeedsReview)
		details = append(details, *inferDetail)
	}

	if scopeStatus, scopeDetail := checkMaintenanceCount(ctx, cfg, inferredRefs); scopeDetail != nil {
		statuses = append(statuses, scopeStatus)
		details = append(details, *scopeDetail)
	}

	for _, ref := range requiredRefs {
		var candidates []review.ReconciliationSnapshot
		for _, rec := range ctx.Reconciliations {
			if rec.AccountRef == ref {
				candidates = append(candidates, rec)
			}
		}
		if len(candidates) == 0 {
			statuses = append(statuses, missingStatus)
			details = append(details, review.ResultDetail{
				Key:     ref,
				Message: "Missing reconciliation snapshot for this account.",
				Values: map[string]any{
					"account_name":              names[ref],
					"period_end":                ctx.PeriodEnd.String(),
					"status":                    missingStatus.String(),
					"expected_from_maintenance": len(cfg.ExpectedAccounts) > 0,
				},
			})
			continue
		}

		latest := latestReconciliation(candidates)
		status, detail, item := evaluateBankTieOut(ctx, latest, cfg, ctx.AccountBalance(ref), names[ref])
		statuses = append(statuses, status)
		details = append(details, detail)
		if item != nil {
			evidence = append(evidence, *item)
		}
	}

	overall := review.WorstStatus(statuses...)

	var summary string
	switch overall {
	case review.StatusPass:
		summary = fmt.Sprintf("All %d account(s) are reconciled through %s and tie out exactly.",
			len(requiredRefs), ctx.PeriodEnd)
	case review.StatusFail:
		ex := exemplarDetail(details, overall)
		if ex != nil && ex.Key == "scope_count" {
			summary = fmt.Sprintf(
				"Maintenance bank/cc account count does not match Balance Sheet bank/cc count as of %s.",
				ctx.PeriodEnd)
		} else {
			name := ""
			if ex != nil {
				name, _ = ex.Values["account_name"].(string)
			}
			summary = fmt.Sprintf("Account '%s' is not reconciled through period end or fails tie-out as of %s.",
				name, ctx.PeriodEnd)
		}
	case review.StatusNeedsReview:
		summary = fmt.Sprintf("Missing data prevented evaluation for one or more accounts as of %s.", ctx.PeriodEnd)
	default:
		summary = "Not applicable."
	}

	res := r.Result(overall, summary)
	res.Details = details
	res.EvidenceUsed = evidence
	if overall != review.StatusPass && overall != review.StatusNotApplicable {
		res.HumanAction = "Verify reconciliation status through MER period end, confirm statement ending balances " +
			"against bank statements, and tie out register/book balances to the Balance Sheet; explain or correct " +
			"any variances."
	}
	return res
}

// evaluateBankTieOut runs the per-account checks against the latest
// reconciliation snapshot. All checks combine worst-wins: coverage,
// register-vs-statement, statement-vs-attachment, register-vs-balance-sheet
// and (optionally) statement-vs-balance-sheet.
func evaluateBankTieOut(
	ctx review.RuleContext,
	rec review.ReconciliationSnapshot,
	cfg *BankReconciledConfig,
	bsBalance *decimal.Decimal,
	nameFallback string,
) (review.RuleStatus, review.ResultDetail, *review.EvidenceItem) {
	accountName := rec.AccountName
	if accountName == "" {
		accountName = nameFallback
	}
	missingStatus := cfg.MissingDataPolicy

	if rec.StatementEndDate == nil {
		return missingStatus, review.ResultDetail{
			Key:     rec.AccountRef,
			Message: "Missing statement end date; cannot verify reconciliation through period end.",
			Values: map[string]any{
				"account_name": accountName,
				"period_end":   ctx.PeriodEnd.String(),
				"status":       missingStatus.String(),
			},
		}, nil
	}
	stmtEndDate := *rec.StatementEndDate

	var (
		statuses []review.RuleStatus

		coverageStatus *review.RuleStatus

		stmtBalQ   *decimal.Decimal
		bookStmtQ  *decimal.Decimal
		stmtTieDif *decimal.Decimal
		stmtTie    review.RuleStatus

		bsBalQ       *decimal.Decimal
		bookPeQ      *decimal.Decimal
		peTieDif     *decimal.Decimal
		peTie        review.RuleStatus
		stmtVsBSDif  *decimal.Decimal
		stmtVsBS     *review.RuleStatus
		attachDate   *review.Date
		attachAmount *decimal.Decimal
		attachURI    any
		attachDif    *decimal.Decimal
		attachStatus review.RuleStatus
	)

	if cfg.RequireStatementEndDateGTEPeriodEnd {
		cov := review.StatusPass
		if stmtEndDate.Before(ctx.PeriodEnd) {
			cov = review.StatusFail
		}
		coverageStatus = &cov
		statuses = append(statuses, cov)
	}

	if rec.StatementEndingBalance == nil || rec.BookBalanceAsOfStatementEnd == nil {
		stmtTie = missingStatus
	} else {
		sb := cfg.Quantize(*rec.StatementEndingBalance)
		bb := cfg.Quantize(*rec.BookBalanceAsOfStatementEnd)
		dif := bb.Sub(sb).Abs()
		stmtBalQ, bookStmtQ, stmtTieDif = &sb, &bb, &dif
		stmtTie = review.StatusPass
		if !dif.IsZero() {
			stmtTie = review.StatusFail
		}
	}
	statuses = append(statuses, stmtTie)

	if bsBalance != nil {
		q := cfg.Quantize(*bsBalance)
		bsBalQ = &q
	}
	if bsBalQ == nil || rec.BookBalanceAsOfPeriodEnd == nil {
		peTie = missingStatus
	} else {
		bp := cfg.Quantize(*rec.BookBalanceAsOfPeriodEnd)
		dif := bp.Sub(*bsBalQ).Abs()
		bookPeQ, peTieDif = &bp, &dif
		peTie = review.StatusPass
		if !dif.IsZero() {
			peTie = review.StatusFail
		}
	}
	statuses = append(statuses, peTie)

	if cfg.RequireStatementBalanceMatchesBalanceSheet {
		s := missingStatus
		if bsBalQ != nil && stmtBalQ != nil {
			dif := stmtBalQ.Sub(*bsBalQ).Abs()
			stmtVsBSDif = &dif
			s = review.StatusPass
			if !dif.IsZero() {
				s = review.StatusFail
			}
		}
		stmtVsBS = &s
		statuses = append(statuses, s)
	}

	item := findStatementAttachment(ctx, cfg.StatementBalanceAttachmentEvidenceType, rec.AccountRef)
	switch {
	case item == nil || item.Amount == nil:
		attachStatus = missingStatus
	default:
		amt := cfg.Quantize(*item.Amount)
		attachAmount = &amt
		attachDate = item.StatementEndDate
		if item.URI != "" {
			attachURI = item.URI
		}
		if attachDate != nil && !attachDate.Equal(stmtEndDate) {
			attachStatus = review.StatusFail
		} else if stmtBalQ == nil {
			attachStatus = missingStatus
		} else {
			dif := stmtBalQ.Sub(amt).Abs()
			attachDif = &dif
			attachStatus = review.StatusPass
			if !dif.IsZero() {
				attachStatus = review.StatusFail
			}
		}
	}
	statuses = append(statuses, attachStatus)

	status := review.WorstStatus(statuses...)
	detail := review.ResultDetail{
		Key:     rec.AccountRef,
		Message: "Account reconciliation tie-out evaluated.",
		Values: map[string]any{
			"account_name":       accountName,
			"period_end":         ctx.PeriodEnd.String(),
			"statement_end_date": stmtEndDate.String(),

			"require_statement_end_date_gte_period_end": cfg.RequireStatementEndDateGTEPeriodEnd,
			"coverage_status":                           statusOrNil(coverageStatus),

			"statement_ending_balance":         stringOrNil(stmtBalQ),
			"book_balance_as_of_statement_end": stringOrNil(bookStmtQ),
			"statement_tie_difference":         stringOrNil(stmtTieDif),
			"statement_tie_status":             stmtTie.String(),

			"balance_sheet_balance":         stringOrNil(bsBalQ),
			"book_balance_as_of_period_end": stringOrNil(bookPeQ),
			"period_end_tie_difference":     stringOrNil(peTieDif),
			"period_end_tie_status":         peTie.String(),

			"require_statement_balance_matches_balance_sheet":    cfg.RequireStatementBalanceMatchesBalanceSheet,
			"statement_balance_matches_balance_sheet_difference": stringOrNil(stmtVsBSDif),
			"statement_balance_matches_balance_sheet_status":     statusOrNil(stmtVsBS),

			"statement_balance_attachment_evidence_type": cfg.StatementBalanceAttachmentEvidenceType,
			"attachment_statement_end_date":              dateOrNil(attachDate),
			"attachment_amount":                          stringOrNil(attachAmount),
			"attachment_uri":                             attachURI,
			"attachment_balance_difference":              stringOrNil(attachDif),
			"attachment_status":                          attachStatus.String(),

			"status": status.String(),
		},
	}
	return status, detail, item
}

// findStatementAttachment returns the first evidence item of the given type
// whose meta.account_ref points at the account.
func findStatementAttachment(ctx review.RuleContext, evidenceType, accountRef string) *review.EvidenceItem {
	for i := range ctx.Evidence.Items {
		item := &ctx.Evidence.Items[i]
		if item.EvidenceType != evidenceType {
			continue
		}
		if review.MetaString(item.MetaValue("account_ref")) != accountRef {
			continue
		}
		return item
	}
	return nil
}

// isBankOrCreditCard classifies by type/subtype only; guessing from account
// names is deliberately off the table for reconciliation scope.
func isBankOrCreditCard(acct review.AccountBalance) bool {
	typeL := strings.ToLower(strings.TrimSpace(acct.Type))
	subtypeL := strings.ToLower(strings.TrimSpace(acct.Subtype))
	if typeL == "" && subtypeL == "" {
		return false
	}
	for _, marker := range []string{"bank", "credit", "card"} {
		if strings.Contains(typeL, marker) || strings.Contains(subtypeL, marker) {
			return true
		}
	}
	return false
}

// inferBankScope derives the bank/cc refs from balance-sheet type/subtype.
// When any account is missing both fields the scope is unknowable and a
// review detail is returned instead.
func inferBankScope(ctx review.RuleContext) ([]string, *review.ResultDetail) {
	var missingTypeRefs, inferred []string
	for _, acct := range ctx.BalanceSheet.Accounts {
		if strings.TrimSpace(acct.Type) == "" && strings.TrimSpace(acct.Subtype) == "" {
			missingTypeRefs = append(missingTypeRefs, acct.AccountRef)
			continue
		}
		if isBankOrCreditCard(acct) {
			inferred = append(inferred, acct.AccountRef)
		}
	}

	if len(missingTypeRefs) > 0 {
		return nil, &review.ResultDetail{
			Key:     "scope",
			Message: "Cannot infer bank/cc scope because some Balance Sheet accounts are missing type/subtype.",
			Values: map[string]any{
				"period_end":                 ctx.PeriodEnd.String(),
				"missing_type_account_refs":  capStrings(missingTypeRefs, 20),
				"missing_type_account_count": len(missingTypeRefs),
				"status":                     review.StatusNeedsReview.String(),
			},
		}
	}

	sort.Strings(inferred)
	return inferred, nil
}

// bankScope resolves the final ref list: expected_accounts wins outright,
// otherwise inferred ∪ include − exclude.
func bankScope(cfg *BankReconciledConfig, inferredRefs []string) []string {
	exclude := make(map[string]struct{}, len(cfg.ExcludeAccounts))
	for _, ref := range cfg.ExcludeAccounts {
		exclude[ref] = struct{}{}
	}

	if len(cfg.ExpectedAccounts) > 0 {
		var refs []string
		for _, ref := range cfg.ExpectedAccounts {
			if _, skip := exclude[ref]; !skip {
				refs = append(refs, ref)
			}
		}
		sort.Strings(refs)
		return refs
	}

	seen := make(map[string]struct{})
	var refs []string
	for _, ref := range append(append([]string{}, inferredRefs...), cfg.IncludeAccounts...) {
		if _, skip := exclude[ref]; skip {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// checkMaintenanceCount compares the maintenance (expected) account list
// against the bank/cc accounts actually on the Balance Sheet.
func checkMaintenanceCount(
	ctx review.RuleContext,
	cfg *BankReconciledConfig,
	inferredRefs []string,
) (review.RuleStatus, *review.ResultDetail) {
	if len(cfg.ExpectedAccounts) == 0 {
		return review.StatusNotApplicable, nil
	}

	if inferredRefs == nil {
		return review.StatusNeedsReview, &review.ResultDetail{
			Key:     "scope_count",
			Message: "Cannot compare maintenance list to Balance Sheet bank/cc count (missing type/subtype).",
			Values: map[string]any{
				"period_end":                ctx.PeriodEnd.String(),
				"maintenance_account_count": len(cfg.ExpectedAccounts),
				"status":                    review.StatusNeedsReview.String(),
			},
		}
	}

	inferredSet := make(map[string]struct{}, len(inferredRefs))
	for _, ref := range inferredRefs {
		inferredSet[ref] = struct{}{}
	}
	maintenanceSet := make(map[string]struct{}, len(cfg.ExpectedAccounts))
	for _, ref := range cfg.ExpectedAccounts {
		maintenanceSet[ref] = struct{}{}
	}

	var missingInBS, extraInBS []string
	for ref := range maintenanceSet {
		if _, ok := inferredSet[ref]; !ok {
			missingInBS = append(missingInBS, ref)
		}
	}
	for ref := range inferredSet {
		if _, ok := maintenanceSet[ref]; !ok {
			extraInBS = append(extraInBS, ref)
		}
	}
	sort.Strings(missingInBS)
	sort.Strings(extraInBS)

	if len(cfg.ExpectedAccounts) != len(inferredRefs) {
		return review.StatusFail, &review.ResultDetail{
			Key:     "scope_count",
			Message: "Maintenance bank/cc account count does not match Balance Sheet bank/cc count.",
			Values: map[string]any{
				"period_end":                  ctx.PeriodEnd.String(),
				"maintenance_account_count":   len(cfg.ExpectedAccounts),
				"balance_sheet_bank_cc_count": len(inferredRefs),
				"missing_in_balance_sheet":    capStrings(missingInBS, 20),
				"extra_in_balance_sheet":      capStrings(extraInBS, 20),
				"status":                      review.StatusFail.String(),
			},
		}
	}

	return review.StatusPass, &review.ResultDetail{
		Key:     "scope_count",
		Message: "Maintenance bank/cc account count matches Balance Sheet bank/cc count.",
		Values: map[string]any{
			"period_end":                  ctx.PeriodEnd.String(),
			"maintenance_account_count":   len(cfg.ExpectedAccounts),
			"balance_sheet_bank_cc_count": len(inferredRefs),
			"status":                      review.StatusPass.String(),
		},
	}
}
