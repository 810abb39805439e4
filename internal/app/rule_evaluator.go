package app

import (
	"fmt"
	"strings"

	"github.com/jaldanatrf/assignment-service/internal/domain"
)

// RuleEvaluation is the audit record of one rule checked against one claim.
type RuleEvaluation struct {
	Rule        domain.Rule
	Applies     bool
	Reason      string
	Specificity domain.Specificity
}

// EvaluateRule checks a single rule against a claim. It performs no I/O and
// returns the same result for the same inputs.
func EvaluateRule(rule domain.Rule, claim domain.Claim) RuleEvaluation {
	eval := RuleEvaluation{
		Rule:        rule,
		Specificity: rule.Type.Specificity(),
	}

	if eval.Specificity == domain.SpecificityCatchAll {
		eval.Applies = true
		eval.Reason = fmt.Sprintf("rule type %q is a catch-all and always applies", string(rule.Type))
		return eval
	}

	applies := true
	parts := make([]string, 0, 3)

	if rule.Type.ChecksCode() {
		ok, detail := matchesObjectionCode(rule.Code, claim.ObjectionCode)
		applies = applies && ok
		parts = append(parts, detail)
	}
	if rule.Type.ChecksAmount() {
		ok, detail := matchesAmountRange(rule, claim)
		applies = applies && ok
		parts = append(parts, detail)
	}
	if rule.Type.ChecksCompany() {
		ok, detail := matchesTargetCompany(rule.NitAssociatedCompany, claim.Target)
		applies = applies && ok
		parts = append(parts, detail)
	}

	eval.Applies = applies
	verdict := "does not apply"
	if applies {
		verdict = "applies"
	}
	eval.Reason = fmt.Sprintf("%s rule %s: %s", string(rule.Type), verdict, strings.Join(parts, "; "))
	return eval
}

// matchesObjectionCode compares codes exactly. No trimming or case folding.
func matchesObjectionCode(ruleCode *string, claimCode string) (bool, string) {
	switch {
	case ruleCode == nil:
		return false, "code not matched (rule has no code)"
	case claimCode == "":
		return false, "code not matched (claim has no objection code)"
	case *ruleCode == claimCode:
		return true, fmt.Sprintf("code matched (%q)", claimCode)
	default:
		return false, fmt.Sprintf("code not matched (rule %q, claim %q)", *ruleCode, claimCode)
	}
}

func matchesAmountRange(rule domain.Rule, claim domain.Claim) (bool, string) {
	amount := claim.InvoiceAmount
	lower, upper := "-inf", "+inf"
	if rule.MinimumAmount != nil {
		lower = rule.MinimumAmount.String()
	}
	if rule.MaximumAmount != nil {
		upper = rule.MaximumAmount.String()
	}

	inRange := true
	if rule.MinimumAmount != nil && amount.LessThan(*rule.MinimumAmount) {
		inRange = false
	}
	if rule.MaximumAmount != nil && amount.GreaterThan(*rule.MaximumAmount) {
		inRange = false
	}

	if inRange {
		return true, fmt.Sprintf("amount matched (%s in [%s, %s])", amount.String(), lower, upper)
	}
	return false, fmt.Sprintf("amount not matched (%s outside [%s, %s])", amount.String(), lower, upper)
}

func matchesTargetCompany(ruleNit *string, target string) (bool, string) {
	if ruleNit == nil || domain.NormalizeNIT(*ruleNit) == "" {
		return false, "company not matched (rule has no NIT)"
	}
	want := domain.NormalizeNIT(*ruleNit)
	got := domain.NormalizeNIT(target)
	if got != "" && want == got {
		return true, fmt.Sprintf("company matched (%s)", want)
	}
	return false, fmt.Sprintf("company not matched (rule %s, target %s)", want, got)
}
