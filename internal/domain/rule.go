package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleType tags which criteria a rule checks.
type RuleType string

const (
	RuleTypeAmount            RuleType = "AMOUNT"
	RuleTypeCompany           RuleType = "COMPANY"
	RuleTypeCompanyAmount     RuleType = "COMPANY-AMOUNT"
	RuleTypeCode              RuleType = "CODE"
	RuleTypeCodeAmount        RuleType = "CODE-AMOUNT"
	RuleTypeCompanyCode       RuleType = "COMPANY-CODE"
	RuleTypeCodeAmountCompany RuleType = "CODE-AMOUNT-COMPANY"
	RuleTypeCustom            RuleType = "CUSTOM"
)

// Specificity ranks a rule type; lower values are more specific and win.
type Specificity int

const (
	SpecificityCodeAmountCompany Specificity = iota + 1
	SpecificityCompanyCode
	SpecificityCodeAmount
	SpecificityCompanyAmount
	SpecificityCompany
	SpecificityCode
	SpecificityAmount
	SpecificityCatchAll
)

// Specificity returns the fixed rank of the rule type. Unknown types rank with CUSTOM.
func (t RuleType) Specificity() Specificity {
	switch t {
	case RuleTypeCodeAmountCompany:
		return SpecificityCodeAmountCompany
	case RuleTypeCompanyCode:
		return SpecificityCompanyCode
	case RuleTypeCodeAmount:
		return SpecificityCodeAmount
	case RuleTypeCompanyAmount:
		return SpecificityCompanyAmount
	case RuleTypeCompany:
		return SpecificityCompany
	case RuleTypeCode:
		return SpecificityCode
	case RuleTypeAmount:
		return SpecificityAmount
	default:
		return SpecificityCatchAll
	}
}

// ChecksAmount reports whether the type includes the invoice amount range.
func (t RuleType) ChecksAmount() bool {
	switch t {
	case RuleTypeAmount, RuleTypeCompanyAmount, RuleTypeCodeAmount, RuleTypeCodeAmountCompany:
		return true
	}
	return false
}

// ChecksCompany reports whether the type includes the target company NIT.
func (t RuleType) ChecksCompany() bool {
	switch t {
	case RuleTypeCompany, RuleTypeCompanyAmount, RuleTypeCompanyCode, RuleTypeCodeAmountCompany:
		return true
	}
	return false
}

// ChecksCode reports whether the type includes the objection code.
func (t RuleType) ChecksCode() bool {
	switch t {
	case RuleTypeCode, RuleTypeCodeAmount, RuleTypeCompanyCode, RuleTypeCodeAmountCompany:
		return true
	}
	return false
}

// Rule is a stored eligibility predicate owned by a company. Which optional
// criteria are populated depends on Type; that is enforced when rules are written.
type Rule struct {
	ID                   uuid.UUID        `json:"id"`
	Name                 string           `json:"name"`
	Description          string           `json:"description"`
	CompanyID            uuid.UUID        `json:"companyId"`
	Type                 RuleType         `json:"type"`
	IsActive             bool             `json:"isActive"`
	MinimumAmount        *decimal.Decimal `json:"minimumAmount,omitempty"`
	MaximumAmount        *decimal.Decimal `json:"maximumAmount,omitempty"`
	NitAssociatedCompany *string          `json:"nitAssociatedCompany,omitempty"`
	Code                 *string          `json:"code,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// RuleRole links a rule to a role whose members become eligible reviewers.
type RuleRole struct {
	RuleID uuid.UUID `json:"ruleId"`
	RoleID uuid.UUID `json:"roleId"`
}

// NormalizeNIT uppercases a tax id and strips dashes and whitespace so that
// "900000514-5" and "9000005145" compare equal.
func NormalizeNIT(nit string) string {
	var b strings.Builder
	b.Grow(len(nit))
	for _, r := range nit {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
