/**
 * @description
 * The business rule processor decides which reviewers are eligible for a claim.
 * It resolves the source company, evaluates its active rules, follows the
 * Rule -> Role -> User associations of the applied rules and narrows the result
 * to the most specific tier. It only reads from the repositories.
 *
 * @dependencies
 * - internal/store: read-only repository contracts.
 * - internal/metrics: rule evaluation counters.
 * - github.com/sirupsen/logrus: structured decision logging.
 */

package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/jaldanatrf/assignment-service/internal/metrics"
	"github.com/jaldanatrf/assignment-service/internal/store"
	"github.com/sirupsen/logrus"
)

// Outcome classifies a processing result for audit logs and metrics.
type Outcome string

const (
	OutcomeCompanyNotFound Outcome = "company_not_found"
	OutcomeNoActiveRules   Outcome = "no_active_rules"
	OutcomeNoRuleApplied   Outcome = "no_rule_applied"
	OutcomeNoEligibleUsers Outcome = "no_eligible_users"
	OutcomeMatched         Outcome = "matched"
)

// ProcessingResult is the decision record for one claim.
type ProcessingResult struct {
	Success             bool
	Message             string
	Outcome             Outcome
	Claim               domain.Claim
	Company             *domain.Company
	Users               []EligibleUser
	AppliedRules        []domain.Rule
	Evaluations         []RuleEvaluation
	WinningSpecificity  domain.Specificity
	TotalRulesEvaluated int
	TotalRulesApplied   int
}

// Candidates returns the eligible users in resolution order.
func (r ProcessingResult) Candidates() []domain.User {
	users := make([]domain.User, 0, len(r.Users))
	for _, u := range r.Users {
		users = append(users, u.User)
	}
	return users
}

// RuleProcessor resolves eligible reviewers for claims.
type RuleProcessor struct {
	companies store.CompanyRepository
	rules     store.RuleRepository
	ruleRoles store.RuleRoleRepository
	userRoles store.UserRoleRepository
	log       *logrus.Entry
}

// NewRuleProcessor wires the processor to its read-only repositories.
func NewRuleProcessor(
	companies store.CompanyRepository,
	rules store.RuleRepository,
	ruleRoles store.RuleRoleRepository,
	userRoles store.UserRoleRepository,
	logger logrus.FieldLogger,
) *RuleProcessor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RuleProcessor{
		companies: companies,
		rules:     rules,
		ruleRoles: ruleRoles,
		userRoles: userRoles,
		log:       logger.WithField("component", "rule_processor"),
	}
}

// ProcessRaw maps and validates a decoded wire payload before processing it.
// Malformed input is returned as a domain.ErrValidation error.
func (p *RuleProcessor) ProcessRaw(ctx context.Context, raw map[string]any) (*ProcessingResult, error) {
	msg, err := MapClaimFields(raw, p.log)
	if err != nil {
		return nil, err
	}
	claim, err := domain.NewClaim(msg)
	if err != nil {
		return nil, err
	}
	return p.ProcessClaim(ctx, claim)
}

// ProcessClaim runs the full decision for a validated claim. Repository errors
// are returned wrapped; a missing company is a result, not an error.
func (p *RuleProcessor) ProcessClaim(ctx context.Context, claim domain.Claim) (*ProcessingResult, error) {
	result := &ProcessingResult{Claim: claim}
	log := p.log.WithFields(logrus.Fields{"claim_id": claim.ClaimID, "source": claim.Source})

	company, err := p.resolveSourceCompany(ctx, claim.Source)
	if err != nil {
		return nil, err
	}
	if company == nil {
		result.Success = false
		result.Outcome = OutcomeCompanyNotFound
		result.Message = fmt.Sprintf("no company found for source document %q", claim.Source)
		log.Info("source company not found")
		return result, nil
	}
	result.Company = company
	log = log.WithField("company_id", company.ID)

	rules, err := p.rules.FindByCompany(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("load rules for company %s: %w", company.ID, err)
	}
	active := make([]domain.Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		result.Success = true
		result.Outcome = OutcomeNoActiveRules
		result.Message = "company has no active rules"
		log.Info("no active rules for company")
		return result, nil
	}

	var applied []AppliedRule
	for _, rule := range active {
		eval := EvaluateRule(rule, claim)
		result.Evaluations = append(result.Evaluations, eval)
		metrics.RuleEvaluations.WithLabelValues(string(rule.Type), strconv.FormatBool(eval.Applies)).Inc()
		log.WithFields(logrus.Fields{
			"rule_id":     rule.ID,
			"rule_type":   rule.Type,
			"applies":     eval.Applies,
			"specificity": int(eval.Specificity),
		}).Debug(eval.Reason)

		if !eval.Applies {
			continue
		}
		users, err := p.usersForRule(ctx, rule.ID)
		if err != nil {
			return nil, err
		}
		applied = append(applied, AppliedRule{Evaluation: eval, Users: users})
	}
	result.TotalRulesEvaluated = len(result.Evaluations)
	result.TotalRulesApplied = len(applied)
	result.Success = true

	if len(applied) == 0 {
		result.Outcome = OutcomeNoRuleApplied
		result.Message = fmt.Sprintf("none of %d active rules applied", len(active))
		return result, nil
	}

	eligible, best := ResolveSpecificity(applied)
	result.Users = eligible
	result.WinningSpecificity = best
	for _, a := range applied {
		if a.Evaluation.Specificity == best {
			result.AppliedRules = append(result.AppliedRules, a.Evaluation.Rule)
		}
	}

	if len(eligible) == 0 {
		result.Outcome = OutcomeNoEligibleUsers
		result.Message = fmt.Sprintf("%d rules applied at specificity %d but no active users were found", len(result.AppliedRules), best)
		return result, nil
	}
	result.Outcome = OutcomeMatched
	result.Message = fmt.Sprintf("%d eligible users from %d rules at specificity %d", len(eligible), len(result.AppliedRules), best)
	return result, nil
}

// resolveSourceCompany tries an exact document match, then compares normalized
// document numbers across all companies.
func (p *RuleProcessor) resolveSourceCompany(ctx context.Context, source string) (*domain.Company, error) {
	company, err := p.companies.FindByDocumentNumber(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("find source company: %w", err)
	}
	if company != nil {
		return company, nil
	}

	normalized := domain.NormalizeNIT(source)
	if normalized == "" {
		return nil, nil
	}
	companies, err := p.companies.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan companies for source document: %w", err)
	}
	for i := range companies {
		if domain.NormalizeNIT(companies[i].DocumentNumber) == normalized {
			return &companies[i], nil
		}
	}
	return nil, nil
}

// usersForRule follows Rule -> Role -> User, keeping active users once each.
func (p *RuleProcessor) usersForRule(ctx context.Context, ruleID uuid.UUID) ([]domain.User, error) {
	links, err := p.ruleRoles.FindByRuleID(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("load roles for rule %s: %w", ruleID, err)
	}

	var users []domain.User
	seen := make(map[uuid.UUID]struct{})
	for _, link := range links {
		members, err := p.userRoles.GetUsersByRole(ctx, link.RoleID)
		if err != nil {
			return nil, fmt.Errorf("load users for role %s: %w", link.RoleID, err)
		}
		for _, u := range members {
			if !u.IsActive {
				continue
			}
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			users = append(users, u)
		}
	}
	return users, nil
}
