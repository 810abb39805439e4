package app

import (
	"github.com/google/uuid"
	"github.com/jaldanatrf/assignment-service/internal/domain"
)

// AppliedRule pairs a rule that matched the claim with the active users it reaches.
type AppliedRule struct {
	Evaluation RuleEvaluation
	Users      []domain.User
}

// EligibleUser is a candidate together with the winning-tier rules that selected it.
type EligibleUser struct {
	User         domain.User
	AppliedRules []domain.Rule
}

// ResolveSpecificity keeps only the most specific tier among the applied rules and
// merges their users, deduplicated by ID. Less specific rules never contribute users.
// Order follows first appearance: rules in input order, then users in lookup order.
func ResolveSpecificity(applied []AppliedRule) ([]EligibleUser, domain.Specificity) {
	best := domain.Specificity(0)
	for _, a := range applied {
		if !a.Evaluation.Applies {
			continue
		}
		if best == 0 || a.Evaluation.Specificity < best {
			best = a.Evaluation.Specificity
		}
	}
	if best == 0 {
		return nil, 0
	}

	var eligible []EligibleUser
	index := make(map[uuid.UUID]int)
	for _, a := range applied {
		if !a.Evaluation.Applies || a.Evaluation.Specificity != best {
			continue
		}
		for _, u := range a.Users {
			if i, ok := index[u.ID]; ok {
				if !containsRule(eligible[i].AppliedRules, a.Evaluation.Rule.ID) {
					eligible[i].AppliedRules = append(eligible[i].AppliedRules, a.Evaluation.Rule)
				}
				continue
			}
			index[u.ID] = len(eligible)
			eligible = append(eligible, EligibleUser{
				User:         u,
				AppliedRules: []domain.Rule{a.Evaluation.Rule},
			})
		}
	}
	return eligible, best
}

func containsRule(rules []domain.Rule, id uuid.UUID) bool {
	for _, r := range rules {
		if r.ID == id {
			return true
		}
	}
	return false
}
