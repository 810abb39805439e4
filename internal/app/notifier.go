package app

import (
	"context"

	"github.com/jaldanatrf/assignment-service/internal/domain"
)

// ResolverData summarizes how the reviewer for a dispute was chosen.
type ResolverData struct {
	ClaimID            string             `json:"claimId"`
	Outcome            Outcome            `json:"outcome"`
	UserID             string             `json:"userId,omitempty"`
	UserName           string             `json:"userName,omitempty"`
	UserDud            string             `json:"userDud,omitempty"`
	AppliedRuleIDs     []string           `json:"appliedRuleIds"`
	WinningSpecificity domain.Specificity `json:"winningSpecificity"`
}

// Notifier delivers created assignments to a company's configured endpoint.
type Notifier interface {
	Notify(ctx context.Context, cfg domain.Configuration, disputes []domain.Assignment, resolver ResolverData) error
}

func newResolverData(result *ProcessingResult, user *domain.User) ResolverData {
	data := ResolverData{
		ClaimID:            result.Claim.ClaimID,
		Outcome:            result.Outcome,
		WinningSpecificity: result.WinningSpecificity,
		AppliedRuleIDs:     make([]string, 0, len(result.AppliedRules)),
	}
	for _, r := range result.AppliedRules {
		data.AppliedRuleIDs = append(data.AppliedRuleIDs, r.ID.String())
	}
	if user != nil {
		data.UserID = user.ID.String()
		data.UserName = user.Name
		data.UserDud = user.Dud
	}
	return data
}
