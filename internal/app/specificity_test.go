package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appliedAt(ruleType domain.RuleType, users ...domain.User) AppliedRule {
	rule := domain.Rule{ID: uuid.New(), Type: ruleType}
	return AppliedRule{
		Evaluation: RuleEvaluation{Rule: rule, Applies: true, Specificity: ruleType.Specificity()},
		Users:      users,
	}
}

func TestResolveSpecificity_OnlyMostSpecificTierContributes(t *testing.T) {
	broad := newUser("broad")
	narrow := newUser("narrow")

	eligible, best := ResolveSpecificity([]AppliedRule{
		appliedAt(domain.RuleTypeAmount, broad),
		appliedAt(domain.RuleTypeCompanyCode, narrow),
		appliedAt(domain.RuleTypeCustom, broad),
	})

	require.Len(t, eligible, 1)
	assert.Equal(t, narrow.ID, eligible[0].User.ID)
	assert.Equal(t, domain.SpecificityCompanyCode, best)
}

func TestResolveSpecificity_UnionsAndDeduplicatesSameTier(t *testing.T) {
	shared := newUser("shared")
	onlyFirst := newUser("first")
	onlySecond := newUser("second")

	first := appliedAt(domain.RuleTypeCode, onlyFirst, shared)
	second := appliedAt(domain.RuleTypeCode, shared, onlySecond)

	eligible, best := ResolveSpecificity([]AppliedRule{first, second})

	require.Len(t, eligible, 3)
	assert.Equal(t, domain.SpecificityCode, best)
	assert.Equal(t, []uuid.UUID{onlyFirst.ID, shared.ID, onlySecond.ID},
		[]uuid.UUID{eligible[0].User.ID, eligible[1].User.ID, eligible[2].User.ID})

	require.Len(t, eligible[1].AppliedRules, 2)
	assert.Equal(t, first.Evaluation.Rule.ID, eligible[1].AppliedRules[0].ID)
	assert.Equal(t, second.Evaluation.Rule.ID, eligible[1].AppliedRules[1].ID)
}

func TestResolveSpecificity_IgnoresRulesThatDidNotApply(t *testing.T) {
	u := newUser("u")
	notApplied := appliedAt(domain.RuleTypeCodeAmountCompany, newUser("x"))
	notApplied.Evaluation.Applies = false

	eligible, best := ResolveSpecificity([]AppliedRule{notApplied, appliedAt(domain.RuleTypeAmount, u)})

	require.Len(t, eligible, 1)
	assert.Equal(t, u.ID, eligible[0].User.ID)
	assert.Equal(t, domain.SpecificityAmount, best)
}

func TestResolveSpecificity_Empty(t *testing.T) {
	eligible, best := ResolveSpecificity(nil)
	assert.Empty(t, eligible)
	assert.Zero(t, best)
}

func TestResolveSpecificity_WinningTierWithoutUsers(t *testing.T) {
	eligible, best := ResolveSpecificity([]AppliedRule{
		appliedAt(domain.RuleTypeCodeAmount),
		appliedAt(domain.RuleTypeAmount, newUser("broad")),
	})

	assert.Empty(t, eligible)
	assert.Equal(t, domain.SpecificityCodeAmount, best)
}

func TestResolveSpecificity_Monotonic(t *testing.T) {
	types := []domain.RuleType{
		domain.RuleTypeCodeAmountCompany,
		domain.RuleTypeCompanyCode,
		domain.RuleTypeCodeAmount,
		domain.RuleTypeCompanyAmount,
		domain.RuleTypeCompany,
		domain.RuleTypeCode,
		domain.RuleTypeAmount,
		domain.RuleTypeCustom,
	}

	for i := range types {
		for j := i + 1; j < len(types); j++ {
			specific := newUser("specific")
			general := newUser("general")
			eligible, _ := ResolveSpecificity([]AppliedRule{
				appliedAt(types[j], general),
				appliedAt(types[i], specific),
			})
			require.Len(t, eligible, 1, "%s vs %s", types[i], types[j])
			assert.Equal(t, specific.ID, eligible[0].User.ID, "%s vs %s", types[i], types[j])
		}
	}
}
