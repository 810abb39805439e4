package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleTypeSpecificity(t *testing.T) {
	tests := []struct {
		ruleType RuleType
		want     Specificity
	}{
		{RuleTypeCodeAmountCompany, 1},
		{RuleTypeCompanyCode, 2},
		{RuleTypeCodeAmount, 3},
		{RuleTypeCompanyAmount, 4},
		{RuleTypeCompany, 5},
		{RuleTypeCode, 6},
		{RuleTypeAmount, 7},
		{RuleTypeCustom, 8},
		{RuleType("LEGACY"), 8},
		{RuleType(""), 8},
	}

	for _, tt := range tests {
		t.Run(string(tt.ruleType), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ruleType.Specificity())
		})
	}
}

func TestRuleTypeCriteria(t *testing.T) {
	assert.True(t, RuleTypeCodeAmountCompany.ChecksAmount())
	assert.True(t, RuleTypeCodeAmountCompany.ChecksCode())
	assert.True(t, RuleTypeCodeAmountCompany.ChecksCompany())

	assert.False(t, RuleTypeCompanyCode.ChecksAmount())
	assert.False(t, RuleTypeAmount.ChecksCode())
	assert.False(t, RuleTypeCode.ChecksCompany())

	assert.False(t, RuleTypeCustom.ChecksAmount())
	assert.False(t, RuleTypeCustom.ChecksCode())
	assert.False(t, RuleTypeCustom.ChecksCompany())
}

func TestNormalizeNIT(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "900000514-5", want: "9000005145"},
		{input: "9000005145", want: "9000005145"},
		{input: " 900 000 514 - 5 ", want: "9000005145"},
		{input: "abc-1", want: "ABC1"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeNIT(tt.input))
		})
	}
}

func TestAssignmentValidate(t *testing.T) {
	start := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)
	after := start.Add(time.Hour)

	base := func() Assignment {
		return Assignment{
			ID:        uuid.New(),
			CompanyID: uuid.New(),
			Status:    AssignmentStatusPending,
			StartDate: start,
		}
	}

	a := base()
	require.NoError(t, a.Validate())
	assert.True(t, a.IsPending())

	a = base()
	a.EndDate = &after
	require.NoError(t, a.Validate())

	a = base()
	a.EndDate = &before
	assert.ErrorIs(t, a.Validate(), ErrAssignmentDateOrder)

	a = base()
	same := start
	a.EndDate = &same
	assert.ErrorIs(t, a.Validate(), ErrAssignmentDateOrder)

	a = base()
	a.Status = "archived"
	assert.ErrorIs(t, a.Validate(), ErrInvalidAssignmentStatus)

	a = base()
	a.CompanyID = uuid.Nil
	assert.ErrorIs(t, a.Validate(), ErrAssignmentCompany)
}

func TestAssignmentComplete(t *testing.T) {
	start := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	a := Assignment{CompanyID: uuid.New(), Status: AssignmentStatusAssigned, StartDate: start}

	assert.ErrorIs(t, a.Complete(start), ErrAssignmentDateOrder)

	done := start.Add(2 * time.Hour)
	require.NoError(t, a.Complete(done))
	assert.Equal(t, AssignmentStatusCompleted, a.Status)
	require.NotNil(t, a.EndDate)
	assert.True(t, a.EndDate.Equal(done))
	assert.NoError(t, a.Validate())
}
