package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validClaimMessage() ClaimMessage {
	return ClaimMessage{
		ProcessID:     "proc-1",
		Target:        "800000513",
		Source:        "900000514",
		InvoiceAmount: "3000000",
		ClaimID:       "claim-1",
		Value:         "1500.50",
		ObjectionCode: "OBJ-001",
	}
}

func TestNewClaim_CoercesAmounts(t *testing.T) {
	claim, err := NewClaim(validClaimMessage())
	require.NoError(t, err)

	assert.True(t, claim.InvoiceAmount.Equal(decimal.NewFromInt(3_000_000)))
	assert.True(t, claim.Value.Equal(decimal.RequireFromString("1500.50")))
	assert.Equal(t, "900000514", claim.Source)
	assert.Equal(t, "800000513", claim.Target)
	assert.Equal(t, "OBJ-001", claim.ObjectionCode)
	assert.True(t, claim.HasObjectionCode())
}

func TestNewClaim_RejectsInvalidMessages(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(m *ClaimMessage)
		wantField string
	}{
		{
			name:      "missing claim id",
			mutate:    func(m *ClaimMessage) { m.ClaimID = "" },
			wantField: "ClaimId",
		},
		{
			name:      "missing source",
			mutate:    func(m *ClaimMessage) { m.Source = "" },
			wantField: "Source",
		},
		{
			name:      "negative invoice amount",
			mutate:    func(m *ClaimMessage) { m.InvoiceAmount = "-1" },
			wantField: "InvoiceAmount",
		},
		{
			name:      "non numeric value",
			mutate:    func(m *ClaimMessage) { m.Value = "abc" },
			wantField: "Value",
		},
		{
			name:      "infinite amount",
			mutate:    func(m *ClaimMessage) { m.InvoiceAmount = "Infinity" },
			wantField: "InvoiceAmount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validClaimMessage()
			tt.mutate(&msg)

			_, err := NewClaim(msg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.wantField)
		})
	}
}

func TestNewClaim_AllowsZeroAmounts(t *testing.T) {
	msg := validClaimMessage()
	msg.InvoiceAmount = "0"
	msg.Value = "0"

	claim, err := NewClaim(msg)
	require.NoError(t, err)
	assert.True(t, claim.InvoiceAmount.IsZero())
	assert.False(t, claim.Value.IsNegative())
}
