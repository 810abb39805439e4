package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(fs *fakeStore, now time.Time) *AssignmentWriter {
	logger, _ := newTestLogger()
	w := NewAssignmentWriter(fs, logger)
	w.now = func() time.Time { return now }
	return w
}

func TestAssignmentWriter_AssignedRow(t *testing.T) {
	fs := newFakeStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	user := newUser("reviewer")
	companyID := uuid.New()
	claim := testClaim()

	saved, err := newTestWriter(fs, now).Write(context.Background(), &user, companyID, claim, nil)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, domain.AssignmentStatusAssigned, saved.Status)
	require.NotNil(t, saved.UserID)
	assert.Equal(t, user.ID, *saved.UserID)
	assert.Equal(t, companyID, saved.CompanyID)
	assert.Equal(t, now, saved.StartDate)
	assert.Equal(t, now, saved.AssignedAt)
	assert.Nil(t, saved.EndDate)

	assert.Equal(t, claim.ProcessID, saved.ProcessID)
	assert.Equal(t, claim.Source, saved.Source)
	assert.Equal(t, claim.DocumentNumber, saved.DocumentNumber)
	assert.True(t, claim.InvoiceAmount.Equal(saved.InvoiceAmount))
	assert.Equal(t, claim.ClaimID, saved.ClaimID)
	assert.Equal(t, claim.ObjectionCode, saved.ObjectionCode)
	assert.True(t, claim.Value.Equal(saved.Value))
	assert.Len(t, fs.createdAssignments(), 1)
}

func TestAssignmentWriter_PendingRow(t *testing.T) {
	fs := newFakeStore()
	companyID := uuid.New()

	saved, err := newTestWriter(fs, time.Now().UTC()).Write(context.Background(), nil, companyID, testClaim(), nil)

	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusPending, saved.Status)
	assert.Nil(t, saved.UserID)
	assert.True(t, saved.IsPending())
	assert.Equal(t, companyID, saved.CompanyID)
}

func TestAssignmentWriter_RejectsMissingCompany(t *testing.T) {
	fs := newFakeStore()

	_, err := newTestWriter(fs, time.Now()).Write(context.Background(), nil, uuid.Nil, testClaim(), nil)

	assert.ErrorIs(t, err, domain.ErrAssignmentCompany)
	assert.Empty(t, fs.createdAssignments())
}

func TestAssignmentWriter_WrapsRepositoryError(t *testing.T) {
	fs := newFakeStore()
	fs.createErr = errors.New("unique violation")

	_, err := newTestWriter(fs, time.Now()).Write(context.Background(), nil, uuid.New(), testClaim(), nil)

	assert.ErrorIs(t, err, fs.createErr)
}
