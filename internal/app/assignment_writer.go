package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/jaldanatrf/assignment-service/internal/metrics"
	"github.com/jaldanatrf/assignment-service/internal/store"
	"github.com/sirupsen/logrus"
)

// AssignmentWriter builds and persists the assignment for a processed claim.
type AssignmentWriter struct {
	assignments store.AssignmentRepository
	now         func() time.Time
	log         *logrus.Entry
}

func NewAssignmentWriter(assignments store.AssignmentRepository, logger logrus.FieldLogger) *AssignmentWriter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AssignmentWriter{
		assignments: assignments,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logger.WithField("component", "assignment_writer"),
	}
}

// Write stores an assigned row for user, or a pending row when user is nil.
// companyID must be the source company; the claim target is never stored as owner.
func (w *AssignmentWriter) Write(ctx context.Context, user *domain.User, companyID uuid.UUID, claim domain.Claim, result *ProcessingResult) (*domain.Assignment, error) {
	now := w.now()
	a := &domain.Assignment{
		ID:                     uuid.New(),
		CompanyID:              companyID,
		Status:                 domain.AssignmentStatusPending,
		StartDate:              now,
		AssignedAt:             now,
		ProcessID:              claim.ProcessID,
		Source:                 claim.Source,
		DocumentNumber:         claim.DocumentNumber,
		InvoiceAmount:          claim.InvoiceAmount,
		ExternalReference:      claim.ExternalReference,
		ClaimID:                claim.ClaimID,
		ConceptApplicationCode: claim.ConceptApplicationCode,
		ObjectionCode:          claim.ObjectionCode,
		Value:                  claim.Value,
	}
	if user != nil {
		userID := user.ID
		a.UserID = &userID
		a.Status = domain.AssignmentStatusAssigned
	}

	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("build assignment for claim %s: %w", claim.ClaimID, err)
	}

	saved, err := w.assignments.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("persist assignment for claim %s: %w", claim.ClaimID, err)
	}
	metrics.AssignmentsCreated.WithLabelValues(string(saved.Status)).Inc()

	fields := logrus.Fields{
		"assignment_id": saved.ID,
		"claim_id":      claim.ClaimID,
		"company_id":    companyID,
		"status":        saved.Status,
	}
	if result != nil {
		fields["outcome"] = result.Outcome
		fields["rules_applied"] = result.TotalRulesApplied
	}
	if saved.UserID != nil {
		fields["user_id"] = *saved.UserID
	}
	w.log.WithFields(fields).Info("assignment created")
	return saved, nil
}
