package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssignmentStatus is the lifecycle state of an assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusActive     AssignmentStatus = "active"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
	AssignmentStatusUnassigned AssignmentStatus = "unassigned"
)

// Valid reports whether s is one of the known statuses.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusPending, AssignmentStatusAssigned, AssignmentStatusActive,
		AssignmentStatusCompleted, AssignmentStatusCancelled, AssignmentStatusUnassigned:
		return true
	}
	return false
}

var (
	ErrInvalidAssignmentStatus = errors.New("invalid assignment status")
	ErrAssignmentDateOrder     = errors.New("assignment end date must be after start date")
	ErrAssignmentCompany       = errors.New("assignment company is required")
)

// Assignment routes one claim to a reviewer, or leaves it pending (nil UserID)
// for manual triage. CompanyID is always the source company.
type Assignment struct {
	ID         uuid.UUID        `json:"id"`
	UserID     *uuid.UUID       `json:"userId"`
	CompanyID  uuid.UUID        `json:"companyId"`
	Status     AssignmentStatus `json:"status"`
	StartDate  time.Time        `json:"startDate"`
	EndDate    *time.Time       `json:"endDate,omitempty"`
	AssignedAt time.Time        `json:"assignedAt"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`

	ProcessID              string          `json:"processId"`
	Source                 string          `json:"source"`
	DocumentNumber         string          `json:"documentNumber"`
	InvoiceAmount          decimal.Decimal `json:"invoiceAmount"`
	ExternalReference      string          `json:"externalReference"`
	ClaimID                string          `json:"claimId"`
	ConceptApplicationCode string          `json:"conceptApplicationCode"`
	ObjectionCode          string          `json:"objectionCode"`
	Value                  decimal.Decimal `json:"value"`
}

// Validate checks the invariants every stored assignment must hold.
func (a *Assignment) Validate() error {
	if a.CompanyID == uuid.Nil {
		return ErrAssignmentCompany
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAssignmentStatus, a.Status)
	}
	if a.EndDate != nil && !a.EndDate.After(a.StartDate) {
		return ErrAssignmentDateOrder
	}
	return nil
}

// IsPending reports whether the assignment still awaits a reviewer.
func (a *Assignment) IsPending() bool {
	return a.UserID == nil
}

// Complete closes the assignment at now. The dispatcher never calls this; it is
// the transition used by the update path once a reviewer resolves the claim.
func (a *Assignment) Complete(now time.Time) error {
	if !now.After(a.StartDate) {
		return ErrAssignmentDateOrder
	}
	end := now
	a.EndDate = &end
	a.Status = AssignmentStatusCompleted
	a.UpdatedAt = now
	return nil
}
