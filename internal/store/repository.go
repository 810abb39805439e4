/**
 * @description
 * This file defines the repository contracts the assignment engine consumes. The
 * rule engine only reads companies, rules, role links, users and notification
 * configuration; the dispatcher is the single writer of assignments.
 *
 * @dependencies
 * - context: Every call is bound to the caller's context.
 * - github.com/google/uuid: Entity identifiers.
 * - internal/domain: The service's domain models.
 *
 * @notes
 * - Lookups that may legitimately miss (company, configuration) return nil, nil
 *   so the caller can tell a domain miss from an infrastructure failure.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jaldanatrf/assignment-service/internal/domain"
)

// AssignmentFilter narrows Count. Zero-valued fields are not applied.
type AssignmentFilter struct {
	UserID    *uuid.UUID
	CompanyID *uuid.UUID
	Status    domain.AssignmentStatus
}

// AssignmentRepository persists assignments created by the dispatcher.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) (*domain.Assignment, error)
	Count(ctx context.Context, filter AssignmentFilter) (int, error)
}

// CompanyRepository resolves companies by their tax document.
type CompanyRepository interface {
	FindByDocumentNumber(ctx context.Context, documentNumber string) (*domain.Company, error)
	FindAll(ctx context.Context) ([]domain.Company, error)
}

// RuleRepository lists the rules a company owns.
type RuleRepository interface {
	FindByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Rule, error)
}

// RuleRoleRepository resolves the roles linked to a rule.
type RuleRoleRepository interface {
	FindByRuleID(ctx context.Context, ruleID uuid.UUID) ([]domain.RuleRole, error)
}

// UserRoleRepository resolves the members of a role.
type UserRoleRepository interface {
	GetUsersByRole(ctx context.Context, roleID uuid.UUID) ([]domain.User, error)
}

// ConfigurationRepository loads a company's notification settings.
type ConfigurationRepository interface {
	FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*domain.Configuration, error)
}
