/**
 * @description
 * This file provides the PostgreSQL implementation of the repository contracts
 * used by the assignment engine and dispatcher.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: Amount columns are NUMERIC and scanned exactly.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	_ AssignmentRepository    = (*PostgresRepository)(nil)
	_ CompanyRepository       = (*PostgresRepository)(nil)
	_ RuleRepository          = (*PostgresRepository)(nil)
	_ RuleRoleRepository      = (*PostgresRepository)(nil)
	_ UserRoleRepository      = (*PostgresRepository)(nil)
	_ ConfigurationRepository = (*PostgresRepository)(nil)
)

// querier is the part of *pgxpool.Pool the repository uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a concrete implementation of every repository interface for PostgreSQL.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the assignment and returns it with database-generated timestamps.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Assignment) (*domain.Assignment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
		INSERT INTO assignments (
			id, user_id, company_id, status, start_date, end_date, assigned_at,
			process_id, source, document_number, invoice_amount, external_reference,
			claim_id, concept_application_code, objection_code, value
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`
	saved := *a
	err := r.db.QueryRow(ctx, query,
		a.ID,
		a.UserID,
		a.CompanyID,
		string(a.Status),
		a.StartDate,
		a.EndDate,
		a.AssignedAt,
		a.ProcessID,
		a.Source,
		a.DocumentNumber,
		a.InvoiceAmount,
		a.ExternalReference,
		a.ClaimID,
		a.ConceptApplicationCode,
		a.ObjectionCode,
		a.Value,
	).Scan(&saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert assignment for claim %s: %w", a.ClaimID, err)
	}
	return &saved, nil
}

// Count returns the number of assignments matching every set field of filter.
func (r *PostgresRepository) Count(ctx context.Context, filter AssignmentFilter) (int, error) {
	query, args := buildAssignmentCountQuery(filter)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}

func buildAssignmentCountQuery(filter AssignmentFilter) (string, []any) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT COUNT(*) FROM assignments"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query, args
}

const companyColumns = `id, name, document_number, document_type, is_active, created_at, updated_at`

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var c domain.Company
	if err := row.Scan(&c.ID, &c.Name, &c.DocumentNumber, &c.DocumentType, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByDocumentNumber returns the company with exactly this document number, or nil.
func (r *PostgresRepository) FindByDocumentNumber(ctx context.Context, documentNumber string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE document_number = $1 LIMIT 1`
	company, err := scanCompany(r.db.QueryRow(ctx, query, documentNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find company by document %q: %w", documentNumber, err)
	}
	return company, nil
}

// FindAll lists every company ordered by creation time.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.db.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, *company)
	}
	return companies, rows.Err()
}

// FindByCompany lists the company's rules, active or not, in creation order.
func (r *PostgresRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Rule, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), company_id, type, is_active,
		       minimum_amount, maximum_amount, nit_associated_company, code,
		       created_at, updated_at
		FROM rules
		WHERE company_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list rules for company %s: %w", companyID, err)
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// scanRule maps NULL amount bounds to nil pointers.
func scanRule(row pgx.Row) (domain.Rule, error) {
	var (
		rule     domain.Rule
		ruleType string
		minimum  decimal.NullDecimal
		maximum  decimal.NullDecimal
	)
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.CompanyID,
		&ruleType,
		&rule.IsActive,
		&minimum,
		&maximum,
		&rule.NitAssociatedCompany,
		&rule.Code,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return domain.Rule{}, err
	}
	rule.Type = domain.RuleType(strings.ToUpper(strings.TrimSpace(ruleType)))
	if minimum.Valid {
		rule.MinimumAmount = &minimum.Decimal
	}
	if maximum.Valid {
		rule.MaximumAmount = &maximum.Decimal
	}
	return rule, nil
}

// FindByRuleID lists the roles linked to a rule.
func (r *PostgresRepository) FindByRuleID(ctx context.Context, ruleID uuid.UUID) ([]domain.RuleRole, error) {
	rows, err := r.db.Query(ctx, `SELECT rule_id, role_id FROM rule_roles WHERE rule_id = $1 ORDER BY created_at, role_id`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("list roles for rule %s: %w", ruleID, err)
	}
	defer rows.Close()

	var links []domain.RuleRole
	for rows.Next() {
		var link domain.RuleRole
		if err := rows.Scan(&link.RuleID, &link.RoleID); err != nil {
			return nil, fmt.Errorf("scan rule role: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// GetUsersByRole lists the members of a role, including inactive ones.
func (r *PostgresRepository) GetUsersByRole(ctx context.Context, roleID uuid.UUID) ([]domain.User, error) {
	query := `
		SELECT u.id, u.name, u.dud, u.is_active
		FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		WHERE ur.role_id = $1
		ORDER BY ur.created_at, u.id
	`
	rows, err := r.db.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("list users for role %s: %w", roleID, err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Dud, &u.IsActive); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindByCompanyID returns the company's notification configuration, or nil.
func (r *PostgresRepository) FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*domain.Configuration, error) {
	query := `
		SELECT id, company_id, notification_url, COALESCE(auth_token, ''), is_active
		FROM configurations
		WHERE company_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var cfg domain.Configuration
	err := r.db.QueryRow(ctx, query, companyID).Scan(&cfg.ID, &cfg.CompanyID, &cfg.NotificationURL, &cfg.AuthToken, &cfg.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find configuration for company %s: %w", companyID, err)
	}
	return &cfg, nil
}
