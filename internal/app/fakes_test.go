package app

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/jaldanatrf/assignment-service/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// fakeStore is an in-memory implementation of every repository the engine reads or writes.
type fakeStore struct {
	mu sync.Mutex

	companies      []domain.Company
	rules          map[uuid.UUID][]domain.Rule
	ruleRoles      map[uuid.UUID][]domain.RuleRole
	roleUsers      map[uuid.UUID][]domain.User
	configurations map[uuid.UUID]*domain.Configuration
	assignedCounts map[uuid.UUID]int

	created []domain.Assignment

	findCompanyErr error
	rulesErr       error
	countErr       error
	createErr      error
	configErr      error

	findAllCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rules:          make(map[uuid.UUID][]domain.Rule),
		ruleRoles:      make(map[uuid.UUID][]domain.RuleRole),
		roleUsers:      make(map[uuid.UUID][]domain.User),
		configurations: make(map[uuid.UUID]*domain.Configuration),
		assignedCounts: make(map[uuid.UUID]int),
	}
}

var (
	_ store.AssignmentRepository    = (*fakeStore)(nil)
	_ store.CompanyRepository       = (*fakeStore)(nil)
	_ store.RuleRepository          = (*fakeStore)(nil)
	_ store.RuleRoleRepository      = (*fakeStore)(nil)
	_ store.UserRoleRepository      = (*fakeStore)(nil)
	_ store.ConfigurationRepository = (*fakeStore)(nil)
)

func (f *fakeStore) Create(_ context.Context, a *domain.Assignment) (*domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	saved := *a
	saved.CreatedAt = a.StartDate
	saved.UpdatedAt = a.StartDate
	f.created = append(f.created, saved)
	return &saved, nil
}

func (f *fakeStore) Count(_ context.Context, filter store.AssignmentFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	if filter.UserID == nil || filter.Status != domain.AssignmentStatusAssigned {
		return 0, nil
	}
	return f.assignedCounts[*filter.UserID], nil
}

func (f *fakeStore) FindByDocumentNumber(_ context.Context, documentNumber string) (*domain.Company, error) {
	if f.findCompanyErr != nil {
		return nil, f.findCompanyErr
	}
	for i := range f.companies {
		if f.companies[i].DocumentNumber == documentNumber {
			c := f.companies[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindAll(context.Context) ([]domain.Company, error) {
	f.findAllCalls++
	return append([]domain.Company(nil), f.companies...), nil
}

func (f *fakeStore) FindByCompany(_ context.Context, companyID uuid.UUID) ([]domain.Rule, error) {
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	return f.rules[companyID], nil
}

func (f *fakeStore) FindByRuleID(_ context.Context, ruleID uuid.UUID) ([]domain.RuleRole, error) {
	return f.ruleRoles[ruleID], nil
}

func (f *fakeStore) GetUsersByRole(_ context.Context, roleID uuid.UUID) ([]domain.User, error) {
	return f.roleUsers[roleID], nil
}

func (f *fakeStore) FindByCompanyID(_ context.Context, companyID uuid.UUID) (*domain.Configuration, error) {
	if f.configErr != nil {
		return nil, f.configErr
	}
	return f.configurations[companyID], nil
}

func (f *fakeStore) addCompany(document string) domain.Company {
	c := domain.Company{ID: uuid.New(), Name: "Company " + document, DocumentNumber: document, DocumentType: "NIT", IsActive: true}
	f.companies = append(f.companies, c)
	return c
}

// addRule stores rule for company and links it to a fresh role holding users.
func (f *fakeStore) addRule(company domain.Company, rule domain.Rule, users ...domain.User) domain.Rule {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.CompanyID = company.ID
	f.rules[company.ID] = append(f.rules[company.ID], rule)

	roleID := uuid.New()
	f.ruleRoles[rule.ID] = append(f.ruleRoles[rule.ID], domain.RuleRole{RuleID: rule.ID, RoleID: roleID})
	f.roleUsers[roleID] = users
	return rule
}

func (f *fakeStore) createdAssignments() []domain.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Assignment(nil), f.created...)
}

func newUser(name string) domain.User {
	return domain.User{ID: uuid.New(), Name: name, Dud: "DUD-" + name, IsActive: true}
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func testClaim() domain.Claim {
	return domain.Claim{
		ProcessID:      "PROC-1",
		Target:         "800000513",
		Source:         "900000514",
		DocumentNumber: "FAC-001",
		InvoiceAmount:  decimal.RequireFromString("3000000"),
		ClaimID:        "CLM-1",
		ObjectionCode:  "OBJ-001",
		Value:          decimal.RequireFromString("150000"),
	}
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func newTestProcessor(t *testing.T, fs *fakeStore) *RuleProcessor {
	t.Helper()
	logger, _ := newTestLogger()
	return NewRuleProcessor(fs, fs, fs, fs, logger)
}
