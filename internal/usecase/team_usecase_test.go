package usecase_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/internal/usecase"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
)

type teamFixture struct {
	users     *MockUserRepo
	companies *MockCompanyRepo
	quota     *MockQuota
	jobs      *MockJobs
	audit     *auditRecorder
	uc        domain.TeamUsecase
}

func newTeamFixture() *teamFixture {
	f := &teamFixture{
		users:     new(MockUserRepo),
		companies: new(MockCompanyRepo),
		quota:     new(MockQuota),
		jobs:      new(MockJobs),
		audit:     &auditRecorder{},
	}
	f.uc = usecase.NewTeamUsecase(f.users, f.companies, f.quota, plainHasher{}, f.jobs, f.audit, "https://app.gradii.test")
	return f
}

func TestInviteMember(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleAdmin)
	req := domain.InviteMemberRequest{Name: "Bo Chen", Email: "bo@acme.test", Role: domain.RoleInterviewer}

	t.Run("emails a temporary password", func(t *testing.T) {
		f := newTeamFixture()
		var created *domain.User
		f.quota.On("CheckSeatQuota", ctx, companyID).Return(nil)
		f.users.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.User)
		}).Return(nil)
		f.companies.On("GetByID", ctx, companyID).Return(&domain.Company{Name: "Acme"}, nil)
		f.users.On("GetByID", ctx, mock.Anything).Return(&domain.User{Name: "Jane"}, nil)
		f.jobs.On("EnqueueEmail", ctx, mock.MatchedBy(func(m domain.EmailMessage) bool {
			return m.Kind == domain.EmailTeamInvite && m.To == "bo@acme.test" && m.Data["InviterName"] == "Jane" &&
				m.Data["LoginURL"] == "https://app.gradii.test/login" &&
				created != nil && created.PasswordHash == "hashed:"+m.Data["TempPassword"]
		})).Return(nil)

		user, err := f.uc.InviteMember(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleInterviewer, user.Role)
		assert.Equal(t, companyID, *user.CompanyID)
		assert.True(t, strings.HasPrefix(user.PasswordHash, "hashed:"))
		assert.Equal(t, []domain.AuditEventType{domain.AuditUserInvited}, f.audit.types())
		f.jobs.AssertExpectations(t)
	})

	t.Run("seat limit", func(t *testing.T) {
		f := newTeamFixture()
		f.quota.On("CheckSeatQuota", ctx, companyID).Return(apperror.PaymentRequired("seats"))

		_, err := f.uc.InviteMember(ctx, req)
		assert.Equal(t, http.StatusPaymentRequired, apperror.CodeOf(err))
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestChangeRole(t *testing.T) {
	companyID := uuid.New()
	selfID := uuid.New()
	memberID := uuid.New()

	as := func(role domain.Role) context.Context {
		return domain.WithPrincipal(context.Background(), &domain.Principal{UserID: selfID, CompanyID: companyID, Role: role})
	}

	tests := []struct {
		name     string
		caller   domain.Role
		target   domain.Role
		newRole  domain.Role
		targetID uuid.UUID
		company  uuid.UUID
		code     int
	}{
		{"admin promotes recruiter", domain.RoleAdmin, domain.RoleRecruiter, domain.RoleAdmin, memberID, companyID, 0},
		{"self", domain.RoleOwner, domain.RoleOwner, domain.RoleAdmin, selfID, companyID, http.StatusBadRequest},
		{"admin cannot grant owner", domain.RoleAdmin, domain.RoleRecruiter, domain.RoleOwner, memberID, companyID, http.StatusForbidden},
		{"admin cannot demote owner", domain.RoleAdmin, domain.RoleOwner, domain.RoleAdmin, memberID, companyID, http.StatusForbidden},
		{"owner grants owner", domain.RoleOwner, domain.RoleAdmin, domain.RoleOwner, memberID, companyID, 0},
		{"super admin is not a company role", domain.RoleOwner, domain.RoleAdmin, domain.RoleSuperAdmin, memberID, companyID, http.StatusBadRequest},
		{"other tenant", domain.RoleOwner, domain.RoleAdmin, domain.RoleRecruiter, memberID, uuid.New(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTeamFixture()
			ctx := as(tt.caller)
			target := &domain.User{ID: tt.targetID, CompanyID: &tt.company, Role: tt.target}
			f.users.On("GetByID", ctx, tt.targetID).Return(target, nil)
			f.users.On("Update", ctx, target).Return(nil)

			user, err := f.uc.ChangeRole(ctx, tt.targetID, tt.newRole)
			if tt.code != 0 {
				assert.Equal(t, tt.code, apperror.CodeOf(err))
				f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.newRole, user.Role)
			assert.Equal(t, []domain.AuditEventType{domain.AuditRoleChanged}, f.audit.types())
		})
	}
}

func TestSetDisabled(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleAdmin)
	memberID := uuid.New()

	t.Run("disable audits", func(t *testing.T) {
		f := newTeamFixture()
		target := &domain.User{ID: memberID, CompanyID: &companyID, Role: domain.RoleRecruiter}
		f.users.On("GetByID", ctx, memberID).Return(target, nil)
		f.users.On("Update", ctx, target).Return(nil)

		user, err := f.uc.SetDisabled(ctx, memberID, true)
		require.NoError(t, err)
		assert.True(t, user.IsDisabled)
		assert.Equal(t, []domain.AuditEventType{domain.AuditUserDisabled}, f.audit.types())
	})

	t.Run("re-enabling takes a seat", func(t *testing.T) {
		f := newTeamFixture()
		target := &domain.User{ID: memberID, CompanyID: &companyID, Role: domain.RoleRecruiter, IsDisabled: true}
		f.users.On("GetByID", ctx, memberID).Return(target, nil)
		f.quota.On("CheckSeatQuota", ctx, companyID).Return(apperror.PaymentRequired("seats"))

		_, err := f.uc.SetDisabled(ctx, memberID, false)
		assert.Equal(t, http.StatusPaymentRequired, apperror.CodeOf(err))
	})
}
