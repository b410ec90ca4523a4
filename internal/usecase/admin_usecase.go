package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
)

type adminUsecase struct {
	adminRepo   domain.AdminRepository
	companyRepo domain.CompanyRepository
	userRepo    domain.UserRepository
	auditRepo   domain.AuditRepository
	billing     domain.BillingUsecase
	audit       domain.AuditLogger
}

func NewAdminUsecase(
	adminRepo domain.AdminRepository,
	companyRepo domain.CompanyRepository,
	userRepo domain.UserRepository,
	auditRepo domain.AuditRepository,
	billing domain.BillingUsecase,
	audit domain.AuditLogger,
) domain.AdminUsecase {
	return &adminUsecase{
		adminRepo:   adminRepo,
		companyRepo: companyRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		billing:     billing,
		audit:       audit,
	}
}

// GetStats returns dashboard statistics
func (u *adminUsecase) GetStats(ctx context.Context) (*domain.AdminStats, error) {
	if _, err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}

	stats, err := u.adminRepo.GetStats(ctx)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("fetch statistics: %w", err))
	}
	return stats, nil
}

// ListCompanies returns paginated companies
func (u *adminUsecase) ListCompanies(ctx context.Context, status domain.CompanyStatus, search string, page, pageSize int) (*domain.PaginatedResult[domain.AdminCompany], error) {
	if _, err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}

	pg := domain.NewPage(page, pageSize)
	companies, total, err := u.adminRepo.ListCompanies(ctx, domain.AdminCompanyFilter{Status: status, Search: search, Page: pg})
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("fetch companies: %w", err))
	}
	return domain.NewPaginatedResult(companies, total, pg), nil
}

// SuspendCompany suspends or reactivates a tenant. Members of a suspended
// company are rejected on their next request.
func (u *adminUsecase) SuspendCompany(ctx context.Context, id uuid.UUID, req domain.SuspendCompanyRequest) (*domain.Company, error) {
	p, err := u.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	status := domain.CompanyStatusActive
	if req.Suspend {
		status = domain.CompanyStatusSuspended
	}
	if err := u.companyRepo.SetStatus(ctx, id, status); err != nil {
		return nil, notFound(err, "Company not found")
	}
	company, err := u.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Company not found")
	}

	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditCompanySuspended, SubjectType: "company", SubjectValue: id.String(),
		Details: map[string]any{"suspended": req.Suspend, "reason": req.Reason, "by": p.UserID.String()},
	})
	return company, nil
}

func (u *adminUsecase) SetCompanyPlan(ctx context.Context, id uuid.UUID, planCode string) (*domain.Subscription, error) {
	if _, err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if _, err := u.companyRepo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, "Company not found")
	}
	return u.billing.SetPlan(ctx, id, planCode)
}

// ListUsers returns paginated users
func (u *adminUsecase) ListUsers(ctx context.Context, role domain.Role, page, pageSize int) (*domain.PaginatedResult[domain.AdminUser], error) {
	if _, err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}

	pg := domain.NewPage(page, pageSize)
	users, total, err := u.adminRepo.ListUsers(ctx, role, pg)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("fetch users: %w", err))
	}
	return domain.NewPaginatedResult(users, total, pg), nil
}

// DisableUser enables or disables a user
func (u *adminUsecase) DisableUser(ctx context.Context, id uuid.UUID, disable bool) (*domain.User, error) {
	p, err := u.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if id == p.UserID {
		return nil, apperror.BadRequest("You cannot disable your own account")
	}

	user, err := u.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	user.IsDisabled = disable
	if err := u.userRepo.Update(ctx, user); err != nil {
		return nil, notFound(err, "User not found")
	}

	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditUserDisabled, SubjectType: "user", SubjectValue: id.String(),
		Details: map[string]any{"disabled": disable, "by": p.UserID.String()},
	})
	return user, nil
}

func (u *adminUsecase) ListAuditEvents(ctx context.Context, page, pageSize int) (*domain.PaginatedResult[domain.AuditEvent], error) {
	if _, err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}

	pg := domain.NewPage(page, pageSize)
	events, total, err := u.auditRepo.List(ctx, pg)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("fetch audit events: %w", err))
	}
	return domain.NewPaginatedResult(events, total, pg), nil
}

// requireAdmin checks that the caller is a super admin
func (u *adminUsecase) requireAdmin(ctx context.Context) (*domain.Principal, error) {
	p, err := mustPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.HasRole(domain.RoleSuperAdmin) {
		return nil, apperror.Forbidden("Admin access required")
	}
	return p, nil
}
