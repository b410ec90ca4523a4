package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/auth"
)

type teamUsecase struct {
	userRepo    domain.UserRepository
	companyRepo domain.CompanyRepository
	quota       domain.QuotaChecker
	hasher      domain.PasswordHasher
	jobs        domain.JobQueue
	audit       domain.AuditLogger
	loginURL    string
}

func NewTeamUsecase(
	userRepo domain.UserRepository,
	companyRepo domain.CompanyRepository,
	quota domain.QuotaChecker,
	hasher domain.PasswordHasher,
	jobs domain.JobQueue,
	audit domain.AuditLogger,
	frontendURL string,
) domain.TeamUsecase {
	return &teamUsecase{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		quota:       quota,
		hasher:      hasher,
		jobs:        jobs,
		audit:       audit,
		loginURL:    frontendURL + "/login",
	}
}

func (u *teamUsecase) ListMembers(ctx context.Context, page, pageSize int) (*domain.PaginatedResult[domain.User], error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	pg := domain.NewPage(page, pageSize)
	users, total, err := u.userRepo.ListByCompany(ctx, p.CompanyID, pg)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(users, total, pg), nil
}

// InviteMember creates the account with a temporary password that is emailed to the invitee.
func (u *teamUsecase) InviteMember(ctx context.Context, req domain.InviteMemberRequest) (*domain.User, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := u.quota.CheckSeatQuota(ctx, p.CompanyID); err != nil {
		return nil, err
	}

	tempPassword, err := auth.RandomPassword(16)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	hash, err := u.hasher.Hash(tempPassword)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		CompanyID:    &p.CompanyID,
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: hash,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	companyName := ""
	if company, err := u.companyRepo.GetByID(ctx, p.CompanyID); err == nil {
		companyName = company.Name
	}
	inviter := p.Email
	if me, err := u.userRepo.GetByID(ctx, p.UserID); err == nil {
		inviter = me.Name
	}
	warnOnErr(ctx, u.jobs.EnqueueEmail(ctx, domain.EmailMessage{
		Kind:    domain.EmailTeamInvite,
		To:      user.Email,
		Name:    user.Name,
		Subject: "You have been invited to " + companyName + " on Gradii",
		Data: map[string]string{
			"CompanyName":  companyName,
			"InviterName":  inviter,
			"Role":         string(user.Role),
			"TempPassword": tempPassword,
			"LoginURL":     u.loginURL,
		},
	}), "failed to enqueue team invite", zap.Stringer("user_id", user.ID))

	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditUserInvited, SubjectType: "user", SubjectValue: user.ID.String(),
		Details: map[string]any{"role": user.Role, "invited_by": p.UserID.String()},
	})
	return user, nil
}

// member loads a user of the caller's company; other tenants' users look missing.
func (u *teamUsecase) member(ctx context.Context, p *domain.Principal, userID uuid.UUID) (*domain.User, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	if user.CompanyID == nil || *user.CompanyID != p.CompanyID {
		return nil, apperror.NotFound("User not found")
	}
	return user, nil
}

func (u *teamUsecase) ChangeRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if userID == p.UserID {
		return nil, apperror.BadRequest("You cannot change your own role")
	}
	if !role.IsCompanyRole() {
		return nil, apperror.BadRequest("Invalid role")
	}
	user, err := u.member(ctx, p, userID)
	if err != nil {
		return nil, err
	}
	if (role == domain.RoleOwner || user.Role == domain.RoleOwner) && p.Role != domain.RoleOwner {
		return nil, apperror.Forbidden("Only owners can grant or revoke the owner role")
	}

	previous := user.Role
	user.Role = role
	if err := u.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditRoleChanged, SubjectType: "user", SubjectValue: user.ID.String(),
		Details: map[string]any{"from": previous, "to": role, "changed_by": p.UserID.String()},
	})
	return user, nil
}

func (u *teamUsecase) SetDisabled(ctx context.Context, userID uuid.UUID, disabled bool) (*domain.User, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if userID == p.UserID {
		return nil, apperror.BadRequest("You cannot disable your own account")
	}
	user, err := u.member(ctx, p, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleOwner && p.Role != domain.RoleOwner {
		return nil, apperror.Forbidden("Only owners can disable an owner")
	}
	if !disabled && user.IsDisabled {
		if err := u.quota.CheckSeatQuota(ctx, p.CompanyID); err != nil {
			return nil, err
		}
	}

	user.IsDisabled = disabled
	if err := u.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if disabled {
		u.audit.Log(ctx, domain.AuditEvent{
			Type: domain.AuditUserDisabled, SubjectType: "user", SubjectValue: user.ID.String(),
			Details: map[string]any{"disabled_by": p.UserID.String()},
		})
	}
	return user, nil
}
