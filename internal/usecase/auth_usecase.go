package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

const invalidCredentials = "Invalid email or password"

type authUsecase struct {
	userRepo    domain.UserRepository
	companyRepo domain.CompanyRepository
	ssoRepo     domain.SSORepository
	billing     domain.BillingUsecase
	tx          domain.Transactor
	tokens      domain.TokenService
	hasher      domain.PasswordHasher
	totp        domain.TOTPProvider
	guard       domain.LoginGuard
	audit       domain.AuditLogger
}

type AuthDeps struct {
	Users     domain.UserRepository
	Companies domain.CompanyRepository
	SSO       domain.SSORepository
	Billing   domain.BillingUsecase
	Tx        domain.Transactor
	Tokens    domain.TokenService
	Hasher    domain.PasswordHasher
	TOTP      domain.TOTPProvider
	Guard     domain.LoginGuard
	Audit     domain.AuditLogger
}

func NewAuthUsecase(d AuthDeps) domain.AuthUsecase {
	return &authUsecase{
		userRepo:    d.Users,
		companyRepo: d.Companies,
		ssoRepo:     d.SSO,
		billing:     d.Billing,
		tx:          d.Tx,
		tokens:      d.Tokens,
		hasher:      d.Hasher,
		totp:        d.TOTP,
		guard:       d.Guard,
		audit:       d.Audit,
	}
}

func (u *authUsecase) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	if _, err := u.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("User with this email already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := u.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	var owner *domain.User
	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		slug, err := u.uniqueSlug(ctx, req.CompanyName)
		if err != nil {
			return err
		}
		company := &domain.Company{Name: req.CompanyName, Slug: slug, Status: domain.CompanyStatusActive}
		if err := u.companyRepo.Create(ctx, company); err != nil {
			return err
		}

		owner = &domain.User{
			CompanyID:    &company.ID,
			Email:        req.Email,
			Name:         req.Name,
			Role:         domain.RoleOwner,
			PasswordHash: hash,
		}
		if err := u.userRepo.Create(ctx, owner); err != nil {
			return err
		}

		_, err = u.billing.StartTrial(ctx, company.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "company registered", zap.Stringer("company_id", *owner.CompanyID))
	return u.IssueFor(ctx, owner)
}

// uniqueSlug appends a numeric suffix until the slug is free.
func (u *authUsecase) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slugify(name)
	slug := base
	for i := 2; i <= 20; i++ {
		exists, err := u.companyRepo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

func (u *authUsecase) Login(ctx context.Context, req domain.LoginRequest, clientIP string) (*domain.AuthResult, error) {
	blocked, err := u.guard.IsBlocked(ctx, req.Email, clientIP)
	warnOnErr(ctx, err, "login block check failed")
	if blocked {
		u.audit.Log(ctx, domain.AuditEvent{Type: domain.AuditLoginBlocked, SubjectType: "email", SubjectValue: req.Email, IP: clientIP})
		return nil, apperror.TooManyRequests("Too many failed login attempts, try again later")
	}

	user, err := u.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, u.loginFailed(ctx, req.Email, clientIP, "unknown_email")
		}
		return nil, err
	}
	if user.PasswordHash == "" || !u.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, u.loginFailed(ctx, req.Email, clientIP, "bad_password")
	}
	if user.IsDisabled {
		return nil, apperror.Forbidden("Account is disabled")
	}

	if user.CompanyID != nil {
		company, err := u.companyRepo.GetByID(ctx, *user.CompanyID)
		if err != nil {
			return nil, err
		}
		if company.Status == domain.CompanyStatusSuspended {
			return nil, apperror.Forbidden("Company is suspended")
		}
		cfg, err := u.ssoRepo.GetByCompany(ctx, company.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if cfg != nil && cfg.Enabled && cfg.Enforce {
			return nil, apperror.Forbidden("SSO required")
		}
	}

	if user.Role == domain.RoleSuperAdmin && user.TOTPEnabled {
		if req.TOTPCode == "" {
			return nil, apperror.Unauthorized("TOTP code required")
		}
		if !u.totp.Validate(req.TOTPCode, user.TOTPSecret) {
			return nil, u.loginFailed(ctx, req.Email, clientIP, "bad_totp")
		}
	}

	warnOnErr(ctx, u.guard.Clear(ctx, req.Email, clientIP), "failed to clear login attempts")
	warnOnErr(ctx, u.userRepo.TouchLogin(ctx, user.ID, time.Now().UTC()), "failed to record last login")
	u.audit.Log(ctx, domain.AuditEvent{Type: domain.AuditLoginSuccess, SubjectType: "user", SubjectValue: user.ID.String(), IP: clientIP})

	return u.IssueFor(ctx, user)
}

func (u *authUsecase) loginFailed(ctx context.Context, email, ip, reason string) error {
	blocked, err := u.guard.RecordFailure(ctx, email, ip)
	warnOnErr(ctx, err, "failed to record login failure")

	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditLoginFailed, SubjectType: "email", SubjectValue: email, IP: ip,
		Details: map[string]any{"reason": reason},
	})
	if blocked {
		u.audit.Log(ctx, domain.AuditEvent{Type: domain.AuditLoginBlocked, SubjectType: "email", SubjectValue: email, IP: ip})
	}
	return apperror.Unauthorized(invalidCredentials)
}

func (u *authUsecase) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	userID, err := u.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid or expired refresh token")
	}
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.Unauthorized("Invalid or expired refresh token")
		}
		return nil, err
	}
	if user.IsDisabled {
		return nil, apperror.Unauthorized("Account is disabled")
	}
	return u.IssueFor(ctx, user)
}

func (u *authUsecase) Me(ctx context.Context) (*domain.Me, error) {
	p, err := mustPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	user, err := u.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	me := &domain.Me{User: user}
	if user.CompanyID != nil {
		if me.Company, err = u.companyRepo.GetByID(ctx, *user.CompanyID); err != nil {
			return nil, notFound(err, "Company not found")
		}
	}
	return me, nil
}

// Authenticate never trusts the role in the token: it is read from the database.
func (u *authUsecase) Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error) {
	userID, err := u.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid or expired token")
	}
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.Unauthorized("Invalid or expired token")
		}
		return nil, err
	}
	if user.IsDisabled {
		return nil, apperror.Forbidden("Account is disabled")
	}

	p := &domain.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}
	if user.CompanyID != nil {
		company, err := u.companyRepo.GetByID(ctx, *user.CompanyID)
		if err != nil {
			return nil, err
		}
		if company.Status == domain.CompanyStatusSuspended {
			return nil, apperror.Forbidden("Company is suspended")
		}
		p.CompanyID = company.ID
	}
	return p, nil
}

func (u *authUsecase) IssueFor(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	companyID := uuid.Nil
	if user.CompanyID != nil {
		companyID = *user.CompanyID
	}
	access, refresh, expiresAt, err := u.tokens.IssueSession(user.ID, companyID, string(user.Role))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	result := &domain.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         user,
	}
	if user.CompanyID != nil {
		if result.Company, err = u.companyRepo.GetByID(ctx, *user.CompanyID); err != nil {
			return nil, err
		}
	}
	return result, nil
}
