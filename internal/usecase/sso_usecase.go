package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
	"github.com/Gradiiai/gradii-sub007/pkg/sso"
)

type ssoUsecase struct {
	repo        domain.SSORepository
	companyRepo domain.CompanyRepository
	userRepo    domain.UserRepository
	quota       domain.QuotaChecker
	providers   *sso.Service
	state       domain.StateSigner
	auth        domain.AuthUsecase
	audit       domain.AuditLogger
}

type SSODeps struct {
	SSO       domain.SSORepository
	Companies domain.CompanyRepository
	Users     domain.UserRepository
	Quota     domain.QuotaChecker
	Providers *sso.Service
	State     domain.StateSigner
	Auth      domain.AuthUsecase
	Audit     domain.AuditLogger
}

func NewSSOUsecase(d SSODeps) domain.SSOUsecase {
	return &ssoUsecase{
		repo:        d.SSO,
		companyRepo: d.Companies,
		userRepo:    d.Users,
		quota:       d.Quota,
		providers:   d.Providers,
		state:       d.State,
		auth:        d.Auth,
		audit:       d.Audit,
	}
}

func (u *ssoUsecase) GetConfig(ctx context.Context) (*domain.SSOConfig, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := u.repo.GetByCompany(ctx, p.CompanyID)
	if err != nil {
		return nil, notFound(err, "SSO is not configured")
	}
	return cfg, nil
}

func (u *ssoUsecase) SaveConfig(ctx context.Context, input domain.SSOConfigInput) (*domain.SSOConfig, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := u.quota.RequireSSO(ctx, p.CompanyID); err != nil {
		return nil, err
	}

	cfg, err := u.repo.GetByCompany(ctx, p.CompanyID)
	if errors.Is(err, domain.ErrNotFound) {
		cfg = &domain.SSOConfig{CompanyID: p.CompanyID}
	} else if err != nil {
		return nil, err
	}

	cfg.Protocol = input.Protocol
	cfg.Enabled = input.Enabled
	cfg.Enforce = input.Enforce
	cfg.SAMLIdPMetadataXML = strings.TrimSpace(input.SAMLIdPMetadataXML)
	cfg.SAMLIdPMetadataURL = input.SAMLIdPMetadataURL
	cfg.OAuthProvider = input.OAuthProvider
	cfg.OAuthClientID = input.OAuthClientID
	if input.OAuthClientSecret != "" {
		cfg.OAuthClientSecret = input.OAuthClientSecret
	}
	cfg.OAuthIssuer = input.OAuthIssuer
	cfg.AllowedDomains = normalizeDomains(input.AllowedDomains)
	cfg.DefaultRole = input.DefaultRole
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleRecruiter
	}

	if err := u.validateConfig(ctx, p.CompanyID, cfg); err != nil {
		return nil, err
	}
	if err := u.repo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditSSOConfigChanged, SubjectType: "company", SubjectValue: p.CompanyID.String(),
		Details: map[string]any{"protocol": cfg.Protocol, "enabled": cfg.Enabled, "enforce": cfg.Enforce, "by": p.UserID.String()},
	})
	return cfg, nil
}

// validateConfig builds the provider once so broken metadata is reported at save time.
func (u *ssoUsecase) validateConfig(ctx context.Context, companyID uuid.UUID, cfg *domain.SSOConfig) error {
	switch cfg.Protocol {
	case domain.SSOProtocolSAML:
		if cfg.SAMLIdPMetadataXML == "" && cfg.SAMLIdPMetadataURL == "" {
			return apperror.BadRequest("saml_idp_metadata_xml: metadata XML or URL is required")
		}
		company, err := u.companyRepo.GetByID(ctx, companyID)
		if err != nil {
			return err
		}
		if _, err := u.providers.SAML(ctx, company.Slug, cfg); err != nil {
			return apperror.BadRequest(err.Error())
		}
	case domain.SSOProtocolOAuth:
		if cfg.OAuthProvider == "" {
			return apperror.BadRequest("oauth_provider: is required")
		}
		if cfg.OAuthProvider == domain.OAuthProviderOIDC && cfg.OAuthIssuer == "" {
			return apperror.BadRequest("oauth_issuer: is required for oidc")
		}
		if cfg.OAuthProvider != domain.OAuthProviderGoogle && (cfg.OAuthClientID == "" || cfg.OAuthClientSecret == "") {
			return apperror.BadRequest("oauth_client_id: client id and secret are required")
		}
	}
	if cfg.Enforce && !cfg.Enabled {
		return apperror.BadRequest("enforce: SSO must be enabled to be enforced")
	}
	return nil
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func (u *ssoUsecase) DeleteConfig(ctx context.Context) error {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return err
	}
	if err := u.repo.Delete(ctx, p.CompanyID); err != nil {
		return notFound(err, "SSO is not configured")
	}
	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditSSOConfigChanged, SubjectType: "company", SubjectValue: p.CompanyID.String(),
		Details: map[string]any{"deleted": true, "by": p.UserID.String()},
	})
	return nil
}

// enabledConfig loads a company and its active SSO configuration by slug.
func (u *ssoUsecase) enabledConfig(ctx context.Context, slug string) (*domain.Company, *domain.SSOConfig, error) {
	company, err := u.companyRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, notFound(err, "Company not found")
	}
	if company.Status == domain.CompanyStatusSuspended {
		return nil, nil, apperror.Forbidden("Company account is suspended")
	}
	cfg, err := u.repo.GetByCompany(ctx, company.ID)
	if err != nil {
		return nil, nil, notFound(err, "SSO is not configured for this company")
	}
	if !cfg.Enabled {
		return nil, nil, apperror.NotFound("SSO is not enabled for this company")
	}
	return company, cfg, nil
}

func (u *ssoUsecase) Begin(ctx context.Context, companySlug string) (string, error) {
	company, cfg, err := u.enabledConfig(ctx, companySlug)
	if err != nil {
		return "", err
	}

	requestID := "id-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	state, err := u.state.IssueState(company.ID, requestID)
	if err != nil {
		return "", apperror.Internal(err)
	}

	switch cfg.Protocol {
	case domain.SSOProtocolSAML:
		provider, err := u.providers.SAML(ctx, company.Slug, cfg)
		if err != nil {
			return "", apperror.BadGateway("Identity provider is not reachable", err)
		}
		redirect, err := provider.AuthURLWithID(requestID, state)
		if err != nil {
			return "", apperror.BadGateway("Identity provider is not reachable", err)
		}
		return redirect, nil
	default:
		provider, err := u.providers.OAuth(ctx, cfg)
		if err != nil {
			return "", apperror.BadGateway("Identity provider is not reachable", err)
		}
		return provider.AuthURL(state, requestID), nil
	}
}

func (u *ssoUsecase) CompleteSAML(ctx context.Context, companySlug string, r *http.Request) (*domain.AuthResult, error) {
	company, cfg, err := u.enabledConfig(ctx, companySlug)
	if err != nil {
		return nil, err
	}
	if cfg.Protocol != domain.SSOProtocolSAML {
		return nil, apperror.BadRequest("Company does not use SAML")
	}
	if err := r.ParseForm(); err != nil {
		return nil, apperror.BadRequest("Malformed SAML response")
	}
	companyID, requestID, err := u.state.ParseState(r.PostForm.Get("RelayState"))
	if err != nil || companyID != company.ID {
		return nil, u.failed(ctx, company.ID, "invalid relay state", err)
	}

	provider, err := u.providers.SAML(ctx, company.Slug, cfg)
	if err != nil {
		return nil, apperror.BadGateway("Identity provider is not reachable", err)
	}
	identity, err := provider.ParseResponse(r, requestID)
	if err != nil {
		return nil, u.failed(ctx, company.ID, "invalid assertion", err)
	}
	return u.signIn(ctx, company, cfg, identity, domain.SSOProtocolSAML)
}

func (u *ssoUsecase) CompleteOAuth(ctx context.Context, code, state string) (*domain.AuthResult, error) {
	companyID, nonce, err := u.state.ParseState(state)
	if err != nil {
		return nil, u.failed(ctx, uuid.Nil, "invalid state", err)
	}
	company, err := u.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, notFound(err, "Company not found")
	}
	_, cfg, err := u.enabledConfig(ctx, company.Slug)
	if err != nil {
		return nil, err
	}
	if cfg.Protocol != domain.SSOProtocolOAuth {
		return nil, apperror.BadRequest("Company does not use OAuth")
	}

	provider, err := u.providers.OAuth(ctx, cfg)
	if err != nil {
		return nil, apperror.BadGateway("Identity provider is not reachable", err)
	}
	identity, err := provider.Exchange(ctx, code, nonce)
	if err != nil {
		return nil, u.failed(ctx, company.ID, "code exchange failed", err)
	}
	return u.signIn(ctx, company, cfg, identity, domain.SSOProtocolOAuth)
}

func (u *ssoUsecase) failed(ctx context.Context, companyID uuid.UUID, reason string, err error) error {
	logger.Warn(ctx, "sso sign-in failed", zap.String("reason", reason), zap.Error(err))
	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditSSOFailed, Level: "warn", SubjectType: "company", SubjectValue: companyID.String(),
		Details: map[string]any{"reason": reason},
	})
	return apperror.Unauthorized("SSO sign-in failed")
}

// signIn finds the user by email inside the company or provisions one with the default role.
func (u *ssoUsecase) signIn(ctx context.Context, company *domain.Company, cfg *domain.SSOConfig, identity *domain.SSOIdentity, protocol domain.SSOProtocol) (*domain.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if !sso.EmailDomainAllowed(email, cfg.AllowedDomains) {
		return nil, u.failed(ctx, company.ID, "email domain not allowed", errors.New(email))
	}

	user, err := u.userRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if user, err = u.provision(ctx, company, cfg, identity, email); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case user.CompanyID == nil || *user.CompanyID != company.ID:
		return nil, apperror.Forbidden("This account belongs to another organization")
	case user.IsDisabled:
		return nil, apperror.Forbidden("Account is disabled")
	}

	warnOnErr(ctx, u.userRepo.TouchLogin(ctx, user.ID, time.Now().UTC()), "failed to record login time")
	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditSSOLogin, SubjectType: "user", SubjectValue: user.ID.String(),
		Details: map[string]any{"company_id": company.ID.String(), "protocol": protocol},
	})
	return u.auth.IssueFor(ctx, user)
}

func (u *ssoUsecase) provision(ctx context.Context, company *domain.Company, cfg *domain.SSOConfig, identity *domain.SSOIdentity, email string) (*domain.User, error) {
	if err := u.quota.CheckSeatQuota(ctx, company.ID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	role := cfg.DefaultRole
	if !role.IsCompanyRole() || role == domain.RoleOwner {
		role = domain.RoleRecruiter
	}
	user := &domain.User{
		CompanyID: &company.ID,
		Email:     email,
		Name:      name,
		Role:      role,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Info(ctx, "provisioned sso user", zap.Stringer("user_id", user.ID), zap.Stringer("company_id", company.ID))
	return user, nil
}

func (u *ssoUsecase) Metadata(ctx context.Context, companySlug string) ([]byte, error) {
	company, err := u.companyRepo.GetBySlug(ctx, companySlug)
	if err != nil {
		return nil, notFound(err, "Company not found")
	}
	provider, err := u.providers.SAML(ctx, company.Slug, nil)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	md, err := provider.Metadata()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return md, nil
}
