package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/internal/usecase"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
)

type ssoFixture struct {
	repo      *MockSSORepo
	companies *MockCompanyRepo
	quota     *MockQuota
	audit     *auditRecorder
	uc        domain.SSOUsecase
}

func newSSOFixture() *ssoFixture {
	f := &ssoFixture{
		repo:      new(MockSSORepo),
		companies: new(MockCompanyRepo),
		quota:     new(MockQuota),
		audit:     &auditRecorder{},
	}
	f.uc = usecase.NewSSOUsecase(usecase.SSODeps{
		SSO:       f.repo,
		Companies: f.companies,
		Users:     new(MockUserRepo),
		Quota:     f.quota,
		Audit:     f.audit,
	})
	return f
}

func TestSaveSSOConfig(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleOwner)

	t.Run("oauth config with defaults", func(t *testing.T) {
		f := newSSOFixture()
		f.quota.On("RequireSSO", ctx, companyID).Return(nil)
		f.repo.On("GetByCompany", ctx, companyID).Return(nil, domain.ErrNotFound)
		f.repo.On("Upsert", ctx, mock.Anything).Return(nil)

		cfg, err := f.uc.SaveConfig(ctx, domain.SSOConfigInput{
			Protocol: domain.SSOProtocolOAuth, Enabled: true, OAuthProvider: domain.OAuthProviderMicrosoft,
			OAuthClientID: "client", OAuthClientSecret: "secret", AllowedDomains: []string{" Acme.TEST ", ""},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleRecruiter, cfg.DefaultRole)
		assert.Equal(t, []string{"acme.test"}, cfg.AllowedDomains)
		assert.Equal(t, []domain.AuditEventType{domain.AuditSSOConfigChanged}, f.audit.types())
	})

	t.Run("empty secret keeps the stored one", func(t *testing.T) {
		f := newSSOFixture()
		f.quota.On("RequireSSO", ctx, companyID).Return(nil)
		f.repo.On("GetByCompany", ctx, companyID).Return(&domain.SSOConfig{
			CompanyID: companyID, Protocol: domain.SSOProtocolOAuth, OAuthClientSecret: "stored",
		}, nil)
		f.repo.On("Upsert", ctx, mock.MatchedBy(func(c *domain.SSOConfig) bool { return c.OAuthClientSecret == "stored" })).Return(nil)

		_, err := f.uc.SaveConfig(ctx, domain.SSOConfigInput{
			Protocol: domain.SSOProtocolOAuth, OAuthProvider: domain.OAuthProviderMicrosoft, OAuthClientID: "client",
		})
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("plan without sso", func(t *testing.T) {
		f := newSSOFixture()
		f.quota.On("RequireSSO", ctx, companyID).Return(apperror.PaymentRequired("SSO is not available on the current plan"))

		_, err := f.uc.SaveConfig(ctx, domain.SSOConfigInput{Protocol: domain.SSOProtocolOAuth})
		assert.Equal(t, http.StatusPaymentRequired, apperror.CodeOf(err))
	})

	invalid := []struct {
		name  string
		input domain.SSOConfigInput
	}{
		{"saml without metadata", domain.SSOConfigInput{Protocol: domain.SSOProtocolSAML, Enabled: true}},
		{"oauth without provider", domain.SSOConfigInput{Protocol: domain.SSOProtocolOAuth}},
		{"oidc without issuer", domain.SSOConfigInput{Protocol: domain.SSOProtocolOAuth, OAuthProvider: domain.OAuthProviderOIDC, OAuthClientID: "c", OAuthClientSecret: "s"}},
		{"microsoft without secret", domain.SSOConfigInput{Protocol: domain.SSOProtocolOAuth, OAuthProvider: domain.OAuthProviderMicrosoft, OAuthClientID: "c"}},
		{"enforced but disabled", domain.SSOConfigInput{Protocol: domain.SSOProtocolOAuth, OAuthProvider: domain.OAuthProviderGoogle, Enforce: true}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newSSOFixture()
			f.quota.On("RequireSSO", ctx, companyID).Return(nil)
			f.repo.On("GetByCompany", ctx, companyID).Return(nil, domain.ErrNotFound)

			_, err := f.uc.SaveConfig(ctx, tt.input)
			assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
			f.repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestBeginSSO(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("suspended company", func(t *testing.T) {
		f := newSSOFixture()
		f.companies.On("GetBySlug", ctx, "acme").Return(&domain.Company{ID: companyID, Status: domain.CompanyStatusSuspended}, nil)

		_, err := f.uc.Begin(ctx, "acme")
		assert.Equal(t, http.StatusForbidden, apperror.CodeOf(err))
	})

	t.Run("not enabled", func(t *testing.T) {
		f := newSSOFixture()
		f.companies.On("GetBySlug", ctx, "acme").Return(&domain.Company{ID: companyID, Status: domain.CompanyStatusActive}, nil)
		f.repo.On("GetByCompany", ctx, companyID).Return(&domain.SSOConfig{Enabled: false}, nil)

		_, err := f.uc.Begin(ctx, "acme")
		assert.Equal(t, http.StatusNotFound, apperror.CodeOf(err))
	})

	t.Run("unknown company", func(t *testing.T) {
		f := newSSOFixture()
		f.companies.On("GetBySlug", ctx, "nope").Return(nil, domain.ErrNotFound)

		_, err := f.uc.Begin(ctx, "nope")
		assert.Equal(t, http.StatusNotFound, apperror.CodeOf(err))
	})
}

func TestGetSSOConfigMissing(t *testing.T) {
	companyID := uuid.New()
	ctx := principalCtx(companyID, domain.RoleOwner)

	f := newSSOFixture()
	f.repo.On("GetByCompany", ctx, companyID).Return(nil, domain.ErrNotFound)

	_, err := f.uc.GetConfig(ctx)
	assert.Equal(t, http.StatusNotFound, apperror.CodeOf(err))
}
