package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type SSOProtocol string

const (
	SSOProtocolSAML  SSOProtocol = "saml"
	SSOProtocolOAuth SSOProtocol = "oauth"
)

const (
	OAuthProviderGoogle    = "google"
	OAuthProviderMicrosoft = "microsoft"
	OAuthProviderOIDC      = "oidc"
)

type SSOConfig struct {
	ID                 uuid.UUID   `json:"id"`
	CompanyID          uuid.UUID   `json:"company_id"`
	Protocol           SSOProtocol `json:"protocol"`
	Enabled            bool        `json:"enabled"`
	Enforce            bool        `json:"enforce"`
	SAMLIdPMetadataXML string      `json:"saml_idp_metadata_xml,omitempty"`
	SAMLIdPMetadataURL string      `json:"saml_idp_metadata_url,omitempty"`
	OAuthProvider      string      `json:"oauth_provider,omitempty"`
	OAuthClientID      string      `json:"oauth_client_id,omitempty"`
	OAuthClientSecret  string      `json:"-"`
	OAuthIssuer        string      `json:"oauth_issuer,omitempty"`
	AllowedDomains     []string    `json:"allowed_domains"`
	DefaultRole        Role        `json:"default_role"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type SSOConfigInput struct {
	Protocol           SSOProtocol `json:"protocol" binding:"required,oneof=saml oauth"`
	Enabled            bool        `json:"enabled"`
	Enforce            bool        `json:"enforce"`
	SAMLIdPMetadataXML string      `json:"saml_idp_metadata_xml" binding:"max=200000"`
	SAMLIdPMetadataURL string      `json:"saml_idp_metadata_url" binding:"omitempty,url"`
	OAuthProvider      string      `json:"oauth_provider" binding:"omitempty,oneof=google microsoft oidc"`
	OAuthClientID      string      `json:"oauth_client_id" binding:"max=500"`
	OAuthClientSecret  string      `json:"oauth_client_secret" binding:"max=500"`
	OAuthIssuer        string      `json:"oauth_issuer" binding:"omitempty,url"`
	AllowedDomains     []string    `json:"allowed_domains" binding:"omitempty,dive,fqdn"`
	DefaultRole        Role        `json:"default_role" binding:"omitempty,oneof=admin recruiter interviewer"`
}

// SSOIdentity is the user asserted by an identity provider.
type SSOIdentity struct {
	Subject string
	Email   string
	Name    string
}

// StateSigner signs the state that travels through the identity provider and back.
type StateSigner interface {
	IssueState(companyID uuid.UUID, requestID string) (string, error)
	ParseState(token string) (companyID uuid.UUID, requestID string, err error)
}

type SSORepository interface {
	GetByCompany(ctx context.Context, companyID uuid.UUID) (*SSOConfig, error)
	Upsert(ctx context.Context, cfg *SSOConfig) error
	Delete(ctx context.Context, companyID uuid.UUID) error
}

type SSOUsecase interface {
	GetConfig(ctx context.Context) (*SSOConfig, error)
	SaveConfig(ctx context.Context, input SSOConfigInput) (*SSOConfig, error)
	DeleteConfig(ctx context.Context) error
	// Begin returns the identity provider URL to redirect the browser to.
	Begin(ctx context.Context, companySlug string) (string, error)
	CompleteSAML(ctx context.Context, companySlug string, r *http.Request) (*AuthResult, error)
	CompleteOAuth(ctx context.Context, code, state string) (*AuthResult, error)
	Metadata(ctx context.Context, companySlug string) ([]byte, error)
}
