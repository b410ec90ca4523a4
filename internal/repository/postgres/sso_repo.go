package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type ssoRepo struct {
	db *pgxpool.Pool
}

func NewSSORepository(db *pgxpool.Pool) domain.SSORepository {
	return &ssoRepo{db: db}
}

func (r *ssoRepo) GetByCompany(ctx context.Context, companyID uuid.UUID) (*domain.SSOConfig, error) {
	var c domain.SSOConfig
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, company_id, protocol, enabled, enforce, COALESCE(saml_idp_metadata_xml, ''),
			COALESCE(saml_idp_metadata_url, ''), COALESCE(oauth_provider, ''), COALESCE(oauth_client_id, ''),
			COALESCE(oauth_client_secret, ''), COALESCE(oauth_issuer, ''), allowed_domains, default_role,
			created_at, updated_at
		FROM sso_configs WHERE company_id = $1`, companyID).Scan(
		&c.ID, &c.CompanyID, &c.Protocol, &c.Enabled, &c.Enforce, &c.SAMLIdPMetadataXML,
		&c.SAMLIdPMetadataURL, &c.OAuthProvider, &c.OAuthClientID,
		&c.OAuthClientSecret, &c.OAuthIssuer, &c.AllowedDomains, &c.DefaultRole,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err, "")
	}
	return &c, nil
}

func (r *ssoRepo) Upsert(ctx context.Context, c *domain.SSOConfig) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.AllowedDomains == nil {
		c.AllowedDomains = []string{}
	}
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO sso_configs (id, company_id, protocol, enabled, enforce, saml_idp_metadata_xml, saml_idp_metadata_url,
			oauth_provider, oauth_client_id, oauth_client_secret, oauth_issuer, allowed_domains, default_role,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''),
			NULLIF($10, ''), NULLIF($11, ''), $12, $13, NOW(), NOW())
		ON CONFLICT (company_id) DO UPDATE SET
			protocol = EXCLUDED.protocol, enabled = EXCLUDED.enabled, enforce = EXCLUDED.enforce,
			saml_idp_metadata_xml = EXCLUDED.saml_idp_metadata_xml, saml_idp_metadata_url = EXCLUDED.saml_idp_metadata_url,
			oauth_provider = EXCLUDED.oauth_provider, oauth_client_id = EXCLUDED.oauth_client_id,
			oauth_client_secret = EXCLUDED.oauth_client_secret, oauth_issuer = EXCLUDED.oauth_issuer,
			allowed_domains = EXCLUDED.allowed_domains, default_role = EXCLUDED.default_role, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		c.ID, c.CompanyID, c.Protocol, c.Enabled, c.Enforce, c.SAMLIdPMetadataXML, c.SAMLIdPMetadataURL,
		c.OAuthProvider, c.OAuthClientID, c.OAuthClientSecret, c.OAuthIssuer, c.AllowedDomains, c.DefaultRole,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ssoRepo) Delete(ctx context.Context, companyID uuid.UUID) error {
	return mustAffect(conn(ctx, r.db).Exec(ctx, `DELETE FROM sso_configs WHERE company_id = $1`, companyID))
}
