package sso

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/crewjam/saml"
	"github.com/crewjam/saml/samlsp"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

// SAMLProvider is the service provider side of one company's SAML integration.
type SAMLProvider struct {
	sp *saml.ServiceProvider
}

func (s *Service) samlURLs(slug string) (metadataURL, acsURL *url.URL, err error) {
	base := s.publicURL + "/v1/sso/" + url.PathEscape(slug)
	if metadataURL, err = url.Parse(base + "/metadata"); err != nil {
		return nil, nil, err
	}
	if acsURL, err = url.Parse(base + "/saml/acs"); err != nil {
		return nil, nil, err
	}
	return metadataURL, acsURL, nil
}

// SAML builds the provider for a company. cfg may be nil when only SP
// metadata is needed.
func (s *Service) SAML(ctx context.Context, slug string, cfg *domain.SSOConfig) (*SAMLProvider, error) {
	metadataURL, acsURL, err := s.samlURLs(slug)
	if err != nil {
		return nil, fmt.Errorf("building SAML URLs: %w", err)
	}
	sp := &saml.ServiceProvider{
		EntityID:          metadataURL.String(),
		Key:               s.key,
		Certificate:       s.cert,
		MetadataURL:       *metadataURL,
		AcsURL:            *acsURL,
		AuthnNameIDFormat: saml.EmailAddressNameIDFormat,
		AllowIDPInitiated: false,
	}

	if cfg != nil {
		switch {
		case strings.TrimSpace(cfg.SAMLIdPMetadataXML) != "":
			sp.IDPMetadata, err = samlsp.ParseMetadata([]byte(cfg.SAMLIdPMetadataXML))
		case cfg.SAMLIdPMetadataURL != "":
			var u *url.URL
			if u, err = url.Parse(cfg.SAMLIdPMetadataURL); err == nil {
				sp.IDPMetadata, err = samlsp.FetchMetadata(ctx, s.client, *u)
			}
		default:
			err = errors.New("no IdP metadata configured")
		}
		if err != nil {
			return nil, fmt.Errorf("loading IdP metadata: %w", err)
		}
	}
	return &SAMLProvider{sp: sp}, nil
}

// AuthURL returns the IdP redirect URL and the AuthnRequest ID to expect
// in the response.
func (p *SAMLProvider) AuthURL(relayState string) (string, string, error) {
	return p.authURL("", relayState)
}

// AuthURLWithID is AuthURL with a caller-chosen AuthnRequest ID, so the ID can
// travel inside the signed relay state. requestID must be a valid xs:ID.
func (p *SAMLProvider) AuthURLWithID(requestID, relayState string) (string, error) {
	u, _, err := p.authURL(requestID, relayState)
	return u, err
}

func (p *SAMLProvider) authURL(requestID, relayState string) (string, string, error) {
	if p.sp.IDPMetadata == nil {
		return "", "", ErrNotConfigured
	}
	location := p.sp.GetSSOBindingLocation(saml.HTTPRedirectBinding)
	if location == "" {
		return "", "", errors.New("IdP does not support the HTTP-Redirect binding")
	}
	req, err := p.sp.MakeAuthenticationRequest(location, saml.HTTPRedirectBinding, saml.HTTPPostBinding)
	if err != nil {
		return "", "", fmt.Errorf("creating AuthnRequest: %w", err)
	}
	if requestID != "" {
		req.ID = requestID
	}
	u, err := req.Redirect(relayState, p.sp)
	if err != nil {
		return "", "", fmt.Errorf("encoding AuthnRequest: %w", err)
	}
	return u.String(), req.ID, nil
}

// ParseResponse verifies the posted SAMLResponse and extracts the identity.
func (p *SAMLProvider) ParseResponse(r *http.Request, requestID string) (*domain.SSOIdentity, error) {
	if p.sp.IDPMetadata == nil {
		return nil, ErrNotConfigured
	}
	assertion, err := p.sp.ParseResponse(r, []string{requestID})
	if err != nil {
		var ire *saml.InvalidResponseError
		if errors.As(err, &ire) && ire.PrivateErr != nil {
			return nil, fmt.Errorf("invalid SAML response: %w", ire.PrivateErr)
		}
		return nil, fmt.Errorf("invalid SAML response: %w", err)
	}
	return identityFromAssertion(assertion)
}

var (
	emailAttributes = []string{
		"email", "mail", "emailaddress",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
		"urn:oid:0.9.2342.19200300.100.1.3",
	}
	nameAttributes = []string{
		"name", "displayname", "cn",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
		"http://schemas.microsoft.com/identity/claims/displayname",
		"urn:oid:2.16.840.1.113730.3.1.241",
	}
)

func identityFromAssertion(a *saml.Assertion) (*domain.SSOIdentity, error) {
	id := &domain.SSOIdentity{}
	if a.Subject != nil && a.Subject.NameID != nil {
		id.Subject = a.Subject.NameID.Value
	}

	attrs := map[string]string{}
	for _, stmt := range a.AttributeStatements {
		for _, attr := range stmt.Attributes {
			if len(attr.Values) == 0 {
				continue
			}
			v := strings.TrimSpace(attr.Values[0].Value)
			attrs[strings.ToLower(attr.Name)] = v
			if attr.FriendlyName != "" {
				attrs[strings.ToLower(attr.FriendlyName)] = v
			}
		}
	}
	id.Email = firstAttr(attrs, emailAttributes)
	if id.Email == "" && strings.Contains(id.Subject, "@") {
		id.Email = id.Subject
	}
	id.Name = firstAttr(attrs, nameAttributes)
	if id.Name == "" {
		given := firstAttr(attrs, []string{"givenname", "firstname", "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname"})
		sur := firstAttr(attrs, []string{"surname", "sn", "lastname", "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/surname"})
		id.Name = strings.TrimSpace(given + " " + sur)
	}

	if id.Email == "" {
		return nil, ErrNoEmail
	}
	id.Email = strings.ToLower(id.Email)
	return id, nil
}

func firstAttr(attrs map[string]string, names []string) string {
	for _, n := range names {
		if v := attrs[strings.ToLower(n)]; v != "" {
			return v
		}
	}
	return ""
}

// Metadata renders the SP metadata document.
func (p *SAMLProvider) Metadata() ([]byte, error) {
	out, err := xml.MarshalIndent(p.sp.Metadata(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding SP metadata: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
