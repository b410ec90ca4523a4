// Package sso talks to company identity providers over SAML 2.0 and OAuth 2.0 / OpenID Connect.
package sso

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Gradiiai/gradii-sub007/pkg/auth"
	"github.com/Gradiiai/gradii-sub007/pkg/netguard"
)

var (
	ErrNotConfigured = errors.New("sso is not configured")
	ErrNoEmail       = errors.New("identity provider did not return an email")
)

type Config struct {
	PublicURL       string // base URL the IdP redirects back to
	CertificatePEM  string
	PrivateKeyPEM   string
	GoogleClientID  string
	GoogleSecret    string
	MicrosoftTenant string
	// HTTPClient fetches IdP metadata, discovery documents and tokens. When nil a
	// client that refuses private addresses is used unless AllowPrivateNetworks.
	HTTPClient           *http.Client
	AllowPrivateNetworks bool
}

// Service builds per-company SAML and OAuth providers.
type Service struct {
	publicURL       string
	cert            *x509.Certificate
	key             *rsa.PrivateKey
	googleClientID  string
	googleSecret    string
	microsoftTenant string
	client          *http.Client

	mu      sync.Mutex
	keySets map[string]*auth.KeySet
}

// NewService loads the SP key pair. Without one an ephemeral self-signed pair
// is generated, which is only usable until the next restart.
func NewService(cfg Config) (*Service, error) {
	var (
		cert *x509.Certificate
		key  *rsa.PrivateKey
		err  error
	)
	if cfg.CertificatePEM != "" || cfg.PrivateKeyPEM != "" {
		cert, key, err = ParseKeyPair(cfg.CertificatePEM, cfg.PrivateKeyPEM)
	} else {
		cert, key, err = GenerateKeyPair("gradii-sp", 365*24*time.Hour)
	}
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	switch {
	case client != nil:
	case cfg.AllowPrivateNetworks:
		client = &http.Client{Timeout: 15 * time.Second}
	default:
		client = netguard.Client(15 * time.Second)
	}
	tenant := cfg.MicrosoftTenant
	if tenant == "" {
		tenant = "common"
	}
	return &Service{
		publicURL:       strings.TrimRight(cfg.PublicURL, "/"),
		cert:            cert,
		key:             key,
		googleClientID:  cfg.GoogleClientID,
		googleSecret:    cfg.GoogleSecret,
		microsoftTenant: tenant,
		client:          client,
		keySets:         make(map[string]*auth.KeySet),
	}, nil
}

func (s *Service) keySet(url string) *auth.KeySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	ks, ok := s.keySets[url]
	if !ok {
		ks = auth.NewKeySet(url, s.client)
		s.keySets[url] = ks
	}
	return ks
}

// ParseKeyPair decodes a PEM certificate and an RSA private key (PKCS#1 or PKCS#8).
func ParseKeyPair(certPEM, keyPEM string) (*x509.Certificate, *rsa.PrivateKey, error) {
	certBlock, _ := pem.Decode([]byte(certPEM))
	if certBlock == nil {
		return nil, nil, errors.New("invalid SP certificate PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing SP certificate: %w", err)
	}

	keyBlock, _ := pem.Decode([]byte(keyPEM))
	if keyBlock == nil {
		return nil, nil, errors.New("invalid SP private key PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes); err == nil {
		return cert, key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing SP private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, errors.New("SP private key must be RSA")
	}
	return cert, key, nil
}

// GenerateKeyPair creates a self-signed RSA certificate.
func GenerateKeyPair(commonName string, validFor time.Duration) (*x509.Certificate, *rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("generating SP key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating SP certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

// EmailDomainAllowed reports whether email belongs to one of domains.
// An empty list allows every domain.
func EmailDomainAllowed(email string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	host := strings.ToLower(email[at+1:])
	for _, d := range domains {
		if strings.EqualFold(strings.TrimSpace(d), host) {
			return true
		}
	}
	return false
}
