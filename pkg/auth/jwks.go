package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWKS struct {
	Keys []JSONWebKey `json:"keys"`
}

type JSONWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet caches the RSA signing keys published by an identity provider.
type KeySet struct {
	mu        sync.RWMutex
	keys      map[string]*JSONWebKey
	url       string
	client    *http.Client
	refreshed time.Time
}

func NewKeySet(jwksURL string, client *http.Client) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{
		url:    jwksURL,
		client: client,
		keys:   make(map[string]*JSONWebKey),
	}
}

// IDTokenClaims are the OpenID Connect claims we read from id_tokens.
type IDTokenClaims struct {
	Email             string `json:"email"`
	EmailVerified     *bool  `json:"email_verified,omitempty"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Nonce             string `json:"nonce"`
	jwt.RegisteredClaims
}

// VerifyIDToken checks signature, audience and issuer of an id_token.
// An empty issuer skips the issuer check (multi-tenant Microsoft endpoints).
func (ks *KeySet) VerifyIDToken(ctx context.Context, raw, audience, issuer string) (*IDTokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithAudience(audience),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &IDTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return ks.keyFunc(ctx, t)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid id_token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid id_token")
	}
	return claims, nil
}

func (ks *KeySet) keyFunc(ctx context.Context, token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, errors.New("kid header not found")
	}

	key, err := ks.getKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	return key.PublicKey()
}

func (ks *KeySet) getKey(ctx context.Context, kid string) (*JSONWebKey, error) {
	ks.mu.RLock()
	key, exists := ks.keys[kid]
	ks.mu.RUnlock()
	if exists {
		return key, nil
	}

	// unknown kid usually means the provider rotated keys
	if err := ks.refresh(ctx); err != nil {
		return nil, err
	}

	ks.mu.RLock()
	key, exists = ks.keys[kid]
	ks.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("signing key %q not found", kid)
	}
	return key, nil
}

func (ks *KeySet) refresh(ctx context.Context) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if time.Since(ks.refreshed) < time.Minute && len(ks.keys) > 0 {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return err
	}
	resp, err := ks.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching jwks: unexpected status %d", resp.StatusCode)
	}

	var set JWKS
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decoding jwks: %w", err)
	}

	keys := make(map[string]*JSONWebKey, len(set.Keys))
	for i := range set.Keys {
		if set.Keys[i].Kty != "RSA" {
			continue
		}
		keys[set.Keys[i].Kid] = &set.Keys[i]
	}
	ks.keys = keys
	ks.refreshed = time.Now()
	return nil
}

func (k *JSONWebKey) PublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
