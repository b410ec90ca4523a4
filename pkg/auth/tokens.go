package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess    = "access"
	TokenTypeRefresh   = "refresh"
	TokenTypeInterview = "interview"
	TokenTypeSSOState  = "sso_state"

	ssoStateTTL = 10 * time.Minute
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

type Claims struct {
	Type      string `json:"typ"`
	RequestID string `json:"rid,omitempty"`
	CompanyID string `json:"cid,omitempty"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs HS256 tokens for sessions, interview links and SSO state.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueSession signs an access and refresh pair. companyID is uuid.Nil for platform users.
func (m *TokenManager) IssueSession(userID, companyID uuid.UUID, role string) (string, string, time.Time, error) {
	session := Claims{Role: role}
	if companyID != uuid.Nil {
		session.CompanyID = companyID.String()
	}
	expiresAt := m.now().Add(m.accessTTL)
	session.Type = TokenTypeAccess
	access, err := m.sign(session, userID.String(), expiresAt)
	if err != nil {
		return "", "", time.Time{}, err
	}
	session.Type = TokenTypeRefresh
	refresh, err := m.sign(session, userID.String(), m.now().Add(m.refreshTTL))
	if err != nil {
		return "", "", time.Time{}, err
	}
	return access, refresh, expiresAt, nil
}

func (m *TokenManager) ParseAccess(token string) (uuid.UUID, error) {
	return m.parseSubject(token, TokenTypeAccess)
}

// AccessClaims returns the verified claims of an access token.
func (m *TokenManager) AccessClaims(token string) (*Claims, error) {
	return m.parse(token, TokenTypeAccess)
}

func (m *TokenManager) ParseRefresh(token string) (uuid.UUID, error) {
	return m.parseSubject(token, TokenTypeRefresh)
}

func (m *TokenManager) IssueInterviewToken(interviewID uuid.UUID, expiresAt time.Time) (string, error) {
	return m.sign(Claims{Type: TokenTypeInterview}, interviewID.String(), expiresAt)
}

func (m *TokenManager) ParseInterviewToken(token string) (uuid.UUID, error) {
	return m.parseSubject(token, TokenTypeInterview)
}

func (m *TokenManager) IssueState(companyID uuid.UUID, requestID string) (string, error) {
	return m.sign(Claims{Type: TokenTypeSSOState, RequestID: requestID}, companyID.String(), m.now().Add(ssoStateTTL))
}

func (m *TokenManager) ParseState(token string) (uuid.UUID, string, error) {
	claims, err := m.parse(token, TokenTypeSSOState)
	if err != nil {
		return uuid.Nil, "", err
	}
	companyID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	return companyID, claims.RequestID, nil
}

func (m *TokenManager) sign(claims Claims, subject string, expiresAt time.Time) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("auth: signing secret not configured")
	}
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) parse(token, typ string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (m *TokenManager) parseSubject(token, typ string) (uuid.UUID, error) {
	claims, err := m.parse(token, typ)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
