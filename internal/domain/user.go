package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	IsDisabled   bool       `json:"is_disabled"`
	TOTPSecret   string     `json:"-"`
	TOTPEnabled  bool       `json:"totp_enabled"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type RegisterRequest struct {
	CompanyName string `json:"company_name" binding:"required,min=2,max=120,valid_name"`
	Name        string `json:"name" binding:"required,min=2,max=100,valid_name"`
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"omitempty,len=6,numeric"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
	Company      *Company  `json:"company,omitempty"`
}

type Me struct {
	User    *User    `json:"user"`
	Company *Company `json:"company,omitempty"`
}

type InviteMemberRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=100,valid_name"`
	Email string `json:"email" binding:"required,email,max=254"`
	Role  Role   `json:"role" binding:"required,oneof=admin recruiter interviewer"`
}

type ChangeRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=owner admin recruiter interviewer"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, page Page) ([]User, int64, error)
	CountActiveByCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
	Update(ctx context.Context, user *User) error
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type AuthUsecase interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest, clientIP string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Me(ctx context.Context) (*Me, error)
	// Authenticate resolves an access token into a Principal, rejecting
	// disabled users and suspended companies.
	Authenticate(ctx context.Context, accessToken string) (*Principal, error)
	// IssueFor creates a session for a user that was authenticated elsewhere (SSO).
	IssueFor(ctx context.Context, user *User) (*AuthResult, error)
}

type TeamUsecase interface {
	ListMembers(ctx context.Context, page, pageSize int) (*PaginatedResult[User], error)
	InviteMember(ctx context.Context, req InviteMemberRequest) (*User, error)
	ChangeRole(ctx context.Context, userID uuid.UUID, role Role) (*User, error)
	SetDisabled(ctx context.Context, userID uuid.UUID, disabled bool) (*User, error)
}

// TokenService issues and verifies session tokens.
type TokenService interface {
	IssueSession(userID, companyID uuid.UUID, role string) (access, refresh string, expiresAt time.Time, err error)
	ParseAccess(token string) (uuid.UUID, error)
	ParseRefresh(token string) (uuid.UUID, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TOTPProvider interface {
	Generate(account string) (secret, provisioningURL string, err error)
	Validate(code, secret string) bool
}
