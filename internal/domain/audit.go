package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditEventType string

const (
	AuditLoginSuccess     AuditEventType = "login_success"
	AuditLoginFailed      AuditEventType = "login_failed"
	AuditLoginBlocked     AuditEventType = "login_blocked"
	AuditSSOLogin         AuditEventType = "sso_login"
	AuditSSOFailed        AuditEventType = "sso_failed"
	AuditRateLimited      AuditEventType = "rate_limit_triggered"
	AuditUnauthorized     AuditEventType = "unauthorized_access"
	AuditRoleChanged      AuditEventType = "role_modified"
	AuditUserInvited      AuditEventType = "user_created"
	AuditUserDisabled     AuditEventType = "user_disabled"
	AuditCompanySuspended AuditEventType = "company_suspended"
	AuditPlanChanged      AuditEventType = "plan_changed"
	AuditSSOConfigChanged AuditEventType = "sso_config_changed"
	AuditUploadRejected   AuditEventType = "upload_rejected"
	AuditBadSignature     AuditEventType = "billing_signature_invalid"
)

type AuditEvent struct {
	ID           uuid.UUID      `json:"id"`
	Type         AuditEventType `json:"type"`
	Level        string         `json:"level"`
	SubjectType  string         `json:"subject_type,omitempty"`
	SubjectValue string         `json:"subject_value,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditLogger records security-relevant events.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent)
}

type AuditRepository interface {
	Insert(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, page Page) ([]AuditEvent, int64, error)
}

// LoginGuard throttles repeated failed logins.
type LoginGuard interface {
	IsBlocked(ctx context.Context, email, ip string) (bool, error)
	RecordFailure(ctx context.Context, email, ip string) (bool, error)
	Clear(ctx context.Context, email, ip string) error
}

// UploadGuard throttles uploads per key.
type UploadGuard interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}
