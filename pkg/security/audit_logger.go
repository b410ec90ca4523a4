package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

// Severity is derived from the event type, never supplied by callers.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var eventSeverity = map[domain.AuditEventType]Severity{
	domain.AuditLoginSuccess:     SeverityInfo,
	domain.AuditSSOLogin:         SeverityInfo,
	domain.AuditUserInvited:      SeverityInfo,
	domain.AuditPlanChanged:      SeverityInfo,
	domain.AuditLoginFailed:      SeverityWarn,
	domain.AuditSSOFailed:        SeverityWarn,
	domain.AuditRateLimited:      SeverityWarn,
	domain.AuditUploadRejected:   SeverityWarn,
	domain.AuditSSOConfigChanged: SeverityWarn,
	domain.AuditLoginBlocked:     SeverityHigh,
	domain.AuditUnauthorized:     SeverityHigh,
	domain.AuditRoleChanged:      SeverityHigh,
	domain.AuditUserDisabled:     SeverityHigh,
	domain.AuditBadSignature:     SeverityHigh,
	domain.AuditCompanySuspended: SeverityCritical,
}

func SeverityOf(t domain.AuditEventType) Severity {
	if s, ok := eventSeverity[t]; ok {
		return s
	}
	return SeverityWarn
}

func (s Severity) zapLevel() zapcore.Level {
	switch s {
	case SeverityInfo:
		return zapcore.InfoLevel
	case SeverityWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// AuditLogger writes audit events to zap and, when a repository is set,
// persists them in the background.
type AuditLogger struct {
	log  *zap.Logger
	repo domain.AuditRepository
}

var _ domain.AuditLogger = (*AuditLogger)(nil)

func NewAuditLogger(log *zap.Logger, repo domain.AuditRepository) *AuditLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLogger{log: log.Named("audit"), repo: repo}
}

func (al *AuditLogger) Log(ctx context.Context, event domain.AuditEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.RequestID == "" {
		if rid, ok := ctx.Value(domain.KeyRequestID).(string); ok {
			event.RequestID = rid
		}
	}
	severity := SeverityOf(event.Type)
	event.Level = string(severity)
	event.SubjectValue = maskValue(event.SubjectType, event.SubjectValue)

	fields := []zap.Field{
		zap.String("event", string(event.Type)),
		zap.String("severity", string(severity)),
	}
	if event.SubjectType != "" {
		fields = append(fields, zap.String("subject_type", event.SubjectType), zap.String("subject_value", event.SubjectValue))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		details, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(details)))
	}
	al.log.Log(severity.zapLevel(), string(event.Type), fields...)

	if al.repo == nil {
		return
	}
	go func(e domain.AuditEvent) {
		// request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := al.repo.Insert(ctx, e); err != nil {
			al.log.Error("failed to persist audit event", zap.Error(err))
		}
	}(event)
}

// MaskEmail masks an email for logging ("j***@example.com").
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***" + email[1:]
	}
	return email[:1] + "***" + email[at:]
}

// HashValue returns a short SHA-256 fingerprint of value.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}

func maskValue(subjectType, value string) string {
	if value == "" {
		return ""
	}
	switch subjectType {
	case "email":
		if strings.Contains(value, "***") {
			return value
		}
		return MaskEmail(value)
	case "ip", "company", "user", "webhook":
		return value
	default:
		return HashValue(value)
	}
}
