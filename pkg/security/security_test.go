package security

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

func TestRecordingPolicy(t *testing.T) {
	policy := RecordingPolicy(1024)

	t.Run("accepts webm", func(t *testing.T) {
		data := append([]byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81, 0x01, 0x42, 0x82, 0x84}, []byte("webm")...)
		data = append(data, make([]byte, 64)...)
		info, err := policy.Validate("answer.webm", data)
		require.NoError(t, err)
		assert.Equal(t, ".webm", info.Extension)
		assert.Equal(t, int64(len(data)), info.Size)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := policy.Validate("a.webm", nil)
		assert.ErrorIs(t, err, ErrFileEmpty)
	})

	t.Run("rejects oversize", func(t *testing.T) {
		_, err := policy.Validate("a.webm", make([]byte, 2048))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("rejects unknown extension", func(t *testing.T) {
		_, err := policy.Validate("a.exe", []byte("MZ"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not allowed")
	})

	t.Run("rejects mismatched content", func(t *testing.T) {
		_, err := policy.Validate("a.webm", []byte("%PDF-1.4 not a video"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match")
	})
}

func TestResumePolicy(t *testing.T) {
	policy := ResumePolicy(1 << 20)

	info, err := policy.Validate("cv.pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.ContentType)

	info, err = policy.Validate("cv.txt", []byte("Jane Doe\nGo engineer\n"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", info.ContentType)

	assert.ElementsMatch(t, []string{".pdf", ".doc", ".docx", ".txt"}, policy.Extensions())
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "***", MaskEmail("ab"))
	assert.Equal(t, "***@x.io", MaskEmail("a@x.io"))
	assert.Len(t, HashValue("secret"), 16)
}

type recordingRepo struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	done   chan struct{}
	err    error
}

func (r *recordingRepo) Insert(_ context.Context, e domain.AuditEvent) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func (r *recordingRepo) List(context.Context, domain.Page) ([]domain.AuditEvent, int64, error) {
	return nil, 0, nil
}

func TestAuditLogger(t *testing.T) {
	t.Run("logs at the severity level and masks email", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		al := NewAuditLogger(zap.New(core), nil)

		ctx := context.WithValue(context.Background(), domain.KeyRequestID, "req-1")
		al.Log(ctx, domain.AuditEvent{
			Type:         domain.AuditLoginBlocked,
			SubjectType:  "email",
			SubjectValue: "jane@example.com",
			IP:           "10.0.0.1",
		})

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		assert.Equal(t, "login_blocked", entry.Message)
		fields := entry.ContextMap()
		assert.Equal(t, "j***@example.com", fields["subject_value"])
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "HIGH", fields["severity"])
	})

	t.Run("persists in the background", func(t *testing.T) {
		repo := &recordingRepo{done: make(chan struct{}, 1)}
		al := NewAuditLogger(zap.NewNop(), repo)

		al.Log(context.Background(), domain.AuditEvent{Type: domain.AuditLoginSuccess})

		select {
		case <-repo.done:
		case <-time.After(2 * time.Second):
			t.Fatal("event was not persisted")
		}
		repo.mu.Lock()
		defer repo.mu.Unlock()
		require.Len(t, repo.events, 1)
		assert.Equal(t, "INFO", repo.events[0].Level)
		assert.NotEmpty(t, repo.events[0].ID)
	})

	t.Run("persist failure is logged", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		repo := &recordingRepo{done: make(chan struct{}, 1), err: errors.New("db down")}
		al := NewAuditLogger(zap.New(core), repo)

		al.Log(context.Background(), domain.AuditEvent{Type: domain.AuditRateLimited})
		<-repo.done

		assert.Eventually(t, func() bool {
			return logs.FilterMessage("failed to persist audit event").Len() == 1
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityOf(domain.AuditCompanySuspended))
	assert.Equal(t, SeverityWarn, SeverityOf(domain.AuditEventType("something_new")))
}

func TestGuardsWithoutRedis(t *testing.T) {
	ctx := context.Background()

	tracker := NewLoginTracker(nil, DefaultLoginTrackerConfig())
	blocked, err := tracker.RecordFailure(ctx, "a@b.co", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, blocked)
	blocked, err = tracker.IsBlocked(ctx, "a@b.co", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.NoError(t, tracker.Clear(ctx, "a@b.co", "1.2.3.4"))

	limiter := NewUploadLimiter(nil, 0, 0)
	ok, retry, err := limiter.Allow(ctx, "interview:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, retry)
}
