package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/webhook"
)

// Mock Repositories
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) ListByCompany(ctx context.Context, companyID uuid.UUID, page domain.Page) ([]domain.User, int64, error) {
	args := m.Called(ctx, companyID, page)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}
func (m *MockUserRepo) CountActiveByCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *MockUserRepo) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type MockCompanyRepo struct {
	mock.Mock
}

func (m *MockCompanyRepo) Create(ctx context.Context, company *domain.Company) error {
	return m.Called(ctx, company).Error(0)
}
func (m *MockCompanyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}
func (m *MockCompanyRepo) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}
func (m *MockCompanyRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}
func (m *MockCompanyRepo) Update(ctx context.Context, company *domain.Company) error {
	return m.Called(ctx, company).Error(0)
}
func (m *MockCompanyRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.CompanyStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockCampaignRepo struct {
	mock.Mock
}

func (m *MockCampaignRepo) Create(ctx context.Context, campaign *domain.Campaign) error {
	return m.Called(ctx, campaign).Error(0)
}
func (m *MockCampaignRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Campaign, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}
func (m *MockCampaignRepo) List(ctx context.Context, companyID uuid.UUID, filter domain.CampaignFilter) ([]domain.Campaign, int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]domain.Campaign), args.Get(1).(int64), args.Error(2)
}
func (m *MockCampaignRepo) Update(ctx context.Context, campaign *domain.Campaign) error {
	return m.Called(ctx, campaign).Error(0)
}
func (m *MockCampaignRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return m.Called(ctx, companyID, id).Error(0)
}
func (m *MockCampaignRepo) CountOpen(ctx context.Context, companyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCandidateRepo struct {
	mock.Mock
}

func (m *MockCandidateRepo) Create(ctx context.Context, candidate *domain.Candidate) error {
	return m.Called(ctx, candidate).Error(0)
}
func (m *MockCandidateRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Candidate, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Candidate), args.Error(1)
}
func (m *MockCandidateRepo) List(ctx context.Context, companyID uuid.UUID, filter domain.CandidateFilter) ([]domain.Candidate, int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]domain.Candidate), args.Get(1).(int64), args.Error(2)
}
func (m *MockCandidateRepo) ListResultsByCampaign(ctx context.Context, companyID, campaignID uuid.UUID) ([]domain.CandidateResult, error) {
	args := m.Called(ctx, companyID, campaignID)
	return args.Get(0).([]domain.CandidateResult), args.Error(1)
}
func (m *MockCandidateRepo) Update(ctx context.Context, candidate *domain.Candidate) error {
	return m.Called(ctx, candidate).Error(0)
}
func (m *MockCandidateRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CandidateStatus) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *MockCandidateRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return m.Called(ctx, companyID, id).Error(0)
}

type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Question, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Question), args.Error(1)
}
func (m *MockQuestionRepo) GetByID(ctx context.Context, campaignID, id uuid.UUID) (*domain.Question, error) {
	args := m.Called(ctx, campaignID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}
func (m *MockQuestionRepo) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error) {
	args := m.Called(ctx, campaignID)
	return args.Int(0), args.Error(1)
}
func (m *MockQuestionRepo) ReplaceForCampaign(ctx context.Context, campaignID uuid.UUID, questions []domain.Question) error {
	return m.Called(ctx, campaignID, questions).Error(0)
}
func (m *MockQuestionRepo) Create(ctx context.Context, question *domain.Question) error {
	return m.Called(ctx, question).Error(0)
}
func (m *MockQuestionRepo) Update(ctx context.Context, question *domain.Question) error {
	return m.Called(ctx, question).Error(0)
}
func (m *MockQuestionRepo) Delete(ctx context.Context, campaignID, id uuid.UUID) error {
	return m.Called(ctx, campaignID, id).Error(0)
}
func (m *MockQuestionRepo) SetPositions(ctx context.Context, campaignID uuid.UUID, ids []uuid.UUID) error {
	return m.Called(ctx, campaignID, ids).Error(0)
}

type MockInterviewRepo struct {
	mock.Mock
}

func (m *MockInterviewRepo) Create(ctx context.Context, interview *domain.Interview) error {
	return m.Called(ctx, interview).Error(0)
}
func (m *MockInterviewRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Interview, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Interview), args.Error(1)
}
func (m *MockInterviewRepo) GetForSession(ctx context.Context, id uuid.UUID) (*domain.Interview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Interview), args.Error(1)
}
func (m *MockInterviewRepo) List(ctx context.Context, companyID uuid.UUID, filter domain.InterviewFilter) ([]domain.Interview, int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]domain.Interview), args.Get(1).(int64), args.Error(2)
}
func (m *MockInterviewRepo) CountLiveByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockInterviewRepo) Transition(ctx context.Context, interview *domain.Interview, from domain.InterviewStatus) error {
	return m.Called(ctx, interview, from).Error(0)
}
func (m *MockInterviewRepo) Advance(ctx context.Context, id uuid.UUID, position int) error {
	return m.Called(ctx, id, position).Error(0)
}
func (m *MockInterviewRepo) Reschedule(ctx context.Context, interview *domain.Interview) error {
	return m.Called(ctx, interview).Error(0)
}
func (m *MockInterviewRepo) SetRecordingKey(ctx context.Context, id uuid.UUID, key string) (string, error) {
	args := m.Called(ctx, id, key)
	return args.String(0), args.Error(1)
}
func (m *MockInterviewRepo) SaveAnswer(ctx context.Context, answer *domain.Answer) error {
	return m.Called(ctx, answer).Error(0)
}
func (m *MockInterviewRepo) ListAnswers(ctx context.Context, interviewID uuid.UUID) ([]domain.Answer, error) {
	args := m.Called(ctx, interviewID)
	return args.Get(0).([]domain.Answer), args.Error(1)
}
func (m *MockInterviewRepo) RecordEvent(ctx context.Context, event *domain.InterviewEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockBillingRepo struct {
	mock.Mock
}

func (m *MockBillingRepo) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Plan), args.Error(1)
}
func (m *MockBillingRepo) GetPlan(ctx context.Context, code string) (*domain.Plan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}
func (m *MockBillingRepo) GetSubscription(ctx context.Context, companyID uuid.UUID) (*domain.Subscription, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}
func (m *MockBillingRepo) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}
func (m *MockBillingRepo) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}
func (m *MockBillingRepo) ConsumeInterview(ctx context.Context, companyID uuid.UUID, periodStart time.Time, limit int) (bool, error) {
	args := m.Called(ctx, companyID, periodStart, limit)
	return args.Bool(0), args.Error(1)
}
func (m *MockBillingRepo) InterviewUsage(ctx context.Context, companyID uuid.UUID, periodStart time.Time) (int64, error) {
	args := m.Called(ctx, companyID, periodStart)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockBillingRepo) CarryInterviewUsage(ctx context.Context, companyID uuid.UUID, from, to time.Time) error {
	return m.Called(ctx, companyID, from, to).Error(0)
}
func (m *MockBillingRepo) CountByPlan(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]int64), args.Error(1)
}

type MockWebhookRepo struct {
	mock.Mock
}

func (m *MockWebhookRepo) Create(ctx context.Context, hook *domain.Webhook) error {
	return m.Called(ctx, hook).Error(0)
}
func (m *MockWebhookRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Webhook, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Webhook), args.Error(1)
}
func (m *MockWebhookRepo) List(ctx context.Context, companyID uuid.UUID) ([]domain.Webhook, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]domain.Webhook), args.Error(1)
}
func (m *MockWebhookRepo) ListSubscribed(ctx context.Context, companyID uuid.UUID, event domain.WebhookEvent) ([]domain.Webhook, error) {
	args := m.Called(ctx, companyID, event)
	return args.Get(0).([]domain.Webhook), args.Error(1)
}
func (m *MockWebhookRepo) Update(ctx context.Context, hook *domain.Webhook) error {
	return m.Called(ctx, hook).Error(0)
}
func (m *MockWebhookRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return m.Called(ctx, companyID, id).Error(0)
}
func (m *MockWebhookRepo) CreateDelivery(ctx context.Context, delivery *domain.WebhookDelivery) error {
	return m.Called(ctx, delivery).Error(0)
}
func (m *MockWebhookRepo) GetDelivery(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, *domain.Webhook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.WebhookDelivery), args.Get(1).(*domain.Webhook), args.Error(2)
}
func (m *MockWebhookRepo) ListDeliveries(ctx context.Context, webhookID uuid.UUID, page domain.Page) ([]domain.WebhookDelivery, int64, error) {
	args := m.Called(ctx, webhookID, page)
	return args.Get(0).([]domain.WebhookDelivery), args.Get(1).(int64), args.Error(2)
}
func (m *MockWebhookRepo) UpdateDelivery(ctx context.Context, delivery *domain.WebhookDelivery) error {
	return m.Called(ctx, delivery).Error(0)
}

type MockSSORepo struct {
	mock.Mock
}

func (m *MockSSORepo) GetByCompany(ctx context.Context, companyID uuid.UUID) (*domain.SSOConfig, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SSOConfig), args.Error(1)
}
func (m *MockSSORepo) Upsert(ctx context.Context, cfg *domain.SSOConfig) error {
	return m.Called(ctx, cfg).Error(0)
}
func (m *MockSSORepo) Delete(ctx context.Context, companyID uuid.UUID) error {
	return m.Called(ctx, companyID).Error(0)
}

type MockAdminRepo struct {
	mock.Mock
}

func (m *MockAdminRepo) GetStats(ctx context.Context) (*domain.AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminStats), args.Error(1)
}
func (m *MockAdminRepo) ListCompanies(ctx context.Context, filter domain.AdminCompanyFilter) ([]domain.AdminCompany, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.AdminCompany), args.Get(1).(int64), args.Error(2)
}
func (m *MockAdminRepo) ListUsers(ctx context.Context, role domain.Role, page domain.Page) ([]domain.AdminUser, int64, error) {
	args := m.Called(ctx, role, page)
	return args.Get(0).([]domain.AdminUser), args.Get(1).(int64), args.Error(2)
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Insert(ctx context.Context, event domain.AuditEvent) error {
	return m.Called(ctx, event).Error(0)
}
func (m *MockAuditRepo) List(ctx context.Context, page domain.Page) ([]domain.AuditEvent, int64, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]domain.AuditEvent), args.Get(1).(int64), args.Error(2)
}

// Mock collaborators
type MockQuota struct {
	mock.Mock
}

func (m *MockQuota) CheckCampaignQuota(ctx context.Context, companyID uuid.UUID) error {
	return m.Called(ctx, companyID).Error(0)
}
func (m *MockQuota) CheckSeatQuota(ctx context.Context, companyID uuid.UUID) error {
	return m.Called(ctx, companyID).Error(0)
}
func (m *MockQuota) ConsumeInterview(ctx context.Context, companyID uuid.UUID) error {
	return m.Called(ctx, companyID).Error(0)
}
func (m *MockQuota) RequireSSO(ctx context.Context, companyID uuid.UUID) error {
	return m.Called(ctx, companyID).Error(0)
}

type MockJobs struct {
	mock.Mock
}

func (m *MockJobs) EnqueueWebhookDelivery(ctx context.Context, deliveryID uuid.UUID) error {
	return m.Called(ctx, deliveryID).Error(0)
}
func (m *MockJobs) EnqueueEmail(ctx context.Context, msg domain.EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}
func (m *MockJobs) EnqueueQuestionGeneration(ctx context.Context, companyID, campaignID uuid.UUID, req domain.GenerateQuestionsRequest) error {
	return m.Called(ctx, companyID, campaignID, req).Error(0)
}

type MockAI struct {
	mock.Mock
}

func (m *MockAI) GenerateQuestions(ctx context.Context, spec domain.QuestionSpec) ([]domain.Question, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Question), args.Error(1)
}
func (m *MockAI) ScoreAnswer(ctx context.Context, question domain.Question, answer string) (*domain.AnswerScore, error) {
	args := m.Called(ctx, question, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnswerScore), args.Error(1)
}

type MockInterviewTokens struct {
	mock.Mock
}

func (m *MockInterviewTokens) IssueInterviewToken(interviewID uuid.UUID, expiresAt time.Time) (string, error) {
	args := m.Called(interviewID, expiresAt)
	return args.String(0), args.Error(1)
}
func (m *MockInterviewTokens) ParseInterviewToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	return m.Called(ctx, key, contentType, data).Error(0)
}
func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
func (m *MockBlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

type MockTokens struct {
	mock.Mock
}

func (m *MockTokens) IssueSession(userID, companyID uuid.UUID, role string) (string, string, time.Time, error) {
	args := m.Called(userID, companyID, role)
	return args.String(0), args.String(1), args.Get(2).(time.Time), args.Error(3)
}
func (m *MockTokens) ParseAccess(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
func (m *MockTokens) ParseRefresh(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockLoginGuard struct {
	mock.Mock
}

func (m *MockLoginGuard) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	args := m.Called(ctx, email, ip)
	return args.Bool(0), args.Error(1)
}
func (m *MockLoginGuard) RecordFailure(ctx context.Context, email, ip string) (bool, error) {
	args := m.Called(ctx, email, ip)
	return args.Bool(0), args.Error(1)
}
func (m *MockLoginGuard) Clear(ctx context.Context, email, ip string) error {
	return m.Called(ctx, email, ip).Error(0)
}

type MockWebhookSender struct {
	mock.Mock
}

func (m *MockWebhookSender) Send(ctx context.Context, r webhook.Request) (webhook.Result, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(webhook.Result), args.Error(1)
}

// plainHasher stores passwords as "hashed:<password>".
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (plainHasher) Verify(password, hash string) bool    { return hash == "hashed:"+password }

type staticTOTP struct{ code string }

func (s staticTOTP) Generate(string) (string, string, error) { return "SECRET", "otpauth://totp/x", nil }
func (s staticTOTP) Validate(code, _ string) bool            { return code == s.code }

// directTx runs fn without a transaction.
type directTx struct{}

func (directTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type auditRecorder struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *auditRecorder) Log(_ context.Context, event domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *auditRecorder) types() []domain.AuditEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditEventType, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Type)
	}
	return out
}

type publishedEvent struct {
	CompanyID uuid.UUID
	Event     domain.WebhookEvent
	Data      any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *eventRecorder) Publish(_ context.Context, companyID uuid.UUID, event domain.WebhookEvent, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{CompanyID: companyID, Event: event, Data: data})
}

func (r *eventRecorder) names() []domain.WebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WebhookEvent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

// principalCtx returns a context authenticated as a member of companyID.
func principalCtx(companyID uuid.UUID, role domain.Role) context.Context {
	return domain.WithPrincipal(context.Background(), &domain.Principal{
		UserID:    uuid.New(),
		CompanyID: companyID,
		Email:     "member@acme.test",
		Role:      role,
	})
}
