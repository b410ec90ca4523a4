package usecase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/internal/usecase"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/webhook"
)

var (
	freePlan = &domain.Plan{Code: "free", Name: "Free", MaxCampaigns: 1, MaxInterviewsPerMonth: 10, MaxSeats: 2}
	proPlan  = &domain.Plan{Code: "pro", Name: "Pro", MaxCampaigns: 20, MaxInterviewsPerMonth: 500, MaxSeats: 25, SSOEnabled: true}
)

type billingFixture struct {
	repo      *MockBillingRepo
	campaigns *MockCampaignRepo
	users     *MockUserRepo
	audit     *auditRecorder
	uc        domain.BillingUsecase
}

func newBillingFixture() *billingFixture {
	f := &billingFixture{
		repo:      new(MockBillingRepo),
		campaigns: new(MockCampaignRepo),
		users:     new(MockUserRepo),
		audit:     &auditRecorder{},
	}
	f.uc = usecase.NewBillingUsecase(f.repo, f.campaigns, f.users, f.audit, "whsec_test", 14)
	f.repo.On("GetPlan", mock.Anything, "free").Return(freePlan, nil).Maybe()
	f.repo.On("GetPlan", mock.Anything, "pro").Return(proPlan, nil).Maybe()
	return f
}

func activeSub(companyID uuid.UUID, plan string) *domain.Subscription {
	now := time.Now().UTC()
	return &domain.Subscription{
		ID: uuid.New(), CompanyID: companyID, PlanCode: plan, Status: domain.SubscriptionActive,
		CurrentPeriodStart: now.AddDate(0, 0, -3), CurrentPeriodEnd: now.AddDate(0, 0, 27),
	}
}

func TestCheckCampaignQuota(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("limit reached returns 402", func(t *testing.T) {
		f := newBillingFixture()
		f.repo.On("GetSubscription", ctx, companyID).Return(activeSub(companyID, "free"), nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(1), nil)

		err := f.uc.CheckCampaignQuota(ctx, companyID)
		assert.Equal(t, http.StatusPaymentRequired, apperror.CodeOf(err))
	})

	t.Run("under limit", func(t *testing.T) {
		f := newBillingFixture()
		f.repo.On("GetSubscription", ctx, companyID).Return(activeSub(companyID, "pro"), nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(5), nil)

		assert.NoError(t, f.uc.CheckCampaignQuota(ctx, companyID))
	})

	t.Run("cancelled subscription falls back to free", func(t *testing.T) {
		f := newBillingFixture()
		sub := activeSub(companyID, "pro")
		sub.Status = domain.SubscriptionCancelled
		f.repo.On("GetSubscription", ctx, companyID).Return(sub, nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(1), nil)

		err := f.uc.CheckCampaignQuota(ctx, companyID)
		assert.Equal(t, http.StatusPaymentRequired, apperror.CodeOf(err))
	})

	t.Run("lapsed cancel at period end falls back to free", func(t *testing.T) {
		f := newBillingFixture()
		sub := activeSub(companyID, "pro")
		sub.CancelAtPeriodEnd = true
		sub.CurrentPeriodEnd = time.Now().Add(-time.Hour)
		f.repo.On("GetSubscription", ctx, companyID).Return(sub, nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(3), nil)

		assert.Error(t, f.uc.CheckCampaignQuota(ctx, companyID))
	})
}

func TestConsumeInterview(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	f := newBillingFixture()
	sub := activeSub(companyID, "pro")
	f.repo.On("GetSubscription", ctx, companyID).Return(sub, nil)
	f.repo.On("ConsumeInterview", ctx, companyID, mock.Anything, 500).Return(true, nil).Once()
	f.repo.On("ConsumeInterview", ctx, companyID, mock.Anything, 500).Return(false, nil).Once()

	assert.NoError(t, f.uc.ConsumeInterview(ctx, companyID))
	err := f.uc.ConsumeInterview(ctx, companyID)
	assert.Equal(t, http.StatusPaymentRequired, apperror.CodeOf(err))
}

func TestRequireSSO(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	f := newBillingFixture()
	f.repo.On("GetSubscription", ctx, companyID).Return(nil, domain.ErrNotFound)
	assert.Equal(t, http.StatusPaymentRequired, apperror.CodeOf(f.uc.RequireSSO(ctx, companyID)))
}

func TestChangePlan(t *testing.T) {
	companyID := uuid.New()

	t.Run("only owners", func(t *testing.T) {
		f := newBillingFixture()
		_, err := f.uc.ChangePlan(principalCtx(companyID, domain.RoleAdmin), "pro")
		assert.Equal(t, http.StatusForbidden, apperror.CodeOf(err))
	})

	t.Run("unknown plan", func(t *testing.T) {
		f := newBillingFixture()
		f.repo.On("GetPlan", mock.Anything, "platinum").Return(nil, domain.ErrNotFound)
		_, err := f.uc.ChangePlan(principalCtx(companyID, domain.RoleOwner), "platinum")
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
	})

	t.Run("downgrade over usage conflicts", func(t *testing.T) {
		f := newBillingFixture()
		ctx := principalCtx(companyID, domain.RoleOwner)
		f.repo.On("GetSubscription", ctx, companyID).Return(activeSub(companyID, "pro"), nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(4), nil)
		f.users.On("CountActiveByCompany", ctx, companyID).Return(int64(2), nil)
		f.repo.On("InterviewUsage", ctx, companyID, mock.Anything).Return(int64(3), nil)

		_, err := f.uc.ChangePlan(ctx, "free")
		assert.Equal(t, http.StatusConflict, apperror.CodeOf(err))
		f.repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything)
	})

	t.Run("same plan conflicts", func(t *testing.T) {
		f := newBillingFixture()
		ctx := principalCtx(companyID, domain.RoleOwner)
		f.repo.On("GetSubscription", ctx, companyID).Return(activeSub(companyID, "free"), nil)

		_, err := f.uc.ChangePlan(ctx, "free")
		assert.Equal(t, http.StatusConflict, apperror.CodeOf(err))
		f.repo.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything)
	})

	t.Run("same plan resumes a pending cancellation", func(t *testing.T) {
		f := newBillingFixture()
		ctx := principalCtx(companyID, domain.RoleOwner)
		sub := activeSub(companyID, "pro")
		sub.CancelAtPeriodEnd = true
		start := sub.CurrentPeriodStart
		f.repo.On("GetSubscription", ctx, companyID).Return(sub, nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(1), nil)
		f.users.On("CountActiveByCompany", ctx, companyID).Return(int64(2), nil)
		f.repo.On("InterviewUsage", ctx, companyID, mock.Anything).Return(int64(40), nil)
		f.repo.On("UpdateSubscription", ctx, sub).Return(nil)

		overview, err := f.uc.ChangePlan(ctx, "pro")
		require.NoError(t, err)
		assert.False(t, overview.Subscription.CancelAtPeriodEnd)
		assert.Equal(t, start, sub.CurrentPeriodStart)
		assert.Empty(t, f.audit.types())
	})

	t.Run("round trip keeps the interview counter", func(t *testing.T) {
		f := newBillingFixture()
		ctx := principalCtx(companyID, domain.RoleOwner)
		sub := activeSub(companyID, "free")
		start := sub.CurrentPeriodStart
		f.repo.On("GetSubscription", ctx, companyID).Return(sub, nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(1), nil)
		f.users.On("CountActiveByCompany", ctx, companyID).Return(int64(2), nil)
		f.repo.On("InterviewUsage", ctx, companyID, start.UTC()).Return(int64(10), nil)
		f.repo.On("UpdateSubscription", ctx, sub).Return(nil)
		f.repo.On("ConsumeInterview", ctx, companyID, start.UTC(), 10).Return(false, nil)

		_, err := f.uc.ChangePlan(ctx, "pro")
		require.NoError(t, err)
		_, err = f.uc.ChangePlan(ctx, "free")
		require.NoError(t, err)
		assert.Equal(t, start, sub.CurrentPeriodStart)

		err = f.uc.ConsumeInterview(ctx, companyID)
		assert.Equal(t, http.StatusPaymentRequired, apperror.CodeOf(err))
		f.repo.AssertNotCalled(t, "CarryInterviewUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lapsed period carries this month's usage", func(t *testing.T) {
		f := newBillingFixture()
		ctx := principalCtx(companyID, domain.RoleOwner)
		sub := activeSub(companyID, "free")
		sub.Status = domain.SubscriptionTrialing
		sub.CurrentPeriodStart = time.Now().UTC().AddDate(0, 0, -20)
		sub.CurrentPeriodEnd = time.Now().UTC().Add(-time.Hour)
		now := time.Now().UTC()
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		f.repo.On("GetSubscription", ctx, companyID).Return(sub, nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(1), nil)
		f.users.On("CountActiveByCompany", ctx, companyID).Return(int64(2), nil)
		f.repo.On("InterviewUsage", ctx, companyID, mock.Anything).Return(int64(7), nil)
		f.repo.On("CarryInterviewUsage", ctx, companyID, month, mock.AnythingOfType("time.Time")).Return(nil).Once()
		f.repo.On("UpdateSubscription", ctx, sub).Return(nil)

		_, err := f.uc.ChangePlan(ctx, "pro")
		require.NoError(t, err)
		assert.True(t, sub.CurrentPeriodEnd.After(time.Now()))
		f.repo.AssertExpectations(t)
	})

	t.Run("upgrade keeps the current period", func(t *testing.T) {
		f := newBillingFixture()
		ctx := principalCtx(companyID, domain.RoleOwner)
		sub := activeSub(companyID, "free")
		start, end := sub.CurrentPeriodStart, sub.CurrentPeriodEnd
		f.repo.On("GetSubscription", ctx, companyID).Return(sub, nil)
		f.campaigns.On("CountOpen", ctx, companyID).Return(int64(1), nil)
		f.users.On("CountActiveByCompany", ctx, companyID).Return(int64(2), nil)
		f.repo.On("InterviewUsage", ctx, companyID, mock.Anything).Return(int64(9), nil)
		f.repo.On("UpdateSubscription", ctx, mock.MatchedBy(func(s *domain.Subscription) bool {
			return s.PlanCode == "pro" && s.Status == domain.SubscriptionActive
		})).Return(nil)

		overview, err := f.uc.ChangePlan(ctx, "pro")
		require.NoError(t, err)
		assert.Equal(t, "pro", overview.Plan.Code)
		assert.Equal(t, start, sub.CurrentPeriodStart)
		assert.Equal(t, end, sub.CurrentPeriodEnd)
		assert.Equal(t, []domain.AuditEventType{domain.AuditPlanChanged}, f.audit.types())
	})
}

func TestHandleProviderEvent(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("bad signature", func(t *testing.T) {
		f := newBillingFixture()
		err := f.uc.HandleProviderEvent(ctx, []byte(`{}`), "sha256=deadbeef")
		assert.Equal(t, http.StatusUnauthorized, apperror.CodeOf(err))
		assert.Equal(t, []domain.AuditEventType{domain.AuditBadSignature}, f.audit.types())
	})

	t.Run("activation creates the subscription", func(t *testing.T) {
		f := newBillingFixture()
		start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		payload, err := json.Marshal(domain.BillingEvent{
			ID: "evt_1", Type: domain.BillingEventActivated, CompanyID: companyID, PlanCode: "pro",
			PeriodStart: start, PeriodEnd: start.AddDate(0, 1, 0),
		})
		require.NoError(t, err)

		f.repo.On("GetSubscription", mock.Anything, companyID).Return(nil, domain.ErrNotFound)
		f.repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s *domain.Subscription) bool {
			return s.PlanCode == "pro" && s.Status == domain.SubscriptionActive && s.CurrentPeriodStart.Equal(start)
		})).Return(nil)

		require.NoError(t, f.uc.HandleProviderEvent(ctx, payload, webhook.SignBody("whsec_test", payload)))
		f.repo.AssertExpectations(t)
	})

	t.Run("past due on unknown subscription", func(t *testing.T) {
		f := newBillingFixture()
		payload, _ := json.Marshal(domain.BillingEvent{Type: domain.BillingEventPastDue, CompanyID: companyID})
		f.repo.On("GetSubscription", mock.Anything, companyID).Return(nil, domain.ErrNotFound)

		err := f.uc.HandleProviderEvent(ctx, payload, webhook.SignBody("whsec_test", payload))
		assert.Equal(t, http.StatusNotFound, apperror.CodeOf(err))
	})
}
