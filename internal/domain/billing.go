package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const PlanFree = "free"

// Plan limits use 0 for unlimited.
type Plan struct {
	Code                  string `json:"code"`
	Name                  string `json:"name"`
	MonthlyPriceCents     int64  `json:"monthly_price_cents"`
	MaxCampaigns          int    `json:"max_campaigns"`
	MaxInterviewsPerMonth int    `json:"max_interviews_per_month"`
	MaxSeats              int    `json:"max_seats"`
	SSOEnabled            bool   `json:"sso_enabled"`
}

type SubscriptionStatus string

const (
	SubscriptionTrialing  SubscriptionStatus = "trialing"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type Subscription struct {
	ID                 uuid.UUID          `json:"id"`
	CompanyID          uuid.UUID          `json:"company_id"`
	PlanCode           string             `json:"plan_code"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	ExternalRef        string             `json:"external_ref,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type Usage struct {
	OpenCampaigns        int64 `json:"open_campaigns"`
	InterviewsThisPeriod int64 `json:"interviews_this_period"`
	Seats                int64 `json:"seats"`
}

type SubscriptionOverview struct {
	Subscription *Subscription `json:"subscription"`
	Plan         *Plan         `json:"plan"`
	Usage        Usage         `json:"usage"`
}

type ChangePlanRequest struct {
	PlanCode string `json:"plan_code" binding:"required,max=50"`
}

// BillingEvent is the notification sent by the billing provider.
type BillingEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	CompanyID   uuid.UUID `json:"company_id"`
	PlanCode    string    `json:"plan_code"`
	ExternalRef string    `json:"external_ref"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

const (
	BillingEventActivated = "subscription.activated"
	BillingEventRenewed   = "subscription.renewed"
	BillingEventPastDue   = "subscription.past_due"
	BillingEventCancelled = "subscription.cancelled"
)

type BillingRepository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, code string) (*Plan, error)
	GetSubscription(ctx context.Context, companyID uuid.UUID) (*Subscription, error)
	CreateSubscription(ctx context.Context, sub *Subscription) error
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	// ConsumeInterview increments the period counter unless it already reached limit (0 = unlimited).
	ConsumeInterview(ctx context.Context, companyID uuid.UUID, periodStart time.Time, limit int) (bool, error)
	InterviewUsage(ctx context.Context, companyID uuid.UUID, periodStart time.Time) (int64, error)
	// CarryInterviewUsage copies the counter of one period onto another, keeping the larger value.
	CarryInterviewUsage(ctx context.Context, companyID uuid.UUID, from, to time.Time) error
	CountByPlan(ctx context.Context) (map[string]int64, error)
}

// QuotaChecker enforces plan limits for other usecases.
type QuotaChecker interface {
	CheckCampaignQuota(ctx context.Context, companyID uuid.UUID) error
	CheckSeatQuota(ctx context.Context, companyID uuid.UUID) error
	ConsumeInterview(ctx context.Context, companyID uuid.UUID) error
	RequireSSO(ctx context.Context, companyID uuid.UUID) error
}

type BillingUsecase interface {
	QuotaChecker
	ListPlans(ctx context.Context) ([]Plan, error)
	GetSubscription(ctx context.Context) (*SubscriptionOverview, error)
	ChangePlan(ctx context.Context, planCode string) (*SubscriptionOverview, error)
	Cancel(ctx context.Context) (*SubscriptionOverview, error)
	StartTrial(ctx context.Context, companyID uuid.UUID) (*Subscription, error)
	SetPlan(ctx context.Context, companyID uuid.UUID, planCode string) (*Subscription, error)
	HandleProviderEvent(ctx context.Context, payload []byte, signature string) error
}
