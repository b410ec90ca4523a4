package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
	"github.com/Gradiiai/gradii-sub007/pkg/webhook"
)

type billingUsecase struct {
	repo          domain.BillingRepository
	campaignRepo  domain.CampaignRepository
	userRepo      domain.UserRepository
	audit         domain.AuditLogger
	webhookSecret string
	trialDays     int
	now           func() time.Time
}

func NewBillingUsecase(
	repo domain.BillingRepository,
	campaignRepo domain.CampaignRepository,
	userRepo domain.UserRepository,
	audit domain.AuditLogger,
	webhookSecret string,
	trialDays int,
) domain.BillingUsecase {
	if trialDays <= 0 {
		trialDays = 14
	}
	return &billingUsecase{
		repo:          repo,
		campaignRepo:  campaignRepo,
		userRepo:      userRepo,
		audit:         audit,
		webhookSecret: webhookSecret,
		trialDays:     trialDays,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// effectivePlan resolves the plan whose limits apply right now. Cancelled or
// lapsed subscriptions fall back to the free plan; past_due keeps its plan.
func (u *billingUsecase) effectivePlan(ctx context.Context, companyID uuid.UUID) (*domain.Plan, *domain.Subscription, error) {
	sub, err := u.repo.GetSubscription(ctx, companyID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	code := domain.PlanFree
	if sub != nil && sub.Status != domain.SubscriptionCancelled &&
		!(sub.CancelAtPeriodEnd && u.now().After(sub.CurrentPeriodEnd)) {
		code = sub.PlanCode
	}
	plan, err := u.repo.GetPlan(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("load plan %q: %w", code, err)
	}
	return plan, sub, nil
}

// periodStart is the subscription period when it covers now, else the calendar month.
func (u *billingUsecase) periodStart(sub *domain.Subscription) time.Time {
	now := u.now()
	if sub != nil && !sub.CurrentPeriodStart.After(now) && now.Before(sub.CurrentPeriodEnd) {
		return sub.CurrentPeriodStart.UTC()
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (u *billingUsecase) CheckCampaignQuota(ctx context.Context, companyID uuid.UUID) error {
	plan, _, err := u.effectivePlan(ctx, companyID)
	if err != nil {
		return err
	}
	if plan.MaxCampaigns == 0 {
		return nil
	}
	open, err := u.campaignRepo.CountOpen(ctx, companyID)
	if err != nil {
		return err
	}
	if open >= int64(plan.MaxCampaigns) {
		return apperror.PaymentRequired(fmt.Sprintf("The %s plan allows %d open campaigns", plan.Name, plan.MaxCampaigns))
	}
	return nil
}

func (u *billingUsecase) CheckSeatQuota(ctx context.Context, companyID uuid.UUID) error {
	plan, _, err := u.effectivePlan(ctx, companyID)
	if err != nil {
		return err
	}
	if plan.MaxSeats == 0 {
		return nil
	}
	seats, err := u.userRepo.CountActiveByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if seats >= int64(plan.MaxSeats) {
		return apperror.PaymentRequired(fmt.Sprintf("The %s plan allows %d team members", plan.Name, plan.MaxSeats))
	}
	return nil
}

func (u *billingUsecase) ConsumeInterview(ctx context.Context, companyID uuid.UUID) error {
	plan, sub, err := u.effectivePlan(ctx, companyID)
	if err != nil {
		return err
	}
	ok, err := u.repo.ConsumeInterview(ctx, companyID, u.periodStart(sub), plan.MaxInterviewsPerMonth)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.PaymentRequired(fmt.Sprintf("Monthly interview limit of the %s plan reached", plan.Name))
	}
	return nil
}

func (u *billingUsecase) RequireSSO(ctx context.Context, companyID uuid.UUID) error {
	plan, _, err := u.effectivePlan(ctx, companyID)
	if err != nil {
		return err
	}
	if !plan.SSOEnabled {
		return apperror.PaymentRequired("SSO is not available on the current plan")
	}
	return nil
}

func (u *billingUsecase) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return u.repo.ListPlans(ctx)
}

func (u *billingUsecase) usage(ctx context.Context, companyID uuid.UUID, sub *domain.Subscription) (domain.Usage, error) {
	var usage domain.Usage
	var err error
	if usage.OpenCampaigns, err = u.campaignRepo.CountOpen(ctx, companyID); err != nil {
		return usage, err
	}
	if usage.Seats, err = u.userRepo.CountActiveByCompany(ctx, companyID); err != nil {
		return usage, err
	}
	if usage.InterviewsThisPeriod, err = u.repo.InterviewUsage(ctx, companyID, u.periodStart(sub)); err != nil {
		return usage, err
	}
	return usage, nil
}

func (u *billingUsecase) overview(ctx context.Context, companyID uuid.UUID) (*domain.SubscriptionOverview, error) {
	plan, sub, err := u.effectivePlan(ctx, companyID)
	if err != nil {
		return nil, err
	}
	usage, err := u.usage(ctx, companyID, sub)
	if err != nil {
		return nil, err
	}
	return &domain.SubscriptionOverview{Subscription: sub, Plan: plan, Usage: usage}, nil
}

func (u *billingUsecase) GetSubscription(ctx context.Context) (*domain.SubscriptionOverview, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return u.overview(ctx, p.CompanyID)
}

func ownerOnly(ctx context.Context) (*domain.Principal, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Role != domain.RoleOwner {
		return nil, apperror.Forbidden("Only the company owner can manage billing")
	}
	return p, nil
}

// ChangePlan rejects downgrades the company's current usage would not fit in.
func (u *billingUsecase) ChangePlan(ctx context.Context, planCode string) (*domain.SubscriptionOverview, error) {
	p, err := ownerOnly(ctx)
	if err != nil {
		return nil, err
	}
	target, err := u.repo.GetPlan(ctx, planCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.BadRequest("Unknown plan")
		}
		return nil, err
	}

	current, sub, err := u.effectivePlan(ctx, p.CompanyID)
	if err != nil {
		return nil, err
	}
	if sub != nil && sub.Status == domain.SubscriptionActive && current.Code == target.Code {
		if !sub.CancelAtPeriodEnd {
			return nil, apperror.Conflict(fmt.Sprintf("The company is already on the %s plan", target.Name))
		}
		// choosing the same plan again resumes a pending cancellation
		sub.CancelAtPeriodEnd = false
		if err := u.repo.UpdateSubscription(ctx, sub); err != nil {
			return nil, err
		}
		return u.overview(ctx, p.CompanyID)
	}
	usage, err := u.usage(ctx, p.CompanyID, sub)
	if err != nil {
		return nil, err
	}
	if exceeds(usage.OpenCampaigns, target.MaxCampaigns) || exceeds(usage.Seats, target.MaxSeats) ||
		exceeds(usage.InterviewsThisPeriod, target.MaxInterviewsPerMonth) {
		return nil, apperror.Conflict(fmt.Sprintf("Current usage exceeds the limits of the %s plan", target.Name))
	}

	if _, err := u.SetPlan(ctx, p.CompanyID, target.Code); err != nil {
		return nil, err
	}
	return u.overview(ctx, p.CompanyID)
}

func exceeds(used int64, limit int) bool {
	return limit > 0 && used > int64(limit)
}

func (u *billingUsecase) Cancel(ctx context.Context) (*domain.SubscriptionOverview, error) {
	p, err := ownerOnly(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := u.repo.GetSubscription(ctx, p.CompanyID)
	if err != nil {
		return nil, notFound(err, "Subscription not found")
	}
	if sub.Status == domain.SubscriptionCancelled {
		return nil, apperror.Conflict("Subscription is already cancelled")
	}
	sub.CancelAtPeriodEnd = true
	if err := u.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return u.overview(ctx, p.CompanyID)
}

func (u *billingUsecase) StartTrial(ctx context.Context, companyID uuid.UUID) (*domain.Subscription, error) {
	now := u.now()
	sub := &domain.Subscription{
		CompanyID:          companyID,
		PlanCode:           domain.PlanFree,
		Status:             domain.SubscriptionTrialing,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 0, u.trialDays),
	}
	if err := u.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SetPlan moves a company onto planCode. A period that still covers now is kept so
// the interview counter carries over; otherwise a monthly period starts and the
// usage already counted this month moves with it.
func (u *billingUsecase) SetPlan(ctx context.Context, companyID uuid.UUID, planCode string) (*domain.Subscription, error) {
	plan, err := u.repo.GetPlan(ctx, planCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.BadRequest("Unknown plan")
		}
		return nil, err
	}

	now := u.now()
	sub, err := u.repo.GetSubscription(ctx, companyID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		sub = &domain.Subscription{CompanyID: companyID}
	case err != nil:
		return nil, err
	}

	previous := sub.PlanCode
	if sub.ID == uuid.Nil || sub.Status == domain.SubscriptionCancelled ||
		sub.CurrentPeriodStart.After(now) || !now.Before(sub.CurrentPeriodEnd) {
		from := u.periodStart(sub)
		if err := u.repo.CarryInterviewUsage(ctx, companyID, from, now); err != nil {
			return nil, fmt.Errorf("carry interview usage: %w", err)
		}
		sub.CurrentPeriodStart = now
		sub.CurrentPeriodEnd = now.AddDate(0, 1, 0)
	}
	sub.PlanCode = plan.Code
	sub.Status = domain.SubscriptionActive
	sub.CancelAtPeriodEnd = false

	if sub.ID == uuid.Nil {
		err = u.repo.CreateSubscription(ctx, sub)
	} else {
		err = u.repo.UpdateSubscription(ctx, sub)
	}
	if err != nil {
		return nil, err
	}

	u.audit.Log(ctx, domain.AuditEvent{
		Type: domain.AuditPlanChanged, SubjectType: "company", SubjectValue: companyID.String(),
		Details: map[string]any{"from": previous, "to": plan.Code},
	})
	return sub, nil
}

// HandleProviderEvent applies a signed notification from the billing provider.
func (u *billingUsecase) HandleProviderEvent(ctx context.Context, payload []byte, signature string) error {
	if err := webhook.VerifyBody(u.webhookSecret, payload, signature); err != nil {
		u.audit.Log(ctx, domain.AuditEvent{Type: domain.AuditBadSignature, Details: map[string]any{"error": err.Error()}})
		return apperror.Unauthorized("Invalid signature")
	}

	var event domain.BillingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return apperror.BadRequest("Invalid billing event payload")
	}
	if event.CompanyID == uuid.Nil {
		return apperror.BadRequest("company_id is required")
	}
	ctx = logger.WithFields(ctx, zap.String("billing_event", event.ID), zap.String("type", event.Type))

	sub, err := u.repo.GetSubscription(ctx, event.CompanyID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	isNew := sub == nil

	switch event.Type {
	case domain.BillingEventActivated, domain.BillingEventRenewed:
		if isNew {
			sub = &domain.Subscription{CompanyID: event.CompanyID}
		}
		if event.PlanCode != "" {
			if _, err := u.repo.GetPlan(ctx, event.PlanCode); err != nil {
				return notFound(err, "Unknown plan")
			}
			sub.PlanCode = event.PlanCode
		}
		if sub.PlanCode == "" {
			return apperror.BadRequest("plan_code is required")
		}
		sub.Status = domain.SubscriptionActive
		sub.CancelAtPeriodEnd = false
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd = event.PeriodStart, event.PeriodEnd
		if sub.CurrentPeriodStart.IsZero() {
			sub.CurrentPeriodStart = u.now()
		}
		if !sub.CurrentPeriodEnd.After(sub.CurrentPeriodStart) {
			sub.CurrentPeriodEnd = sub.CurrentPeriodStart.AddDate(0, 1, 0)
		}
	case domain.BillingEventPastDue:
		if isNew {
			return apperror.NotFound("Subscription not found")
		}
		sub.Status = domain.SubscriptionPastDue
	case domain.BillingEventCancelled:
		if isNew {
			return apperror.NotFound("Subscription not found")
		}
		sub.Status = domain.SubscriptionCancelled
		sub.CancelAtPeriodEnd = false
	default:
		logger.Debug(ctx, "ignoring billing event")
		return nil
	}
	if event.ExternalRef != "" {
		sub.ExternalRef = event.ExternalRef
	}

	if isNew {
		err = u.repo.CreateSubscription(ctx, sub)
	} else {
		err = u.repo.UpdateSubscription(ctx, sub)
	}
	if err != nil {
		return err
	}
	logger.Info(ctx, "billing event applied", zap.String("status", string(sub.Status)), zap.String("plan", sub.PlanCode))
	return nil
}
