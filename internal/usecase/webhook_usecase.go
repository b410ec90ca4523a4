package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
	"github.com/Gradiiai/gradii-sub007/pkg/metrics"
	"github.com/Gradiiai/gradii-sub007/pkg/webhook"
)

// WebhookSender posts a signed payload to a subscriber.
type WebhookSender interface {
	Send(ctx context.Context, r webhook.Request) (webhook.Result, error)
}

type webhookUsecase struct {
	repo      domain.WebhookRepository
	jobs      domain.JobQueue
	sender    WebhookSender
	metrics   *metrics.Metrics
	allowHTTP bool
	now       func() time.Time
}

// NewWebhookUsecase returns the endpoint manager and event publisher. allowHTTP permits
// plain http endpoints, for development.
func NewWebhookUsecase(repo domain.WebhookRepository, jobs domain.JobQueue, sender WebhookSender, m *metrics.Metrics, allowHTTP bool) domain.WebhookUsecase {
	return &webhookUsecase{
		repo:      repo,
		jobs:      jobs,
		sender:    sender,
		metrics:   m,
		allowHTTP: allowHTTP,
		now:       time.Now,
	}
}

// Publish queues one delivery per active endpoint subscribed to event.
func (u *webhookUsecase) Publish(ctx context.Context, companyID uuid.UUID, event domain.WebhookEvent, data any) {
	hooks, err := u.repo.ListSubscribed(ctx, companyID, event)
	if err != nil {
		warnOnErr(ctx, err, "failed to load webhook subscribers", zap.String("event", string(event)))
		return
	}
	for _, hook := range hooks {
		if _, err := u.queue(ctx, hook.ID, event, data); err != nil {
			warnOnErr(ctx, err, "failed to queue webhook delivery",
				zap.Stringer("webhook_id", hook.ID), zap.String("event", string(event)))
		}
	}
}

func (u *webhookUsecase) newDelivery(ctx context.Context, webhookID uuid.UUID, event domain.WebhookEvent, data any) (*domain.WebhookDelivery, error) {
	id := uuid.New()
	payload, err := json.Marshal(domain.WebhookEnvelope{
		ID:        id,
		Event:     event,
		CreatedAt: u.now().UTC(),
		Data:      data,
	})
	if err != nil {
		return nil, err
	}
	delivery := &domain.WebhookDelivery{
		ID:        id,
		WebhookID: webhookID,
		Event:     event,
		Payload:   payload,
		Status:    domain.DeliveryPending,
	}
	if err := u.repo.CreateDelivery(ctx, delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}

func (u *webhookUsecase) queue(ctx context.Context, webhookID uuid.UUID, event domain.WebhookEvent, data any) (*domain.WebhookDelivery, error) {
	delivery, err := u.newDelivery(ctx, webhookID, event, data)
	if err != nil {
		return nil, err
	}
	if err := u.jobs.EnqueueWebhookDelivery(ctx, delivery.ID); err != nil {
		return nil, err
	}
	return delivery, nil
}

func (u *webhookUsecase) validate(input domain.WebhookInput) ([]string, error) {
	parsed, err := url.Parse(input.URL)
	if err != nil || parsed.Host == "" {
		return nil, apperror.BadRequest("url: must be an absolute URL")
	}
	switch parsed.Scheme {
	case "https":
	case "http":
		if !u.allowHTTP {
			return nil, apperror.BadRequest("url: must use https")
		}
	default:
		return nil, apperror.BadRequest("url: must use https")
	}

	events := make([]string, 0, len(input.Events))
	seen := map[string]bool{}
	for _, e := range input.Events {
		e = strings.TrimSpace(e)
		if !domain.WebhookEvent(e).Valid() {
			return nil, apperror.BadRequest("events: unknown event " + e)
		}
		if !seen[e] {
			seen[e] = true
			events = append(events, e)
		}
	}
	return events, nil
}

// Create returns the endpoint with its signing secret; it is not shown again.
func (u *webhookUsecase) Create(ctx context.Context, input domain.WebhookInput) (*domain.Webhook, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	events, err := u.validate(input)
	if err != nil {
		return nil, err
	}
	secret, err := webhook.NewSecret()
	if err != nil {
		return nil, apperror.Internal(err)
	}

	hook := &domain.Webhook{
		CompanyID: p.CompanyID,
		URL:       input.URL,
		Secret:    secret,
		Events:    events,
		Active:    input.Active == nil || *input.Active,
	}
	if err := u.repo.Create(ctx, hook); err != nil {
		return nil, err
	}
	return hook, nil
}

func (u *webhookUsecase) List(ctx context.Context) ([]domain.Webhook, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	hooks, err := u.repo.List(ctx, p.CompanyID)
	if err != nil {
		return nil, err
	}
	for i := range hooks {
		hooks[i].Secret = ""
	}
	return hooks, nil
}

func (u *webhookUsecase) get(ctx context.Context, id uuid.UUID) (*domain.Webhook, error) {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	hook, err := u.repo.GetByID(ctx, p.CompanyID, id)
	if err != nil {
		return nil, notFound(err, "Webhook not found")
	}
	return hook, nil
}

func (u *webhookUsecase) Get(ctx context.Context, id uuid.UUID) (*domain.Webhook, error) {
	hook, err := u.get(ctx, id)
	if err != nil {
		return nil, err
	}
	hook.Secret = ""
	return hook, nil
}

func (u *webhookUsecase) Update(ctx context.Context, id uuid.UUID, input domain.WebhookInput) (*domain.Webhook, error) {
	hook, err := u.get(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := u.validate(input)
	if err != nil {
		return nil, err
	}
	hook.URL = input.URL
	hook.Events = events
	if input.Active != nil {
		hook.Active = *input.Active
	}
	if err := u.repo.Update(ctx, hook); err != nil {
		return nil, notFound(err, "Webhook not found")
	}
	hook.Secret = ""
	return hook, nil
}

func (u *webhookUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := companyPrincipal(ctx)
	if err != nil {
		return err
	}
	return notFound(u.repo.Delete(ctx, p.CompanyID, id), "Webhook not found")
}

func (u *webhookUsecase) ListDeliveries(ctx context.Context, id uuid.UUID, page, pageSize int) (*domain.PaginatedResult[domain.WebhookDelivery], error) {
	hook, err := u.get(ctx, id)
	if err != nil {
		return nil, err
	}
	pg := domain.NewPage(page, pageSize)
	deliveries, total, err := u.repo.ListDeliveries(ctx, hook.ID, pg)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(deliveries, total, pg), nil
}

// Redeliver puts an existing delivery back on the queue.
func (u *webhookUsecase) Redeliver(ctx context.Context, id, deliveryID uuid.UUID) (*domain.WebhookDelivery, error) {
	hook, err := u.get(ctx, id)
	if err != nil {
		return nil, err
	}
	delivery, _, err := u.repo.GetDelivery(ctx, deliveryID)
	if err != nil || delivery.WebhookID != hook.ID {
		return nil, apperror.NotFound("Delivery not found")
	}

	delivery.Status = domain.DeliveryPending
	delivery.LastError = ""
	if err := u.repo.UpdateDelivery(ctx, delivery); err != nil {
		return nil, err
	}
	if err := u.jobs.EnqueueWebhookDelivery(ctx, delivery.ID); err != nil {
		return nil, apperror.Unavailable("Could not queue the delivery", err)
	}
	return delivery, nil
}

// SendTest delivers a test event synchronously and returns the recorded outcome.
func (u *webhookUsecase) SendTest(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, error) {
	hook, err := u.get(ctx, id)
	if err != nil {
		return nil, err
	}
	delivery, err := u.newDelivery(ctx, hook.ID, domain.EventWebhookTest, map[string]any{
		"webhook_id": hook.ID,
		"message":    "This is a test event from Gradii",
	})
	if err != nil {
		return nil, err
	}
	if err := u.Deliver(ctx, delivery.ID, 1, true); err != nil {
		logger.Info(ctx, "test webhook delivery failed", zap.Stringer("webhook_id", hook.ID), zap.Error(err))
	}
	delivery, _, err = u.repo.GetDelivery(ctx, delivery.ID)
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// Deliver makes one attempt. The returned error asks the queue to retry; on the final
// attempt the delivery is marked failed first.
func (u *webhookUsecase) Deliver(ctx context.Context, deliveryID uuid.UUID, attempt int, final bool) error {
	delivery, hook, err := u.repo.GetDelivery(ctx, deliveryID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn(ctx, "webhook delivery vanished", zap.Stringer("delivery_id", deliveryID))
		return nil
	}
	if err != nil {
		return err
	}
	if delivery.Status == domain.DeliveryDelivered {
		return nil
	}
	if !hook.Active {
		delivery.Status = domain.DeliveryFailed
		delivery.LastError = "endpoint disabled"
		return u.repo.UpdateDelivery(ctx, delivery)
	}

	result, sendErr := u.sender.Send(ctx, webhook.Request{
		URL:        hook.URL,
		Secret:     hook.Secret,
		Event:      string(delivery.Event),
		DeliveryID: delivery.ID,
		Body:       delivery.Payload,
	})

	delivery.Attempts++
	if result.StatusCode != 0 {
		code := result.StatusCode
		delivery.ResponseCode = &code
	}
	if sendErr == nil {
		now := u.now()
		delivery.Status = domain.DeliveryDelivered
		delivery.LastError = ""
		delivery.DeliveredAt = &now
		u.metrics.WebhookDelivery(ctx, "delivered")
		return u.repo.UpdateDelivery(ctx, delivery)
	}

	delivery.LastError = sendErr.Error()
	if result.Body != "" {
		delivery.LastError += ": " + result.Body
	}
	outcome := "retry"
	if final {
		delivery.Status = domain.DeliveryFailed
		outcome = "failed"
	}
	u.metrics.WebhookDelivery(ctx, outcome)
	warnOnErr(ctx, u.repo.UpdateDelivery(ctx, delivery), "failed to record webhook attempt", zap.Stringer("delivery_id", delivery.ID))
	logger.Info(ctx, "webhook delivery attempt failed",
		zap.Stringer("delivery_id", delivery.ID), zap.Int("attempt", attempt), zap.Bool("final", final), zap.Error(sendErr))
	return sendErr
}
