package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookEvent string

const (
	EventCandidateCreated       WebhookEvent = "candidate.created"
	EventCandidateStatusChanged WebhookEvent = "candidate.status_changed"
	EventInterviewScheduled     WebhookEvent = "interview.scheduled"
	EventInterviewStarted       WebhookEvent = "interview.started"
	EventInterviewCompleted     WebhookEvent = "interview.completed"
	EventInterviewCancelled     WebhookEvent = "interview.cancelled"
	EventCampaignStatusChanged  WebhookEvent = "campaign.status_changed"
	EventQuestionsGenerated     WebhookEvent = "questions.generated"
	EventWebhookTest            WebhookEvent = "webhook.test"
)

// WebhookEvents lists the events endpoints can subscribe to.
var WebhookEvents = []WebhookEvent{
	EventCandidateCreated,
	EventCandidateStatusChanged,
	EventInterviewScheduled,
	EventInterviewStarted,
	EventInterviewCompleted,
	EventInterviewCancelled,
	EventCampaignStatusChanged,
	EventQuestionsGenerated,
}

func (e WebhookEvent) Valid() bool {
	for _, known := range WebhookEvents {
		if e == known {
			return true
		}
	}
	return false
}

type Webhook struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	URL       string    `json:"url"`
	Secret    string    `json:"secret,omitempty"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// MaxDeliveryAttempts bounds retries of a single delivery.
const MaxDeliveryAttempts = 8

type WebhookDelivery struct {
	ID           uuid.UUID       `json:"id"`
	WebhookID    uuid.UUID       `json:"webhook_id"`
	Event        WebhookEvent    `json:"event"`
	Payload      json.RawMessage `json:"payload"`
	Status       DeliveryStatus  `json:"status"`
	Attempts     int             `json:"attempts"`
	LastError    string          `json:"last_error,omitempty"`
	ResponseCode *int            `json:"response_code,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// WebhookEnvelope is the JSON body POSTed to subscribers.
type WebhookEnvelope struct {
	ID        uuid.UUID    `json:"id"`
	Event     WebhookEvent `json:"event"`
	CreatedAt time.Time    `json:"created_at"`
	Data      any          `json:"data"`
}

type WebhookInput struct {
	URL    string   `json:"url" binding:"required,url,max=2048"`
	Events []string `json:"events" binding:"required,min=1,dive,required"`
	Active *bool    `json:"active"`
}

type WebhookRepository interface {
	Create(ctx context.Context, webhook *Webhook) error
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Webhook, error)
	List(ctx context.Context, companyID uuid.UUID) ([]Webhook, error)
	ListSubscribed(ctx context.Context, companyID uuid.UUID, event WebhookEvent) ([]Webhook, error)
	Update(ctx context.Context, webhook *Webhook) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error

	CreateDelivery(ctx context.Context, delivery *WebhookDelivery) error
	GetDelivery(ctx context.Context, id uuid.UUID) (*WebhookDelivery, *Webhook, error)
	ListDeliveries(ctx context.Context, webhookID uuid.UUID, page Page) ([]WebhookDelivery, int64, error)
	UpdateDelivery(ctx context.Context, delivery *WebhookDelivery) error
}

// EventPublisher fans a domain event out to subscribed webhooks.
// Publishing is best-effort and never fails the calling operation.
type EventPublisher interface {
	Publish(ctx context.Context, companyID uuid.UUID, event WebhookEvent, data any)
}

type WebhookUsecase interface {
	EventPublisher
	Create(ctx context.Context, input WebhookInput) (*Webhook, error)
	List(ctx context.Context) ([]Webhook, error)
	Get(ctx context.Context, id uuid.UUID) (*Webhook, error)
	Update(ctx context.Context, id uuid.UUID, input WebhookInput) (*Webhook, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListDeliveries(ctx context.Context, id uuid.UUID, page, pageSize int) (*PaginatedResult[WebhookDelivery], error)
	Redeliver(ctx context.Context, id, deliveryID uuid.UUID) (*WebhookDelivery, error)
	SendTest(ctx context.Context, id uuid.UUID) (*WebhookDelivery, error)
	// Deliver performs one delivery attempt; final marks the last allowed attempt.
	Deliver(ctx context.Context, deliveryID uuid.UUID, attempt int, final bool) error
}
