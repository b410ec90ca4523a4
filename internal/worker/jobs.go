package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

const (
	QueueWebhooks = "webhooks"
	QueueEmails   = "emails"
	QueueAI       = "ai"

	WebhookMaxAttempts = 8
)

// inFlightStates dedupes only jobs that have not finished, so a redelivery or a
// later regeneration is accepted.
var inFlightStates = []rivertype.JobState{
	rivertype.JobStateAvailable,
	rivertype.JobStatePending,
	rivertype.JobStateRetryable,
	rivertype.JobStateRunning,
	rivertype.JobStateScheduled,
}

// WebhookDeliveryArgs delivers one recorded webhook_deliveries row.
type WebhookDeliveryArgs struct {
	DeliveryID uuid.UUID `json:"delivery_id" river:"unique"`
}

func (WebhookDeliveryArgs) Kind() string { return "webhook_delivery" }

func (WebhookDeliveryArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueWebhooks,
		MaxAttempts: WebhookMaxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByState: inFlightStates},
	}
}

type EmailArgs struct {
	Message domain.EmailMessage `json:"message"`
}

func (EmailArgs) Kind() string { return "email" }

func (EmailArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueEmails, MaxAttempts: 5}
}

type QuestionGenerationArgs struct {
	CompanyID  uuid.UUID                       `json:"company_id"`
	CampaignID uuid.UUID                       `json:"campaign_id" river:"unique"`
	Request    domain.GenerateQuestionsRequest `json:"request"`
}

func (QuestionGenerationArgs) Kind() string { return "question_generation" }

// InsertOpts keeps a single pending generation per campaign.
func (QuestionGenerationArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueAI,
		MaxAttempts: 3,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByState: inFlightStates},
	}
}

// Queue implements domain.JobQueue with an insert-only river client.
type Queue struct {
	client *river.Client[pgx.Tx]
}

func NewQueue(pool *pgxpool.Pool) (*Queue, error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}
	return &Queue{client: client}, nil
}

func (q *Queue) EnqueueWebhookDelivery(ctx context.Context, deliveryID uuid.UUID) error {
	return q.insert(ctx, WebhookDeliveryArgs{DeliveryID: deliveryID})
}

func (q *Queue) EnqueueEmail(ctx context.Context, msg domain.EmailMessage) error {
	return q.insert(ctx, EmailArgs{Message: msg})
}

func (q *Queue) EnqueueQuestionGeneration(ctx context.Context, companyID, campaignID uuid.UUID, req domain.GenerateQuestionsRequest) error {
	req.Async = false
	return q.insert(ctx, QuestionGenerationArgs{CompanyID: companyID, CampaignID: campaignID, Request: req})
}

func (q *Queue) insert(ctx context.Context, args river.JobArgs) error {
	if _, err := q.client.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("could not insert %s job: %w", args.Kind(), err)
	}
	return nil
}
