package domain

import (
	"context"

	"github.com/google/uuid"
)

type EmailKind string

const (
	EmailInterviewInvite EmailKind = "interview_invite"
	EmailTeamInvite      EmailKind = "team_invite"
	EmailInterviewDone   EmailKind = "interview_completed"
)

type EmailMessage struct {
	Kind    EmailKind         `json:"kind"`
	To      string            `json:"to"`
	Name    string            `json:"name"`
	Subject string            `json:"subject"`
	Data    map[string]string `json:"data"`
}

// JobQueue enqueues background work.
type JobQueue interface {
	EnqueueWebhookDelivery(ctx context.Context, deliveryID uuid.UUID) error
	EnqueueEmail(ctx context.Context, msg EmailMessage) error
	EnqueueQuestionGeneration(ctx context.Context, companyID, campaignID uuid.UUID, req GenerateQuestionsRequest) error
}

// Mailer sends a rendered transactional email.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}
