package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/email"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

// WebhookDeliverer makes one delivery attempt.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, deliveryID uuid.UUID, attempt int, final bool) error
}

// QuestionGenerator runs question generation outside a request.
type QuestionGenerator interface {
	RunGeneration(ctx context.Context, companyID, campaignID uuid.UUID, req domain.GenerateQuestionsRequest) ([]domain.Question, error)
}

// WebhookWorker retries failed deliveries with river's backoff. The last
// attempt marks the delivery failed.
type WebhookWorker struct {
	river.WorkerDefaults[WebhookDeliveryArgs]

	deliverer WebhookDeliverer
}

func NewWebhookWorker(deliverer WebhookDeliverer) *WebhookWorker {
	return &WebhookWorker{deliverer: deliverer}
}

func (w *WebhookWorker) Work(ctx context.Context, job *river.Job[WebhookDeliveryArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.Stringer("delivery_id", job.Args.DeliveryID))

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = WebhookMaxAttempts
	}
	final := job.Attempt >= maxAttempts

	if err := w.deliverer.Deliver(ctx, job.Args.DeliveryID, job.Attempt, final); err != nil {
		if final {
			return river.JobCancel(err) //nolint: wrapcheck
		}
		return fmt.Errorf("webhook delivery attempt %d: %w", job.Attempt, err)
	}
	return nil
}

type EmailWorker struct {
	river.WorkerDefaults[EmailArgs]

	mailer domain.Mailer
}

func NewEmailWorker(mailer domain.Mailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Work(ctx context.Context, job *river.Job[EmailArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.String("kind", string(job.Args.Message.Kind)))

	err := w.mailer.Send(ctx, job.Args.Message)
	if errors.Is(err, email.ErrNotConfigured) {
		logger.Warn(ctx, "email not sent, SMTP is not configured")
		return river.JobCancel(err) //nolint: wrapcheck
	}
	if err != nil {
		logger.Error(ctx, "could not send email", zap.Error(err))
		return fmt.Errorf("could not send email: %w", err)
	}

	logger.Info(ctx, "email sent")
	return nil
}

type QuestionWorker struct {
	river.WorkerDefaults[QuestionGenerationArgs]

	generator QuestionGenerator
}

func NewQuestionWorker(generator QuestionGenerator) *QuestionWorker {
	return &QuestionWorker{generator: generator}
}

func (w *QuestionWorker) Work(ctx context.Context, job *river.Job[QuestionGenerationArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.Stringer("campaign_id", job.Args.CampaignID))

	questions, err := w.generator.RunGeneration(ctx, job.Args.CompanyID, job.Args.CampaignID, job.Args.Request)
	if err != nil {
		// campaign gone or closed, retrying will not help
		if appErr, ok := apperror.As(err); ok && appErr.Code < http.StatusInternalServerError {
			logger.Warn(ctx, "question generation dropped", zap.Error(err))
			return river.JobCancel(err) //nolint: wrapcheck
		}
		logger.Error(ctx, "question generation failed", zap.Error(err))
		return fmt.Errorf("could not generate questions: %w", err)
	}

	logger.Info(ctx, "questions generated", zap.Int("count", len(questions)))
	return nil
}
