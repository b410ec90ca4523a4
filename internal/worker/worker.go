// Package worker runs background jobs on river: webhook deliveries,
// transactional emails and asynchronous question generation.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

type Deps struct {
	Webhooks  WebhookDeliverer
	Questions QuestionGenerator
	Mailer    domain.Mailer
}

// Workers registers every job kind on a river bundle.
func Workers(deps Deps) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewWebhookWorker(deps.Webhooks))
	river.AddWorker(workers, NewEmailWorker(deps.Mailer))
	river.AddWorker(workers, NewQuestionWorker(deps.Questions))
	return workers
}

// Start runs the processing client. maxWorkers bounds the webhook queue; the
// other queues get a share of it.
func Start(ctx context.Context, pool *pgxpool.Pool, deps Deps, maxWorkers int) (*river.Client[pgx.Tx], error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueWebhooks: {MaxWorkers: maxWorkers},
			QueueEmails:   {MaxWorkers: max(1, maxWorkers/2)},
			QueueAI:       {MaxWorkers: max(1, maxWorkers/5)},
		},
		Workers: Workers(deps),
		Logger:  slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
