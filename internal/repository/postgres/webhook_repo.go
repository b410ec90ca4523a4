package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type webhookRepo struct {
	db *pgxpool.Pool
}

func NewWebhookRepository(db *pgxpool.Pool) domain.WebhookRepository {
	return &webhookRepo{db: db}
}

const webhookColumns = `w.id, w.company_id, w.url, w.secret, w.events, w.active, w.created_at, w.updated_at`

const deliveryColumns = `d.id, d.webhook_id, d.event, d.payload, d.status, d.attempts, COALESCE(d.last_error, ''),
	d.response_code, d.delivered_at, d.created_at, d.updated_at`

func scanWebhook(row pgx.Row) (*domain.Webhook, error) {
	var w domain.Webhook
	if err := row.Scan(&w.ID, &w.CompanyID, &w.URL, &w.Secret, &w.Events, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func deliveryDest(d *domain.WebhookDelivery) []any {
	return []any{
		&d.ID, &d.WebhookID, &d.Event, &d.Payload, &d.Status, &d.Attempts, &d.LastError,
		&d.ResponseCode, &d.DeliveredAt, &d.CreatedAt, &d.UpdatedAt,
	}
}

func (r *webhookRepo) Create(ctx context.Context, w *domain.Webhook) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO webhooks (id, company_id, url, secret, events, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`,
		w.ID, w.CompanyID, w.URL, w.Secret, w.Events, w.Active,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
}

func (r *webhookRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Webhook, error) {
	w, err := scanWebhook(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+webhookColumns+` FROM webhooks w WHERE w.id = $1 AND w.company_id = $2`, id, companyID))
	return w, mapErr(err, "")
}

func (r *webhookRepo) list(ctx context.Context, query string, args ...any) ([]domain.Webhook, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	webhooks := []domain.Webhook{}
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, *w)
	}
	return webhooks, rows.Err()
}

func (r *webhookRepo) List(ctx context.Context, companyID uuid.UUID) ([]domain.Webhook, error) {
	return r.list(ctx, `SELECT `+webhookColumns+` FROM webhooks w WHERE w.company_id = $1 ORDER BY w.created_at ASC`, companyID)
}

func (r *webhookRepo) ListSubscribed(ctx context.Context, companyID uuid.UUID, event domain.WebhookEvent) ([]domain.Webhook, error) {
	return r.list(ctx, `SELECT `+webhookColumns+` FROM webhooks w
		WHERE w.company_id = $1 AND w.active = TRUE AND $2 = ANY(w.events)`, companyID, string(event))
}

func (r *webhookRepo) Update(ctx context.Context, w *domain.Webhook) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE webhooks SET url = $3, events = $4, active = $5, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING updated_at`, w.ID, w.CompanyID, w.URL, w.Events, w.Active).Scan(&w.UpdatedAt)
	return mapErr(err, "")
}

func (r *webhookRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return mustAffect(conn(ctx, r.db).Exec(ctx, `DELETE FROM webhooks WHERE id = $1 AND company_id = $2`, id, companyID))
}

func (r *webhookRepo) CreateDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = domain.DeliveryPending
	}
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO webhook_deliveries (id, webhook_id, event, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
		RETURNING created_at, updated_at`,
		d.ID, d.WebhookID, d.Event, []byte(d.Payload), d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

// GetDelivery returns the delivery together with its endpoint.
func (r *webhookRepo) GetDelivery(ctx context.Context, id uuid.UUID) (*domain.WebhookDelivery, *domain.Webhook, error) {
	var (
		d domain.WebhookDelivery
		w domain.Webhook
	)
	dest := append(deliveryDest(&d), &w.ID, &w.CompanyID, &w.URL, &w.Secret, &w.Events, &w.Active, &w.CreatedAt, &w.UpdatedAt)
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+deliveryColumns+`, `+webhookColumns+`
		FROM webhook_deliveries d JOIN webhooks w ON w.id = d.webhook_id
		WHERE d.id = $1`, id).Scan(dest...)
	if err != nil {
		return nil, nil, mapErr(err, "")
	}
	return &d, &w, nil
}

func (r *webhookRepo) ListDeliveries(ctx context.Context, webhookID uuid.UUID, page domain.Page) ([]domain.WebhookDelivery, int64, error) {
	q := conn(ctx, r.db)
	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM webhook_deliveries WHERE webhook_id = $1`, webhookID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `SELECT `+deliveryColumns+` FROM webhook_deliveries d
		WHERE d.webhook_id = $1 ORDER BY d.created_at DESC LIMIT $2 OFFSET $3`, webhookID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	deliveries := []domain.WebhookDelivery{}
	for rows.Next() {
		var d domain.WebhookDelivery
		if err := rows.Scan(deliveryDest(&d)...); err != nil {
			return nil, 0, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, total, rows.Err()
}

func (r *webhookRepo) UpdateDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE webhook_deliveries SET status = $2, attempts = $3, last_error = NULLIF($4, ''),
			response_code = $5, delivered_at = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.Status, d.Attempts, d.LastError, d.ResponseCode, d.DeliveredAt,
	).Scan(&d.UpdatedAt)
	return mapErr(err, "")
}
