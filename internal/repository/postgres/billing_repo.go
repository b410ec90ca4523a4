package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type billingRepo struct {
	db *pgxpool.Pool
}

func NewBillingRepository(db *pgxpool.Pool) domain.BillingRepository {
	return &billingRepo{db: db}
}

const planColumns = `code, name, monthly_price_cents, max_campaigns, max_interviews_per_month, max_seats, sso_enabled`

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var p domain.Plan
	if err := row.Scan(&p.Code, &p.Name, &p.MonthlyPriceCents, &p.MaxCampaigns, &p.MaxInterviewsPerMonth, &p.MaxSeats, &p.SSOEnabled); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *billingRepo) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+planColumns+` FROM plans ORDER BY monthly_price_cents ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []domain.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func (r *billingRepo) GetPlan(ctx context.Context, code string) (*domain.Plan, error) {
	p, err := scanPlan(conn(ctx, r.db).QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE code = $1`, code))
	return p, mapErr(err, "")
}

func (r *billingRepo) GetSubscription(ctx context.Context, companyID uuid.UUID) (*domain.Subscription, error) {
	var s domain.Subscription
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, company_id, plan_code, status, current_period_start, current_period_end,
			cancel_at_period_end, COALESCE(external_ref, ''), created_at, updated_at
		FROM subscriptions WHERE company_id = $1`, companyID).Scan(
		&s.ID, &s.CompanyID, &s.PlanCode, &s.Status, &s.CurrentPeriodStart, &s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd, &s.ExternalRef, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err, "")
	}
	return &s, nil
}

func (r *billingRepo) CreateSubscription(ctx context.Context, s *domain.Subscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO subscriptions (id, company_id, plan_code, status, current_period_start, current_period_end,
			cancel_at_period_end, external_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NOW(), NOW())
		RETURNING created_at, updated_at`,
		s.ID, s.CompanyID, s.PlanCode, s.Status, s.CurrentPeriodStart, s.CurrentPeriodEnd,
		s.CancelAtPeriodEnd, s.ExternalRef,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapErr(err, "Company already has a subscription")
}

func (r *billingRepo) UpdateSubscription(ctx context.Context, s *domain.Subscription) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE subscriptions SET plan_code = $2, status = $3, current_period_start = $4, current_period_end = $5,
			cancel_at_period_end = $6, external_ref = NULLIF($7, ''), updated_at = NOW()
		WHERE company_id = $1
		RETURNING id, updated_at`,
		s.CompanyID, s.PlanCode, s.Status, s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CancelAtPeriodEnd, s.ExternalRef,
	).Scan(&s.ID, &s.UpdatedAt)
	return mapErr(err, "")
}

// ConsumeInterview increments the counter in one statement; the conditional
// DO UPDATE returns no row once the limit is reached.
func (r *billingRepo) ConsumeInterview(ctx context.Context, companyID uuid.UUID, periodStart time.Time, limit int) (bool, error) {
	var used int64
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO usage_counters (company_id, period_start, interviews_used)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, period_start) DO UPDATE
			SET interviews_used = usage_counters.interviews_used + 1
			WHERE $3::int = 0 OR usage_counters.interviews_used < $3::int
		RETURNING interviews_used`, companyID, periodStart, limit).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *billingRepo) InterviewUsage(ctx context.Context, companyID uuid.UUID, periodStart time.Time) (int64, error) {
	var used int64
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT interviews_used FROM usage_counters WHERE company_id = $1 AND period_start = $2`,
		companyID, periodStart).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return used, err
}

func (r *billingRepo) CarryInterviewUsage(ctx context.Context, companyID uuid.UUID, from, to time.Time) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO usage_counters (company_id, period_start, interviews_used)
		SELECT company_id, $3, interviews_used FROM usage_counters
		WHERE company_id = $1 AND period_start = $2
		ON CONFLICT (company_id, period_start) DO UPDATE
			SET interviews_used = GREATEST(usage_counters.interviews_used, EXCLUDED.interviews_used)`,
		companyID, from, to)
	return err
}

func (r *billingRepo) CountByPlan(ctx context.Context) (map[string]int64, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT plan_code, COUNT(*) FROM subscriptions GROUP BY plan_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var (
			code string
			n    int64
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		counts[code] = n
	}
	return counts, rows.Err()
}
