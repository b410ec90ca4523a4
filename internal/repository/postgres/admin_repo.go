package postgres

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type adminRepo struct {
	db *pgxpool.Pool
}

func NewAdminRepository(db *pgxpool.Pool) domain.AdminRepository {
	return &adminRepo{db: db}
}

// GetStats fetches dashboard statistics
func (r *adminRepo) GetStats(ctx context.Context) (*domain.AdminStats, error) {
	stats := &domain.AdminStats{
		Interviews:          map[string]int64{},
		SubscriptionsByPlan: map[string]int64{},
		SystemHealth: domain.SystemHealth{
			Status:      "healthy",
			LastChecked: time.Now().Format(time.RFC3339),
		},
	}

	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM companies),
			(SELECT COUNT(*) FROM companies WHERE status = 'active'),
			(SELECT COUNT(*) FROM companies WHERE status = 'suspended'),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM campaigns),
			(SELECT COUNT(*) FROM candidates)`).Scan(
		&stats.Companies.Total, &stats.Companies.Active, &stats.Companies.Suspended,
		&stats.Users, &stats.Campaigns, &stats.Candidates,
	)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM interviews GROUP BY status`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.Interviews[status] = n
	}
	rows.Close()

	// plan breakdown is informational, the dashboard still renders without it
	rows, err = r.db.Query(ctx, `SELECT plan_code, COUNT(*) FROM subscriptions GROUP BY plan_code`)
	if err != nil {
		stats.SystemHealth.Status = "degraded"
		return stats, nil
	}
	defer rows.Close()
	for rows.Next() {
		var (
			plan string
			n    int64
		)
		if err := rows.Scan(&plan, &n); err != nil {
			return nil, err
		}
		stats.SubscriptionsByPlan[plan] = n
	}
	return stats, rows.Err()
}

// ListCompanies lists tenants with their subscription and head counts
func (r *adminRepo) ListCompanies(ctx context.Context, filter domain.AdminCompanyFilter) ([]domain.AdminCompany, int64, error) {
	var where []exp.Expression
	if filter.Status != "" {
		where = append(where, goqu.I("co.status").Eq(filter.Status))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where = append(where, goqu.Or(goqu.I("co.name").ILike(pattern), goqu.I("co.slug").ILike(pattern)))
	}

	ds := dialect.From(goqu.T("companies").As("co")).
		Select(goqu.L(`co.id, co.name, co.slug, COALESCE(co.domain, ''), co.status, co.created_at, co.updated_at,
			COALESCE(s.plan_code, 'free'), COALESCE(s.status, 'active'),
			(SELECT COUNT(*) FROM users u WHERE u.company_id = co.id),
			(SELECT COUNT(*) FROM campaigns c WHERE c.company_id = co.id)`)).
		LeftJoin(goqu.T("subscriptions").As("s"), goqu.On(goqu.I("s.company_id").Eq(goqu.I("co.id")))).
		Where(where...).
		Order(goqu.I("co.created_at").Desc())

	rows, total, err := countAndSelect(ctx, r.db, ds, filter.Page)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	companies := []domain.AdminCompany{}
	for rows.Next() {
		var c domain.AdminCompany
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Slug, &c.Domain, &c.Status, &c.CreatedAt, &c.UpdatedAt,
			&c.PlanCode, &c.SubscriptionStatus, &c.UserCount, &c.CampaignCount,
		); err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}

// ListUsers fetches paginated users with optional role filter
func (r *adminRepo) ListUsers(ctx context.Context, role domain.Role, page domain.Page) ([]domain.AdminUser, int64, error) {
	var where []exp.Expression
	if role != "" {
		where = append(where, goqu.I("u.role").Eq(role))
	}

	ds := dialect.From(goqu.T("users").As("u")).
		Select(goqu.L(`u.id, u.company_id, u.email, u.name, u.role, u.is_disabled, u.totp_enabled,
			u.last_login_at, u.created_at, u.updated_at, COALESCE(co.name, '')`)).
		LeftJoin(goqu.T("companies").As("co"), goqu.On(goqu.I("co.id").Eq(goqu.I("u.company_id")))).
		Where(where...).
		Order(goqu.I("u.created_at").Desc())

	rows, total, err := countAndSelect(ctx, r.db, ds, page)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.AdminUser{}
	for rows.Next() {
		var u domain.AdminUser
		if err := rows.Scan(
			&u.ID, &u.CompanyID, &u.Email, &u.Name, &u.Role, &u.IsDisabled, &u.TOTPEnabled,
			&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt, &u.CompanyName,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}
