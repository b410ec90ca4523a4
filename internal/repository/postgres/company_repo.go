package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type companyRepo struct {
	db *pgxpool.Pool
}

func NewCompanyRepository(db *pgxpool.Pool) domain.CompanyRepository {
	return &companyRepo{db: db}
}

const companyColumns = `id, name, slug, COALESCE(domain, ''), status, created_at, updated_at`

func (r *companyRepo) Create(ctx context.Context, c *domain.Company) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = domain.CompanyStatusActive
	}
	query := `
		INSERT INTO companies (id, name, slug, domain, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query, c.ID, c.Name, c.Slug, c.Domain, c.Status).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapErr(err, "Company slug already taken")
}

func (r *companyRepo) get(ctx context.Context, where string, arg any) (*domain.Company, error) {
	var c domain.Company
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE `+where, arg).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Domain, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err, "")
	}
	return &c, nil
}

func (r *companyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *companyRepo) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	return r.get(ctx, "slug = $1", slug)
}

func (r *companyRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (r *companyRepo) Update(ctx context.Context, c *domain.Company) error {
	query := `
		UPDATE companies SET name = $2, domain = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query, c.ID, c.Name, c.Domain).Scan(&c.UpdatedAt)
	return mapErr(err, "")
}

func (r *companyRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.CompanyStatus) error {
	return mustAffect(conn(ctx, r.db).Exec(ctx,
		`UPDATE companies SET status = $2, updated_at = NOW() WHERE id = $1`, id, status))
}
