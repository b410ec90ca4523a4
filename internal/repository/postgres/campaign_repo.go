package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type campaignRepo struct {
	db *pgxpool.Pool
}

func NewCampaignRepository(db *pgxpool.Pool) domain.CampaignRepository {
	return &campaignRepo{db: db}
}

const campaignColumns = `id, company_id, title, description, COALESCE(department, ''), COALESCE(location, ''),
	COALESCE(employment_type, ''), status, interview_type, difficulty, question_count, duration_minutes,
	passing_score, created_by, created_at, updated_at`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Title, &c.Description, &c.Department, &c.Location,
		&c.EmploymentType, &c.Status, &c.InterviewType, &c.Difficulty, &c.QuestionCount, &c.DurationMinutes,
		&c.PassingScore, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *campaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO campaigns (id, company_id, title, description, department, location, employment_type,
			status, interview_type, difficulty, question_count, duration_minutes, passing_score, created_by,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING created_at, updated_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		c.ID, c.CompanyID, c.Title, c.Description, c.Department, c.Location, c.EmploymentType,
		c.Status, c.InterviewType, c.Difficulty, c.QuestionCount, c.DurationMinutes, c.PassingScore, c.CreatedBy,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *campaignRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Campaign, error) {
	c, err := scanCampaign(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 AND company_id = $2`, id, companyID))
	return c, mapErr(err, "")
}

func (r *campaignRepo) List(ctx context.Context, companyID uuid.UUID, filter domain.CampaignFilter) ([]domain.Campaign, int64, error) {
	where := []exp.Expression{goqu.C("company_id").Eq(companyID)}
	if filter.Status != "" {
		where = append(where, goqu.C("status").Eq(filter.Status))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where = append(where, goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("department").ILike(pattern),
			goqu.C("location").ILike(pattern),
		))
	}

	ds := dialect.From("campaigns").
		Select(goqu.L(campaignColumns)).
		Where(where...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())

	rows, total, err := countAndSelect(ctx, conn(ctx, r.db), ds, filter.Page)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, total, rows.Err()
}

func (r *campaignRepo) Update(ctx context.Context, c *domain.Campaign) error {
	query := `
		UPDATE campaigns SET title = $3, description = $4, department = NULLIF($5, ''), location = NULLIF($6, ''),
			employment_type = NULLIF($7, ''), status = $8, interview_type = $9, difficulty = $10,
			question_count = $11, duration_minutes = $12, passing_score = $13, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		c.ID, c.CompanyID, c.Title, c.Description, c.Department, c.Location, c.EmploymentType,
		c.Status, c.InterviewType, c.Difficulty, c.QuestionCount, c.DurationMinutes, c.PassingScore,
	).Scan(&c.UpdatedAt)
	return mapErr(err, "")
}

func (r *campaignRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return mustAffect(conn(ctx, r.db).Exec(ctx,
		`DELETE FROM campaigns WHERE id = $1 AND company_id = $2`, id, companyID))
}

func (r *campaignRepo) CountOpen(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE company_id = $1 AND status <> 'closed'`, companyID).Scan(&n)
	return n, err
}
