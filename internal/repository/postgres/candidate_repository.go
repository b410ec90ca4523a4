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

type candidateRepository struct {
	db *pgxpool.Pool
}

func NewCandidateRepository(db *pgxpool.Pool) domain.CandidateRepository {
	return &candidateRepository{db: db}
}

const candidateColumns = `c.id, c.company_id, c.campaign_id, c.name, c.email, COALESCE(c.phone, ''),
	COALESCE(c.resume_key, ''), c.status, COALESCE(c.source, ''), c.created_at, c.updated_at`

const candidateConflict = "A candidate with this email already exists"

func scanCandidate(row pgx.Row, extra ...any) (*domain.Candidate, error) {
	var c domain.Candidate
	dest := append([]any{
		&c.ID, &c.CompanyID, &c.CampaignID, &c.Name, &c.Email, &c.Phone,
		&c.ResumeKey, &c.Status, &c.Source, &c.CreatedAt, &c.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *candidateRepository) Create(ctx context.Context, c *domain.Candidate) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = domain.CandidateStatusNew
	}
	query := `
		INSERT INTO candidates (id, company_id, campaign_id, name, email, phone, resume_key, status, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, LOWER($5), NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), NOW(), NOW())
		RETURNING email, created_at, updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		c.ID, c.CompanyID, c.CampaignID, c.Name, c.Email, c.Phone, c.ResumeKey, c.Status, c.Source,
	).Scan(&c.Email, &c.CreatedAt, &c.UpdatedAt)
	return mapErr(err, candidateConflict)
}

func (r *candidateRepository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Candidate, error) {
	c, err := scanCandidate(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates c WHERE c.id = $1 AND c.company_id = $2`, id, companyID))
	return c, mapErr(err, "")
}

func (r *candidateRepository) List(ctx context.Context, companyID uuid.UUID, filter domain.CandidateFilter) ([]domain.Candidate, int64, error) {
	where := []exp.Expression{goqu.I("c.company_id").Eq(companyID)}
	if filter.CampaignID != nil {
		where = append(where, goqu.I("c.campaign_id").Eq(*filter.CampaignID))
	}
	if filter.Status != "" {
		where = append(where, goqu.I("c.status").Eq(filter.Status))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where = append(where, goqu.Or(
			goqu.I("c.name").ILike(pattern),
			goqu.I("c.email").ILike(pattern),
		))
	}

	ds := dialect.From(goqu.T("candidates").As("c")).
		Select(goqu.L(candidateColumns)).
		Where(where...).
		Order(goqu.I("c.created_at").Desc(), goqu.I("c.id").Desc())

	rows, total, err := countAndSelect(ctx, conn(ctx, r.db), ds, filter.Page)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	candidates := []domain.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, total, rows.Err()
}

// ListResultsByCampaign joins every candidate of the campaign with their most recent interview.
func (r *candidateRepository) ListResultsByCampaign(ctx context.Context, companyID, campaignID uuid.UUID) ([]domain.CandidateResult, error) {
	query := `
		SELECT ` + candidateColumns + `, COALESCE(i.status, ''), i.score, i.max_score, i.completed_at
		FROM candidates c
		LEFT JOIN LATERAL (
			SELECT status, score, max_score, completed_at
			FROM interviews
			WHERE candidate_id = c.id AND campaign_id = $2
			ORDER BY created_at DESC
			LIMIT 1
		) i ON TRUE
		WHERE c.company_id = $1 AND (c.campaign_id = $2 OR i.status IS NOT NULL)
		ORDER BY c.name ASC`

	rows, err := conn(ctx, r.db).Query(ctx, query, companyID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.CandidateResult{}
	for rows.Next() {
		var res domain.CandidateResult
		c, err := scanCandidate(rows, &res.InterviewStatus, &res.Score, &res.MaxScore, &res.CompletedAt)
		if err != nil {
			return nil, err
		}
		res.Candidate = *c
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *candidateRepository) Update(ctx context.Context, c *domain.Candidate) error {
	query := `
		UPDATE candidates SET campaign_id = $3, name = $4, email = LOWER($5), phone = NULLIF($6, ''),
			resume_key = NULLIF($7, ''), status = $8, source = NULLIF($9, ''), updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		c.ID, c.CompanyID, c.CampaignID, c.Name, c.Email, c.Phone, c.ResumeKey, c.Status, c.Source,
	).Scan(&c.UpdatedAt)
	return mapErr(err, candidateConflict)
}

func (r *candidateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CandidateStatus) error {
	return mustAffect(conn(ctx, r.db).Exec(ctx,
		`UPDATE candidates SET status = $2, updated_at = NOW() WHERE id = $1`, id, status))
}

func (r *candidateRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return mustAffect(conn(ctx, r.db).Exec(ctx,
		`DELETE FROM candidates WHERE id = $1 AND company_id = $2`, id, companyID))
}
