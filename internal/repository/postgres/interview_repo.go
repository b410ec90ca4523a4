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

type interviewRepo struct {
	db *pgxpool.Pool
}

func NewInterviewRepository(db *pgxpool.Pool) domain.InterviewRepository {
	return &interviewRepo{db: db}
}

const interviewSelect = `
	SELECT i.id, i.company_id, i.campaign_id, i.candidate_id, i.interviewer_id, i.status, i.scheduled_at,
		i.deadline_at, i.started_at, i.completed_at, i.current_position, i.score, i.max_score,
		COALESCE(i.recording_key, ''), i.created_at, i.updated_at, c.name, c.email, cp.title
	FROM interviews i
	JOIN candidates c ON c.id = i.candidate_id
	JOIN campaigns cp ON cp.id = i.campaign_id`

func scanInterview(row pgx.Row) (*domain.Interview, error) {
	var i domain.Interview
	err := row.Scan(
		&i.ID, &i.CompanyID, &i.CampaignID, &i.CandidateID, &i.InterviewerID, &i.Status, &i.ScheduledAt,
		&i.DeadlineAt, &i.StartedAt, &i.CompletedAt, &i.CurrentPosition, &i.Score, &i.MaxScore,
		&i.RecordingKey, &i.CreatedAt, &i.UpdatedAt, &i.CandidateName, &i.CandidateEmail, &i.CampaignTitle,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *interviewRepo) Create(ctx context.Context, i *domain.Interview) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = domain.InterviewStatusScheduled
	}
	query := `
		INSERT INTO interviews (id, company_id, campaign_id, candidate_id, interviewer_id, status,
			scheduled_at, deadline_at, current_position, score, max_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, NOW(), NOW())
		RETURNING created_at, updated_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		i.ID, i.CompanyID, i.CampaignID, i.CandidateID, i.InterviewerID, i.Status, i.ScheduledAt, i.DeadlineAt,
	).Scan(&i.CreatedAt, &i.UpdatedAt)
}

func (r *interviewRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Interview, error) {
	i, err := scanInterview(conn(ctx, r.db).QueryRow(ctx, interviewSelect+` WHERE i.id = $1 AND i.company_id = $2`, id, companyID))
	return i, mapErr(err, "")
}

func (r *interviewRepo) GetForSession(ctx context.Context, id uuid.UUID) (*domain.Interview, error) {
	i, err := scanInterview(conn(ctx, r.db).QueryRow(ctx, interviewSelect+` WHERE i.id = $1`, id))
	return i, mapErr(err, "")
}

func (r *interviewRepo) List(ctx context.Context, companyID uuid.UUID, filter domain.InterviewFilter) ([]domain.Interview, int64, error) {
	where := []exp.Expression{goqu.I("i.company_id").Eq(companyID)}
	if filter.CampaignID != nil {
		where = append(where, goqu.I("i.campaign_id").Eq(*filter.CampaignID))
	}
	if filter.CandidateID != nil {
		where = append(where, goqu.I("i.candidate_id").Eq(*filter.CandidateID))
	}
	if filter.Status != "" {
		where = append(where, goqu.I("i.status").Eq(filter.Status))
	}
	if filter.From != nil {
		where = append(where, goqu.I("i.scheduled_at").Gte(*filter.From))
	}
	if filter.To != nil {
		where = append(where, goqu.I("i.scheduled_at").Lt(*filter.To))
	}

	ds := dialect.From(goqu.T("interviews").As("i")).
		Select(goqu.L(`i.id, i.company_id, i.campaign_id, i.candidate_id, i.interviewer_id, i.status, i.scheduled_at,
			i.deadline_at, i.started_at, i.completed_at, i.current_position, i.score, i.max_score,
			COALESCE(i.recording_key, ''), i.created_at, i.updated_at, c.name, c.email, cp.title`)).
		Join(goqu.T("candidates").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("i.candidate_id")))).
		Join(goqu.T("campaigns").As("cp"), goqu.On(goqu.I("cp.id").Eq(goqu.I("i.campaign_id")))).
		Where(where...).
		Order(goqu.I("i.scheduled_at").Desc(), goqu.I("i.id").Desc())

	rows, total, err := countAndSelect(ctx, conn(ctx, r.db), ds, filter.Page)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	interviews := []domain.Interview{}
	for rows.Next() {
		i, err := scanInterview(rows)
		if err != nil {
			return nil, 0, err
		}
		interviews = append(interviews, *i)
	}
	return interviews, total, rows.Err()
}

func (r *interviewRepo) CountLiveByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM interviews WHERE campaign_id = $1 AND status <> 'cancelled'`, campaignID).Scan(&n)
	return n, err
}

func (r *interviewRepo) Transition(ctx context.Context, i *domain.Interview, from domain.InterviewStatus) error {
	query := `
		UPDATE interviews SET status = $2, started_at = $3, completed_at = $4, score = $5, max_score = $6,
			updated_at = NOW()
		WHERE id = $1 AND status = $7 AND current_position = $8
		RETURNING updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		i.ID, i.Status, i.StartedAt, i.CompletedAt, i.Score, i.MaxScore, from, i.CurrentPosition,
	).Scan(&i.UpdatedAt)
	return staleOnNoRows(err)
}

func (r *interviewRepo) Advance(ctx context.Context, id uuid.UUID, position int) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE interviews SET current_position = current_position + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress' AND current_position = $2`, id, position)
	return mustChange(tag, err)
}

func (r *interviewRepo) Reschedule(ctx context.Context, i *domain.Interview) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE interviews SET scheduled_at = $2, deadline_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING updated_at`, i.ID, i.ScheduledAt, i.DeadlineAt).Scan(&i.UpdatedAt)
	return staleOnNoRows(err)
}

func (r *interviewRepo) SetRecordingKey(ctx context.Context, id uuid.UUID, key string) (string, error) {
	var previous string
	err := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE interviews i SET recording_key = $2, updated_at = NOW()
		FROM (SELECT id, COALESCE(recording_key, '') AS key FROM interviews WHERE id = $1 FOR UPDATE) old
		WHERE i.id = old.id AND i.status IN ('in_progress', 'completed')
		RETURNING old.key`, id, key).Scan(&previous)
	return previous, staleOnNoRows(err)
}

// SaveAnswer upserts on (interview_id, question_id).
func (r *interviewRepo) SaveAnswer(ctx context.Context, a *domain.Answer) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
		INSERT INTO interview_answers (id, interview_id, question_id, answer, selected_option, score, feedback, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (interview_id, question_id) DO UPDATE
			SET answer = EXCLUDED.answer, selected_option = EXCLUDED.selected_option,
				score = EXCLUDED.score, feedback = EXCLUDED.feedback, answered_at = EXCLUDED.answered_at
		RETURNING id, answered_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		a.ID, a.InterviewID, a.QuestionID, a.Answer, a.SelectedOption, a.Score, a.Feedback,
	).Scan(&a.ID, &a.AnsweredAt)
}

func (r *interviewRepo) ListAnswers(ctx context.Context, interviewID uuid.UUID) ([]domain.Answer, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id, interview_id, question_id, COALESCE(answer, ''), selected_option, score, COALESCE(feedback, ''), answered_at
		FROM interview_answers WHERE interview_id = $1 ORDER BY answered_at ASC`, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []domain.Answer{}
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.InterviewID, &a.QuestionID, &a.Answer, &a.SelectedOption, &a.Score, &a.Feedback, &a.AnsweredAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (r *interviewRepo) RecordEvent(ctx context.Context, e *domain.InterviewEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	var payload []byte
	if len(e.Payload) > 0 {
		payload = e.Payload
	}
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO interview_events (id, interview_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`, e.ID, e.InterviewID, e.Type, payload).Scan(&e.CreatedAt)
}
