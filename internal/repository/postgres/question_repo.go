package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type questionRepo struct {
	db *pgxpool.Pool
}

func NewQuestionRepository(db *pgxpool.Pool) domain.QuestionRepository {
	return &questionRepo{db: db}
}

const questionColumns = `id, campaign_id, type, prompt, options, correct_option, COALESCE(expected_answer, ''),
	COALESCE(language, ''), difficulty, points, position, created_at`

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var (
		q       domain.Question
		options []byte
	)
	err := row.Scan(
		&q.ID, &q.CampaignID, &q.Type, &q.Prompt, &options, &q.CorrectOption, &q.ExpectedAnswer,
		&q.Language, &q.Difficulty, &q.Points, &q.Position, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %s: %w", q.ID, err)
		}
	}
	return &q, nil
}

func encodeOptions(options []string) ([]byte, error) {
	if len(options) == 0 {
		return nil, nil
	}
	return json.Marshal(options)
}

func (r *questionRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]domain.Question, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE campaign_id = $1 ORDER BY position ASC, created_at ASC`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func (r *questionRepo) GetByID(ctx context.Context, campaignID, id uuid.UUID) (*domain.Question, error) {
	q, err := scanQuestion(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1 AND campaign_id = $2`, id, campaignID))
	return q, mapErr(err, "")
}

func (r *questionRepo) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE campaign_id = $1`, campaignID).Scan(&n)
	return n, err
}

// ReplaceForCampaign swaps the whole question set. Callers wrap it in a transaction.
func (r *questionRepo) ReplaceForCampaign(ctx context.Context, campaignID uuid.UUID, questions []domain.Question) error {
	q := conn(ctx, r.db)
	if _, err := q.Exec(ctx, `DELETE FROM questions WHERE campaign_id = $1`, campaignID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range questions {
		question := &questions[i]
		if question.ID == uuid.Nil {
			question.ID = uuid.New()
		}
		question.CampaignID = campaignID
		question.Position = i
		options, err := encodeOptions(question.Options)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO questions (id, campaign_id, type, prompt, options, correct_option, expected_answer, language, difficulty, points, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, NOW())
			RETURNING created_at`,
			question.ID, campaignID, question.Type, question.Prompt, options, question.CorrectOption,
			question.ExpectedAnswer, question.Language, question.Difficulty, question.Points, question.Position,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&question.CreatedAt)
		})
	}
	if batch.Len() == 0 {
		return nil
	}

	return q.SendBatch(ctx, batch).Close()
}

func (r *questionRepo) Create(ctx context.Context, question *domain.Question) error {
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	options, err := encodeOptions(question.Options)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO questions (id, campaign_id, type, prompt, options, correct_option, expected_answer, language, difficulty, points, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM questions WHERE campaign_id = $2), NOW())
		RETURNING position, created_at`
	return conn(ctx, r.db).QueryRow(ctx, query,
		question.ID, question.CampaignID, question.Type, question.Prompt, options, question.CorrectOption,
		question.ExpectedAnswer, question.Language, question.Difficulty, question.Points,
	).Scan(&question.Position, &question.CreatedAt)
}

func (r *questionRepo) Update(ctx context.Context, question *domain.Question) error {
	options, err := encodeOptions(question.Options)
	if err != nil {
		return err
	}
	query := `
		UPDATE questions SET type = $3, prompt = $4, options = $5, correct_option = $6,
			expected_answer = NULLIF($7, ''), language = NULLIF($8, ''), difficulty = $9, points = $10
		WHERE id = $1 AND campaign_id = $2`
	return mustAffect(conn(ctx, r.db).Exec(ctx, query,
		question.ID, question.CampaignID, question.Type, question.Prompt, options, question.CorrectOption,
		question.ExpectedAnswer, question.Language, question.Difficulty, question.Points,
	))
}

func (r *questionRepo) Delete(ctx context.Context, campaignID, id uuid.UUID) error {
	return mustAffect(conn(ctx, r.db).Exec(ctx,
		`DELETE FROM questions WHERE id = $1 AND campaign_id = $2`, id, campaignID))
}

// SetPositions rewrites positions 0..n-1 in the order of ids.
func (r *questionRepo) SetPositions(ctx context.Context, campaignID uuid.UUID, ids []uuid.UUID) error {
	query := `
		UPDATE questions q SET position = o.ord - 1
		FROM unnest($2::uuid[]) WITH ORDINALITY AS o(id, ord)
		WHERE q.id = o.id AND q.campaign_id = $1`
	tag, err := conn(ctx, r.db).Exec(ctx, query, campaignID, ids)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(ids) {
		return domain.ErrNotFound
	}
	return nil
}
