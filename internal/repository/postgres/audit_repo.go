package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type auditRepo struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) domain.AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Insert(ctx context.Context, e domain.AuditEvent) error {
	var details []byte
	if len(e.Details) > 0 {
		var err error
		if details, err = json.Marshal(e.Details); err != nil {
			return err
		}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_events (id, event_type, level, subject_type, subject_value, ip, user_agent, request_id, details, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10)`,
		e.ID, e.Type, e.Level, e.SubjectType, e.SubjectValue, e.IP, e.UserAgent, e.RequestID, details, e.CreatedAt)
	return err
}

func (r *auditRepo) List(ctx context.Context, page domain.Page) ([]domain.AuditEvent, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, event_type, level, COALESCE(subject_type, ''), COALESCE(subject_value, ''), COALESCE(ip, ''),
			COALESCE(user_agent, ''), COALESCE(request_id, ''), details, created_at
		FROM audit_events ORDER BY created_at DESC LIMIT $1 OFFSET $2`, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var (
			e       domain.AuditEvent
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Level, &e.SubjectType, &e.SubjectValue, &e.IP,
			&e.UserAgent, &e.RequestID, &details, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &e.Details)
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
