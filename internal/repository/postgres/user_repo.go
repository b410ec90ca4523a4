package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gradiiai/gradii-sub007/internal/domain"
)

type userRepo struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, company_id, email, name, role, COALESCE(password_hash, ''), is_disabled,
	COALESCE(totp_secret, ''), totp_enabled, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.CompanyID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.IsDisabled,
		&u.TOTPSecret, &u.TOTPEnabled, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	query := `
		INSERT INTO users (id, company_id, email, name, role, password_hash, is_disabled, totp_secret, totp_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		user.ID, user.CompanyID, user.Email, user.Name, user.Role, user.PasswordHash,
		user.IsDisabled, user.TOTPSecret, user.TOTPEnabled,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapErr(err, "User with this email already exists")
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, mapErr(err, "")
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
	return u, mapErr(err, "")
}

func (r *userRepo) ListByCompany(ctx context.Context, companyID uuid.UUID, page domain.Page) ([]domain.User, int64, error) {
	q := conn(ctx, r.db)

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `SELECT `+userColumns+` FROM users WHERE company_id = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3`, companyID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *userRepo) CountActiveByCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE company_id = $1 AND is_disabled = FALSE`, companyID).Scan(&n)
	return n, err
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users SET name = $2, role = $3, password_hash = NULLIF($4, ''), is_disabled = $5,
			totp_secret = NULLIF($6, ''), totp_enabled = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		user.ID, user.Name, user.Role, user.PasswordHash, user.IsDisabled, user.TOTPSecret, user.TOTPEnabled,
	).Scan(&user.UpdatedAt)
	return mapErr(err, "")
}

func (r *userRepo) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := conn(ctx, r.db).Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}
