package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorai/tutorai-backend/internal/auth/domain"
)

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id::text, email, password_hash, display_name, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, email, passwordHash, displayName, role string) (*domain.User, error) {
	const q = `
insert into users (email, password_hash, display_name, role)
values (lower($1), $2, $3, $4)
returning ` + userColumns + `;
`
	u, err := scanUser(r.db.QueryRow(ctx, q, email, passwordHash, displayName, role))
	if err != nil {
		// unique violation on email
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `select ` + userColumns + ` from users where email = lower($1);`
	return scanUser(r.db.QueryRow(ctx, q, email))
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `select ` + userColumns + ` from users where id = $1::uuid;`
	return scanUser(r.db.QueryRow(ctx, q, id))
}
