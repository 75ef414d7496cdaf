package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorai/tutorai-backend/internal/auth/domain"
)

// Repo is the admin-facing user repository. Credential lookups live in
// internal/auth/repository; this one covers the dashboard CRUD.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type ListFilter struct {
	Role   string // optional: student | admin
	Query  string // optional: ILIKE on email and display_name
	Limit  int
	Offset int
}

type UpdateFields struct {
	DisplayName  *string
	Role         *string
	IsActive     *bool
	PasswordHash *string
}

const userColumns = `id::text, email, password_hash, display_name, role, is_active, created_at, updated_at`

// List assembles the WHERE clause from the optional filters and returns a
// page plus the unpaged total.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]domain.User, int, error) {
	where := []string{"true"}
	args := []any{}

	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR display_name ILIKE $%d)", len(args), len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int
	countQ := `select count(*) from users where ` + cond
	if err := r.db.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit)
	limitPos := len(args)
	args = append(args, f.Offset)
	offsetPos := len(args)

	q := fmt.Sprintf(`
select `+userColumns+`
from users
where %s
order by created_at desc
limit $%d offset $%d;
`, cond, limitPos, offsetPos)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.User, 0, f.Limit)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *Repo) Create(ctx context.Context, email, passwordHash, displayName, role string) (*domain.User, error) {
	const q = `
insert into users (email, password_hash, display_name, role)
values (lower($1), $2, $3, $4)
returning ` + userColumns + `;
`
	var u domain.User
	err := r.db.QueryRow(ctx, q, email, passwordHash, displayName, role).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// Update applies only the fields that are set.
func (r *Repo) Update(ctx context.Context, id string, f UpdateFields) (*domain.User, error) {
	set := []string{"updated_at = now()"}
	args := []any{}

	if f.DisplayName != nil {
		args = append(args, *f.DisplayName)
		set = append(set, fmt.Sprintf("display_name = $%d", len(args)))
	}
	if f.Role != nil {
		args = append(args, *f.Role)
		set = append(set, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		set = append(set, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if f.PasswordHash != nil {
		args = append(args, *f.PasswordHash)
		set = append(set, fmt.Sprintf("password_hash = $%d", len(args)))
	}

	args = append(args, id)
	q := fmt.Sprintf(`
update users
set %s
where id = $%d::uuid
returning `+userColumns+`;
`, strings.Join(set, ", "), len(args))

	var u domain.User
	err := r.db.QueryRow(ctx, q, args...).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	const q = `delete from users where id = $1::uuid;`
	ct, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
