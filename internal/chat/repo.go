package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

func (r *Repo) CreateSession(ctx context.Context, userID string, title *string) (*Session, error) {
	const q = `
insert into chat_sessions (user_id, title)
values ($1::uuid, $2)
returning id::text, title, created_at, updated_at;
`
	var s Session
	s.UserID = userID
	if err := r.db.QueryRow(ctx, q, userID, title).Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	const q = `
select id::text, title, created_at, updated_at
from chat_sessions
where user_id = $1::uuid
order by updated_at desc;
`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		var s Session
		s.UserID = userID
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSession enforces ownership: other users' sessions surface as
// ErrNotFound, never as 403.
func (r *Repo) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	const q = `
select id::text, title, created_at, updated_at
from chat_sessions
where id = $1::uuid and user_id = $2::uuid;
`
	var s Session
	s.UserID = userID
	err := r.db.QueryRow(ctx, q, sessionID, userID).Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) DeleteSession(ctx context.Context, userID, sessionID string) (bool, error) {
	const q = `delete from chat_sessions where id = $1::uuid and user_id = $2::uuid;`
	ct, err := r.db.Exec(ctx, q, sessionID, userID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// SetTitleIfEmpty names a session after its first message.
func (r *Repo) SetTitleIfEmpty(ctx context.Context, sessionID, title string) error {
	const q = `
update chat_sessions
set title = $2, updated_at = now()
where id = $1::uuid and title is null;
`
	_, err := r.db.Exec(ctx, q, sessionID, title)
	return err
}

func (r *Repo) AppendMessage(ctx context.Context, sessionID, role, content string, sources []SourceRef) (*Message, error) {
	var sourcesJSON []byte
	if len(sources) > 0 {
		b, err := json.Marshal(sources)
		if err != nil {
			return nil, fmt.Errorf("marshal sources: %w", err)
		}
		sourcesJSON = b
	}

	const q = `
insert into chat_messages (session_id, role, content, sources)
values ($1::uuid, $2, $3, $4)
returning id, created_at;
`
	m := Message{SessionID: sessionID, Role: role, Content: content, Sources: sources}
	if err := r.db.QueryRow(ctx, q, sessionID, role, content, sourcesJSON).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, err
	}

	// keep the session's updated_at fresh so listing orders by activity
	const touch = `update chat_sessions set updated_at = now() where id = $1::uuid;`
	if _, err := r.db.Exec(ctx, touch, sessionID); err != nil {
		return nil, err
	}

	return &m, nil
}

// ListMessages returns one history page, oldest first, plus the total
// message count for the session.
func (r *Repo) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]Message, int, error) {
	var total int
	const countQ = `select count(*) from chat_messages where session_id = $1::uuid;`
	if err := r.db.QueryRow(ctx, countQ, sessionID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
select id, role, content, sources, created_at
from chat_messages
where session_id = $1::uuid
order by id asc
limit $2 offset $3;
`
	rows, err := r.db.Query(ctx, q, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		var sourcesJSON []byte
		m.SessionID = sessionID
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &sourcesJSON, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &m.Sources); err != nil {
				return nil, 0, fmt.Errorf("unmarshal sources: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
