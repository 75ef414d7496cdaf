package admin

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stats is the admin dashboard aggregate.
type Stats struct {
	UsersByRole       map[string]int `json:"users_by_role"`
	DocumentsByStatus map[string]int `json:"documents_by_status"`
	ChunksByStatus    map[string]int `json:"chunks_by_status"`
	ChunksTotal       int            `json:"chunks_total"`
	ChunksEmbedded    int            `json:"chunks_embedded"`
	ChatSessions      int            `json:"chat_sessions"`
	ChatMessages      int            `json:"chat_messages"`
	MessagesLast24h   int            `json:"messages_last_24h"`
}

type StatsRepo struct {
	db *pgxpool.Pool
}

func NewStatsRepo(db *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Collect(ctx context.Context) (*Stats, error) {
	s := &Stats{
		UsersByRole:       map[string]int{},
		DocumentsByStatus: map[string]int{},
		ChunksByStatus:    map[string]int{},
	}

	if err := r.groupCount(ctx, `select role, count(*) from users group by role`, s.UsersByRole); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, `select status, count(*) from documents group by status`, s.DocumentsByStatus); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, `select status, count(*) from chunks group by status`, s.ChunksByStatus); err != nil {
		return nil, err
	}

	for _, n := range s.ChunksByStatus {
		s.ChunksTotal += n
	}
	s.ChunksEmbedded = s.ChunksByStatus["embedded"]

	const countsQ = `
select
  (select count(*) from chat_sessions),
  (select count(*) from chat_messages),
  (select count(*) from chat_messages where created_at > now() - interval '24 hours');
`
	if err := r.db.QueryRow(ctx, countsQ).Scan(&s.ChatSessions, &s.ChatMessages, &s.MessagesLast24h); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *StatsRepo) groupCount(ctx context.Context, q string, dst map[string]int) error {
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dst[key] = count
	}
	return rows.Err()
}
