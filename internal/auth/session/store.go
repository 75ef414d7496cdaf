package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix  = "auth:session:" // JSON session data: auth:session:{session_id}
	userSessionPrefix = "auth:user:"    // set of session IDs per user: auth:user:{user_id}
)

var ErrNotFound = errors.New("session not found")

// Session is the server-side half of an issued token. A JWT is only
// accepted while its session is still present here.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) sessionKey(id string) string  { return sessionKeyPrefix + id }
func (s *Store) userKey(userID string) string { return userSessionPrefix + userID }

// Create stores a new session and indexes it under the user's session set.
func (s *Store) Create(ctx context.Context, userID, role string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(sess.ID), data, s.ttl)
	pipe.SAdd(ctx, s.userKey(userID), sess.ID)
	pipe.Expire(ctx, s.userKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.sessionKey(id))
	pipe.SRem(ctx, s.userKey(sess.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser revokes every session a user holds (password reset,
// deactivation).
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.sessionKey(id))
	}
	pipe.Del(ctx, s.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}
