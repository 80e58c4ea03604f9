package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the externalized Store implementation for deployments that
// need sessions to survive a gateway restart. Redis key TTLs track the
// inactivity window, so expiry is enforced server-side as well as by the
// timestamps carried in the payload.
type RedisStore struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(addr, password string, db int, window time.Duration) *RedisStore {
	if window <= 0 {
		window = DefaultInactivityWindow
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{
		client: client,
		prefix: "session:",
		window: window,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	if s.SessionID == "" || s.UserID == "" {
		return fmt.Errorf("session: missing session_id or user_id")
	}

	now := time.Now()
	s.CreatedAt = now
	s.LastAccessed = now
	s.ExpiresAt = now.Add(r.window)

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.key(s.SessionID), data, r.window).Result()
	if err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	if !ok {
		return ErrDuplicateID
	}
	return nil
}

// touchRetries bounds the optimistic retry loop when a concurrent write
// aborts the renew transaction.
const touchRetries = 3

// Touch renews the session inside a WATCH/MULTI transaction: the write is
// discarded whenever the key changes between the read and the EXEC, so a
// logout's Delete can never be overwritten by a stale renew. An aborted
// attempt re-reads; a key that is gone surfaces as ErrNotFound.
func (r *RedisStore) Touch(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	key := r.key(sessionID)

	var renewed *Session
	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("session: redis get: %w", err)
		}

		var s Session
		if err := json.Unmarshal([]byte(val), &s); err != nil {
			return fmt.Errorf("session: failed to unmarshal: %w", err)
		}

		// The TTL normally evicts first; the embedded expiry covers a
		// payload that outlived its window.
		if s.IsExpired(time.Now()) {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			return ErrExpired
		}

		s.Renew(time.Now(), r.window)
		data, err := json.Marshal(&s)
		if err != nil {
			return fmt.Errorf("session: failed to marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.window)
			return nil
		})
		if err != nil {
			return err
		}
		renewed = &s
		return nil
	}

	for i := 0; i < touchRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return renewed, nil
	}
	return nil, fmt.Errorf("session: renew aborted by concurrent writes")
}

func (r *RedisStore) Refresh(ctx context.Context, sessionID string) (bool, error) {
	_, err := r.Touch(ctx, sessionID)
	switch {
	case err == nil:
		return true, nil
	case err == ErrNotFound || err == ErrExpired:
		return false, nil
	default:
		return false, err
	}
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Sweep is a no-op for Redis: key TTLs already evict idle sessions.
func (r *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Close releases the underlying Redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
