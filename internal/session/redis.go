package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/types"

	goredis "github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 5 * time.Second

// RedisStore keeps sessions as JSON values so several instances can share
// them.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	logger *errors.Logger
}

// NewRedisStore connects and pings the server before returning
func NewRedisStore(ctx context.Context, cfg config.SessionConfig, logger *errors.Logger) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: redisConnectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.NewUnavailableError(errors.ErrCodeServiceUnavailable,
			"Session store is unreachable", err).WithContext("addr", cfg.Redis.Addr)
	}

	logger.Info("Connected to Redis session store", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return newRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.TTL, logger), nil
}

func newRedisStore(rdb *goredis.Client, prefix string, ttl time.Duration, logger *errors.Logger) *RedisStore {
	if prefix == "" {
		prefix = "airecruiter:session:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl, logger: logger.With("component", "session_redis")}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Save(ctx context.Context, s types.Session) error {
	if s.ID == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "session ID is required", nil)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidFormat, "Failed to encode session", err)
	}
	if err := r.rdb.Set(ctx, r.key(s.ID), raw, r.ttl).Err(); err != nil {
		return errors.NewUnavailableError(errors.ErrCodeServiceUnavailable, "Failed to save session", err).
			WithContext("session_id", s.ID)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (types.Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return types.Session{}, notFound(id)
	}
	if err != nil {
		return types.Session{}, errors.NewUnavailableError(errors.ErrCodeServiceUnavailable,
			"Failed to load session", err).WithContext("session_id", id)
	}
	return decodeSession(raw)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return errors.NewUnavailableError(errors.ErrCodeServiceUnavailable, "Failed to delete session", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func decodeSession(raw []byte) (types.Session, error) {
	var s types.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return types.Session{}, errors.NewInternalError(errors.ErrCodeInvalidFormat, "Stored session is corrupt", err)
	}
	return s, nil
}
