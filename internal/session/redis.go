package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/templui/filesmanager/internal/model"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore keeps sessions in Redis with SET EX, shared by every API process.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	slog.Info("session store opened", "driver", "redis", "addr", opts.Addr, "ttl", opts.TTL)
	return &RedisStore{client: client, ttl: opts.TTL}, nil
}

func (s *RedisStore) Create(ctx context.Context, owner model.OwnerID) (string, error) {
	token := newToken()

	err := s.client.Set(ctx, key(token), string(owner), s.ttl).Err()
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (model.OwnerID, bool, error) {
	if token == "" {
		return "", false, nil
	}

	val, err := s.client.Get(ctx, key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session: %w", err)
	}

	return model.OwnerID(val), true, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	err := s.client.Del(ctx, key(token)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Alive(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
