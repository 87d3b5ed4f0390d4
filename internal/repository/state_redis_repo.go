package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ==================== Redis 实现 ====================

type redisStateRepo struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStateRepository 创建基于 Redis 的状态仓储
// ttl 为 0 表示永不过期
func NewRedisStateRepository(client *redis.Client, ttl time.Duration) StateRepository {
	return &redisStateRepo{
		client: client,
		prefix: "lumina:state:",
		ttl:    ttl,
	}
}

func (r *redisStateRepo) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *redisStateRepo) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.redisKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisStateRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *redisStateRepo) redisKey(key string) string {
	return r.prefix + key
}
