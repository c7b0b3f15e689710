package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/warebill/backend/internal/domain/billing"
)

// RedisAssemblyLock implements billing.AssemblyLock using Redis SETNX.
// Assembly claims are additionally guarded at the database level; the lock
// exists so concurrent assemblers fail fast instead of racing to the claim
// and rolling back.
type RedisAssemblyLock struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects and pings a Redis client shared by the assembly
// lock and the L2 owned-entity cache
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisAssemblyLock creates a new Redis-based assembly lock
func NewRedisAssemblyLock(cfg RedisConfig) (*RedisAssemblyLock, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &RedisAssemblyLock{
		client:    client,
		keyPrefix: "billing:assembly:",
	}, nil
}

// NewRedisAssemblyLockWithClient creates a lock with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisAssemblyLockWithClient(client *redis.Client, keyPrefix string) *RedisAssemblyLock {
	if keyPrefix == "" {
		keyPrefix = "billing:assembly:"
	}
	return &RedisAssemblyLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire takes the tenant-period lock. Returns false when another assembler
// holds it. The TTL bounds how long a crashed assembler can block the pair.
func (l *RedisAssemblyLock) Acquire(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod, ttl time.Duration) (bool, error) {
	key := l.lockKey(tenantID, period)

	acquired, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire assembly lock: %w", err)
	}
	return acquired, nil
}

// Release frees the tenant-period lock
func (l *RedisAssemblyLock) Release(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod) error {
	key := l.lockKey(tenantID, period)
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release assembly lock: %w", err)
	}
	return nil
}

func (l *RedisAssemblyLock) lockKey(tenantID uuid.UUID, period billing.BillingPeriod) string {
	return l.keyPrefix + tenantID.String() + ":" + period.Key()
}

// Close closes the Redis client
func (l *RedisAssemblyLock) Close() error {
	return l.client.Close()
}

// Ensure RedisAssemblyLock implements AssemblyLock
var _ billing.AssemblyLock = (*RedisAssemblyLock)(nil)
