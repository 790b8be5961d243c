package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"kitvault-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// claimKeyPrefix namespaces claim hashes in a shared Redis instance.
const claimKeyPrefix = "kitvault:claims:"

// RedisClaimRepository implements ClaimRepository using Redis. Records are
// stored as one hash per account, field = kit name, value = JSON record.
// The per-account hash keeps FindByAccount a single HGETALL.
type RedisClaimRepository struct {
	client *redis.Client
}

// RedisClaimConfig holds connection settings for the Redis claim store.
type RedisClaimConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClaimRepository connects to Redis and verifies the connection.
func NewRedisClaimRepository(cfg RedisClaimConfig) (*RedisClaimRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[RedisClaimRepository] Initialized with %s", cfg.Addr)
	return &RedisClaimRepository{client: client}, nil
}

// FindByAccount returns all claim records for one account.
func (r *RedisClaimRepository) FindByAccount(ctx context.Context, accountID string) ([]model.ClaimRecord, error) {
	fields, err := r.client.HGetAll(ctx, claimKeyPrefix+accountID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read claim hash: %w", err)
	}

	var records []model.ClaimRecord
	for kitName, raw := range fields {
		var rec model.ClaimRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			log.Printf("[RedisClaimRepository] skipping corrupt record %s/%s: %v", accountID, kitName, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Insert stores a new claim record.
func (r *RedisClaimRepository) Insert(ctx context.Context, record *model.ClaimRecord) error {
	return r.write(ctx, record)
}

// Update rewrites an existing claim record.
func (r *RedisClaimRepository) Update(ctx context.Context, record *model.ClaimRecord) error {
	return r.write(ctx, record)
}

func (r *RedisClaimRepository) write(ctx context.Context, record *model.ClaimRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize claim record: %w", err)
	}
	if err := r.client.HSet(ctx, claimKeyPrefix+record.AccountID, record.KitName, data).Err(); err != nil {
		return fmt.Errorf("failed to write claim record: %w", err)
	}
	return nil
}

// Stats returns statistics about the claim store.
func (r *RedisClaimRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var accounts, total int64
	iter := r.client.Scan(ctx, 0, claimKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		accounts++
		n, err := r.client.HLen(ctx, iter.Val()).Result()
		if err == nil {
			total += n
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	stats["accounts"] = accounts
	stats["total_records"] = total
	return stats, nil
}

// Close closes the Redis connection.
func (r *RedisClaimRepository) Close() error {
	return r.client.Close()
}

var _ ClaimRepository = (*RedisClaimRepository)(nil)
