package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zpam/mailtype/pkg/ngram"
)

// RedisStore keeps the model artifact in Redis.
//
// Key layout:
//
//	<prefix>:model:<name>  msgpack artifact
//	<prefix>:meta:<name>   hash with order, contexts, observations, trained_at,
//	                       format and saved_at
type RedisStore struct {
	client *redis.Client
	config *RedisConfig
}

// RedisConfig holds Redis store configuration
type RedisConfig struct {
	RedisURL    string        `json:"redis_url" yaml:"redis_url"`
	KeyPrefix   string        `json:"key_prefix" yaml:"key_prefix"`
	DatabaseNum int           `json:"database_num" yaml:"database_num"`
	Name        string        `json:"name" yaml:"name"`
	TTL         time.Duration `json:"ttl" yaml:"ttl"` // 0 = keep forever
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		RedisURL:    "redis://localhost:6379",
		KeyPrefix:   "mailtype",
		DatabaseNum: 0,
		Name:        "default",
	}
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, config *RedisConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if config.Name == "" {
		return nil, errors.New("model name cannot be empty")
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	opt.DB = config.DatabaseNum
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis connection failed: %w", err)
	}

	return &RedisStore{client: client, config: config}, nil
}

// Save replaces the stored artifact and its metadata in one transaction.
func (s *RedisStore) Save(ctx context.Context, m *ngram.Model) error {
	data, err := Encode(m, Msgpack)
	if err != nil {
		return err
	}
	info := m.Info()

	trainedAt := ""
	if !info.LastTrained.IsZero() {
		trainedAt = info.LastTrained.UTC().Format(time.RFC3339Nano)
	}

	metaKey := s.metaKey()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.modelKey(), data, s.config.TTL)
	pipe.Del(ctx, metaKey)
	pipe.HSet(ctx, metaKey, map[string]interface{}{
		"format":       ArtifactFormat,
		"version":      ArtifactVersion,
		"order":        info.Order,
		"contexts":     info.Contexts,
		"observations": info.Observations,
		"vocabulary":   info.Vocabulary,
		"trained_at":   trainedAt,
		"saved_at":     time.Now().Unix(),
	})
	if s.config.TTL > 0 {
		pipe.Expire(ctx, metaKey, s.config.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save model to Redis: %w", err)
	}
	return nil
}

// Load fetches and validates the artifact.
func (s *RedisStore) Load(ctx context.Context) (*ngram.Model, error) {
	data, err := s.client.Get(ctx, s.modelKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: redis key %s", ErrNotFound, s.modelKey())
		}
		return nil, fmt.Errorf("failed to load model from Redis: %w", err)
	}
	return Decode(data, Msgpack)
}

// Meta returns the metadata hash written by the last Save.
func (s *RedisStore) Meta(ctx context.Context) (*ngram.ModelInfo, error) {
	vals, err := s.client.HGetAll(ctx, s.metaKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: redis key %s", ErrNotFound, s.metaKey())
	}

	info := &ngram.ModelInfo{}
	info.Order, _ = strconv.Atoi(vals["order"])
	info.Contexts, _ = strconv.Atoi(vals["contexts"])
	info.Observations, _ = strconv.Atoi(vals["observations"])
	info.Vocabulary, _ = strconv.Atoi(vals["vocabulary"])
	if ts := vals["trained_at"]; ts != "" {
		info.LastTrained, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return info, nil
}

// Delete removes the stored model.
func (s *RedisStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.modelKey(), s.metaKey()).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) modelKey() string {
	return fmt.Sprintf("%s:model:%s", s.config.KeyPrefix, s.config.Name)
}

func (s *RedisStore) metaKey() string {
	return fmt.Sprintf("%s:meta:%s", s.config.KeyPrefix, s.config.Name)
}
