package keystore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mxcd/apikey-fwd-auth/pkg/apikeyauth"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DatabaseIndex int
	// HashKey names the redis hash mapping API keys to credentials.
	HashKey string
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisLoader reads a map store from a redis hash. Field names are API keys,
// values are JSON credential objects. A JSON string or plain text value is
// taken as the credential name.
type RedisLoader struct {
	client  hashReader
	hashKey string
}

func NewRedisLoader(c *RedisConfig) *RedisLoader {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password: c.Password,
		DB:       c.DatabaseIndex,
	})
	return &RedisLoader{
		client:  redisClient,
		hashKey: c.HashKey,
	}
}

// Close releases the underlying client when it owns one.
func (r *RedisLoader) Close() error {
	if closer, ok := r.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (r *RedisLoader) Load(ctx context.Context) (*apikeyauth.KeyStore, error) {
	fields, err := r.client.HGetAll(ctx, r.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read key store hash %q: %w", r.hashKey, err)
	}

	entries := make(map[string]apikeyauth.Credentials, len(fields))
	for key, value := range fields {
		entries[key] = redisCredentials(value)
	}
	log.Debug().Str("hash", r.hashKey).Int("keys", len(entries)).Msg("loaded key store from redis")
	return apikeyauth.NewMapStore(entries), nil
}

// redisCredentials decodes a hash value. JSON objects are used as they are,
// JSON strings and plain text become the credential name.
func redisCredentials(value string) apikeyauth.Credentials {
	creds := apikeyauth.Credentials{}
	if err := json.Unmarshal([]byte(value), &creds); err == nil && len(creds) > 0 {
		return creds
	}
	var name string
	if err := json.Unmarshal([]byte(value), &name); err == nil {
		return apikeyauth.Credentials{"name": name}
	}
	return apikeyauth.Credentials{"name": value}
}
