package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sportcenterhq/client-go/internal/models"
	"github.com/sportcenterhq/client-go/pkg/config"
)

const (
	redisCredentialKey = "sportcenter:session:credential"
	redisIdentityKey   = "sportcenter:session:identity"
)

// RedisStore keeps session state in Redis. Intended for shared-workstation
// deployments (reception desk, kiosk) where the session outlives a process.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the configured Redis instance.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SaveCredential(ctx context.Context, cred *models.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := s.client.Set(ctx, redisCredentialKey, data, 0).Err(); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadCredential(ctx context.Context) (*models.Credential, error) {
	data, err := s.client.Get(ctx, redisCredentialKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}

	cred := &models.Credential{}
	if err := json.Unmarshal(data, cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return cred, nil
}

func (s *RedisStore) SaveIdentity(ctx context.Context, identity *models.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.client.Set(ctx, redisIdentityKey, data, 0).Err(); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadIdentity(ctx context.Context) (*models.Identity, error) {
	data, err := s.client.Get(ctx, redisIdentityKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	identity := &models.Identity{}
	if err := json.Unmarshal(data, identity); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return identity, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, redisCredentialKey, redisIdentityKey).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
