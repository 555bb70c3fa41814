// Package cache provides a Redis-backed [models.ProfileStore] for setups where several
// evcs processes share one cached profile.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/models"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

const defaultPrefix = "evcs"

type cachedProfile struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// ProfileCache stores the current profile under a single key with a TTL.
type ProfileCache struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewProfileCache creates a [ProfileCache]. A zero ttl keeps entries until cleared.
func NewProfileCache(client *redis.Client, prefix string, ttl time.Duration) *ProfileCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ProfileCache{redis: client, prefix: prefix, ttl: ttl}
}

// NewClient opens a Redis client for cfg and verifies the connection.
func NewClient(ctx context.Context, cfg shared.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", shared.ErrServiceUnavailable, cfg.RedisAddr, err)
	}
	return client, nil
}

func (c *ProfileCache) key() string {
	return c.prefix + ":profile"
}

// Save implements [models.ProfileStore].
func (c *ProfileCache) Save(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if profile.ID == "" {
		profile.ID = shared.GenerateID()
	}
	if profile.FetchedAt.IsZero() {
		profile.FetchedAt = time.Now()
	}

	var raw json.RawMessage
	if json.Valid(profile.Raw) {
		raw = profile.Raw
	}

	data, err := json.Marshal(cachedProfile{
		ID:        profile.ID,
		UserID:    profile.Key(),
		Email:     profile.Email,
		Name:      profile.Name,
		Role:      profile.Role,
		Raw:       raw,
		FetchedAt: profile.FetchedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}

// Get implements [models.ProfileStore].
func (c *ProfileCache) Get(ctx context.Context) (*models.Profile, error) {
	data, err := c.redis.Get(ctx, c.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	var cp cachedProfile
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &models.Profile{
		ID:        cp.ID,
		UserID:    cp.UserID,
		Email:     cp.Email,
		Name:      cp.Name,
		Role:      cp.Role,
		Raw:       cp.Raw,
		FetchedAt: cp.FetchedAt,
	}, nil
}

// Clear implements [models.ProfileStore] and session.LocalState.
func (c *ProfileCache) Clear(ctx context.Context) error {
	if err := c.redis.Del(ctx, c.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}
