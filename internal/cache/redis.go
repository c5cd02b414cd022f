package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skytide/travelbooking/config"
	"github.com/skytide/travelbooking/internal/domain"
)

type RedisCache struct {
	client         *redis.Client
	offerTTL       time.Duration
	idempotencyTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, offerTTL, idempotencyTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		offerTTL:       offerTTL,
		idempotencyTTL: idempotencyTTL,
	}
}

// ReserveIdempotencyKey claims a caller-supplied key before any side
// effect. Returns false when the key was already claimed.
func (c *RedisCache) ReserveIdempotencyKey(ctx context.Context, key string) (bool, error) {
	return c.client.SetNX(ctx, idempotencyKey(key), "reserved", c.idempotencyTTL).Result()
}

func (c *RedisCache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.client.Del(ctx, idempotencyKey(key)).Err()
}

func (c *RedisCache) GetPricedOffer(ctx context.Context, offerID string) (*domain.FlightOffer, error) {
	data, err := c.client.Get(ctx, offerKey(offerID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var offer domain.FlightOffer
	if err := json.Unmarshal(data, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (c *RedisCache) SetPricedOffer(ctx context.Context, offerID string, offer *domain.FlightOffer) error {
	payload, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, offerKey(offerID), payload, c.offerTTL).Err()
}

func idempotencyKey(key string) string {
	return "idem:booking:" + key
}

func offerKey(offerID string) string {
	return "cache:priced-offer:" + offerID
}
