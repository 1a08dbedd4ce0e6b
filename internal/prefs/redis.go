package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix   = "fastcal:prefs:"
	redisRegionField = "region"
)

// HashClient is the subset of redis commands the store uses. *redis.Client
// satisfies it; tests substitute a fake.
type HashClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Redis keeps each client's state in two hashes:
//
//	fastcal:prefs:<client>       region -> <region>
//	fastcal:prefs:<client>:sub   <region> -> <sub-region>
type Redis struct {
	client HashClient
}

// NewRedis wraps an existing client.
func NewRedis(client HashClient) *Redis {
	return &Redis{client: client}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*Redis, *redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(c), c, nil
}

func (r *Redis) Region(ctx context.Context, client string) (string, error) {
	return r.get(ctx, redisKeyPrefix+client, redisRegionField)
}

func (r *Redis) SetRegion(ctx context.Context, client, region string) error {
	return r.client.HSet(ctx, redisKeyPrefix+client, redisRegionField, region).Err()
}

func (r *Redis) SubRegion(ctx context.Context, client, region string) (string, error) {
	return r.get(ctx, redisKeyPrefix+client+":sub", region)
}

func (r *Redis) SetSubRegion(ctx context.Context, client, region, subRegion string) error {
	return r.client.HSet(ctx, redisKeyPrefix+client+":sub", region, subRegion).Err()
}

func (r *Redis) get(ctx context.Context, key, field string) (string, error) {
	val, err := r.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}
