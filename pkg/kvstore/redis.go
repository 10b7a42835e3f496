package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ctx = context.Background()

// Nil is returned by Get when the key does not exist.
const Nil = redis.Nil

type Redis struct {
	client *redis.Client
}

func NewRedis(addr string, password string, db int) (KVStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}

	return Redis{client: rdb}, nil
}

// FromClient wraps an existing client, e.g. one from redismock.
func FromClient(client *redis.Client) KVStore {
	return Redis{client: client}
}

func (r Redis) Set(key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r Redis) Get(key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r Redis) Delete(keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r Redis) Incr(key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r Redis) RPush(key string, values ...interface{}) error {
	return r.client.RPush(ctx, key, values...).Err()
}

func (r Redis) LRange(key string, start, stop int64) ([]string, error) {
	val, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (r Redis) LRem(key string, count int64, value interface{}) error {
	return r.client.LRem(ctx, key, count, value).Err()
}

func (r Redis) Expire(key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}
