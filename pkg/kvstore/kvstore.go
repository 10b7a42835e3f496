package kvstore

import "time"

// KVStore is the slice of redis the roster services use for caches, session
// whitelists and short-lived selection state.
type KVStore interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, ttl time.Duration) error
	Delete(keys ...string) error
	Incr(key string) (int64, error)
	RPush(key string, values ...interface{}) error
	LRange(key string, start, stop int64) ([]string, error)
	LRem(key string, count int64, value interface{}) error
	Expire(key string, ttl time.Duration) error
}

// IsMiss reports whether err is the redis "no such key" reply.
func IsMiss(err error) bool {
	return err == Nil
}
