package pricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements PriceCache on a shared Redis instance, letting
// several analyzer replicas reuse each other's lookups. Entries expire
// after ttl; a zero ttl keeps them forever.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects a PriceCache to Redis.
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client, ttl: ttl}
}

func priceKey(token string, bucket int64) string {
	return fmt.Sprintf("price:%s:%d", token, bucket)
}

func (c *RedisCache) Get(ctx context.Context, token string, bucket int64) (float64, bool) {
	val, err := c.client.Get(ctx, priceKey(token, bucket)).Result()
	if err != nil {
		// redis.Nil means not cached; any other error degrades to a miss.
		return 0, false
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

func (c *RedisCache) Put(ctx context.Context, token string, bucket int64, price float64) {
	val := strconv.FormatFloat(price, 'f', -1, 64)
	_ = c.client.Set(ctx, priceKey(token, bucket), val, c.ttl).Err()
}
