// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"mentra/config"

	"github.com/go-redis/redis/v8"
)

// Auth cache key prefix and entry lifetime.
const (
	AuthCachePrefix = "auth:"
	AuthCacheTTL    = 10 * time.Minute
)

var (
	// CacheClient serves short-lived application caches such as slot listings.
	CacheClient *redis.Client
	// AuthCacheClient serves the token identity cache on its own logical DB.
	AuthCacheClient *redis.Client
)

// newRedisClient connects to the configured Redis instance on the given
// logical DB and verifies it answers before returning.
func newRedisClient(db int, name string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (%s): %v", name, err)
	}
	return client
}

// InitRedis initializes all Redis clients up front.
func InitRedis() {
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB, "cache")
	AuthCacheClient = newRedisClient(config.AppConfig.RedisAuthDB, "auth cache")
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		CacheClient = newRedisClient(config.AppConfig.RedisCacheDB, "cache")
	}
	return CacheClient
}

// GetAuthCacheClient returns the client for the token identity cache.
func GetAuthCacheClient() *redis.Client {
	if AuthCacheClient == nil {
		AuthCacheClient = newRedisClient(config.AppConfig.RedisAuthDB, "auth cache")
	}
	return AuthCacheClient
}
