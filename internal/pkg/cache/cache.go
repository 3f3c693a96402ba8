package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// Config returns the Redis connection settings from the environment
func Config() (host string, port int, password string, db int) {
	return env.GetEnv("CACHE_HOST", "localhost"),
		env.GetEnvInt("CACHE_PORT", 6379),
		env.GetEnv("CACHE_PASSWORD", ""),
		env.GetEnvInt("CACHE_DB", 0)
}

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host, port, password, db := Config()

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// SetClient replaces the shared client, used by tests
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}
