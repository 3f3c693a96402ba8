package cache

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"
)

// LimiterDB is the Redis database the rate limiter counts in; the shared cache uses CACHE_DB.
const LimiterDB = 1

// NewFiberStorage returns a fiber.Storage on the cache server, in its own database
func NewFiberStorage(database int) fiber.Storage {
	host, port, password, _ := Config()
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: database,
		Reset:    false,
	})
}
