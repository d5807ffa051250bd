package database

import (
	"context"
	"log"
	"time"

	"coachassist/internal/config"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects the shared Redis client used by the quota tracker and
// the response cache. A failed ping is logged but not fatal: both consumers
// degrade gracefully when Redis is unreachable.
func InitRedis(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis unreachable at %s: %v", cfg.RedisAddr, err)
	} else {
		log.Println("Connected to Redis")
	}

	return rdb
}
