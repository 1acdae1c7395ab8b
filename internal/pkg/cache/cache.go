package cache

import (
	"context"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/BenKrueger/DealerDesk/internal/pkg/env"
)

// NewClient connects to the Redis/Dragonfly cache server and returns the
// client for explicit injection into queue and metrics consumers.
func NewClient() (*redis.Client, error) {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("cache ping failed: %w", err)
	}
	fiberlog.Infof("Connected to cache: %s", pong)
	return client, nil
}
