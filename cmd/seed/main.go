// Command seed resets the durable appointment snapshot to the bundled demo
// dataset. Useful between demo runs.
package main

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/platform/internal/appointments"
	appconfig "github.com/mediconnect/platform/internal/config"
	"github.com/mediconnect/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)

	seeded, err := appointments.Seed()
	if err != nil {
		logger.Error("failed to decode seed dataset", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := appointments.NewRedisStore(redisClient)
	if err := store.Save(ctx, seeded); err != nil {
		logger.Error("failed to write seed snapshot", "error", err)
		os.Exit(1)
	}

	logger.Info("seed snapshot written", "count", len(seeded))
}
