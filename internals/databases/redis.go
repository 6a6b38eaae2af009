package database

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"racehub_backend/internals/configs"
)

// ConnectRedis returns nil when REDIS_URL is not set.
func ConnectRedis(cfg configs.Config) *redis.Client {
	if cfg.RedisURL == "" {
		log.Println("ℹ️ REDIS_URL kosong, reconcile lock dimatikan")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis ping gagal (%v), reconcile lock dimatikan", err)
		_ = rdb.Close()
		return nil
	}
	log.Println("✅ Redis connected.")
	return rdb
}
