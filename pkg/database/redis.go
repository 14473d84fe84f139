package database

import (
	"context"
	"fmt"
	"log"

	"github.com/gannfg/obelisk-learning-sub002/internal/config"
	"github.com/go-redis/redis/v8"
)

// InitRedis 未配置 host 时返回 nil，通知推送与缓存随之降级
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		log.Println("Redis not configured, running without cache and pub/sub")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	ctx := context.Background()
	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return rdb, nil
}
