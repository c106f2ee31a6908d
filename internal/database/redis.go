package database

import (
	"context"
	"log"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// InitRedis initializes the Redis client used for member handle resolution.
// The bot runs without Redis (handle targeting degrades to reply targeting),
// so a failed connection is logged and nil is returned. Tight timeouts keep
// a dead cache from stalling command handling.
func InitRedis() *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dial_timeout", time.Second*5)
	viper.SetDefault("redis.read_timeout", time.Second*2)

	rdb := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(viper.GetString("redis.host"), viper.GetString("redis.port")),
		Password:    viper.GetString("redis.password"),
		DB:          viper.GetInt("redis.db"),
		DialTimeout: viper.GetDuration("redis.dial_timeout"),
		ReadTimeout: viper.GetDuration("redis.read_timeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("redis.dial_timeout"))
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[STORE] Redis connection failed, continuing without member cache: %v", err)
		return nil
	}

	log.Println("[STORE] Redis connection established")
	return rdb
}
