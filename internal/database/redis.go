package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisOptions はRedis接続の設定。セッションストアとジョブキューで共用する。
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// ConnectRedis はRedisに接続し、到達確認まで行ったクライアントを返す。
func ConnectRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  connectTimeout,
		ReadTimeout:  connectTimeout,
		WriteTimeout: connectTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
