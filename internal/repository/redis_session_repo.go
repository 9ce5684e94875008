package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix はセッショントークンのRedisキー接頭辞。
const sessionKeyPrefix = "auth_"

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
// トークンは固定TTL付きで保存され、スライディングウィンドウ延長は行わない。
type RedisSessionRepo struct {
	client *redis.Client
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
func NewRedisSessionRepo(client *redis.Client) *RedisSessionRepo {
	return &RedisSessionRepo{client: client}
}

// sessionKey はトークンからRedisキーを構築する。
func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Create はトークンを指定TTLで保存する。
func (r *RedisSessionRepo) Create(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, sessionKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// FindUserID はトークンに対応するユーザーIDを取得する。
// 未登録・期限切れの場合は空文字列を返す。ストア不達はエラーとして伝播し、
// 呼び出し側がfail closed（拒否）できるようにする。
func (r *RedisSessionRepo) FindUserID(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	return userID, nil
}

// Delete はトークンを即時削除する。存在しないトークンの削除はエラーにしない。
func (r *RedisSessionRepo) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*RedisSessionRepo)(nil)
