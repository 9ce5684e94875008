package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// MongoDB
	MongoURI string
	DBName   string

	// Redis（セッションストアとジョブキューの両方で使用する）
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Session
	SessionTTL time.Duration

	// Blob
	FolderPath string

	// Thumbnail worker
	ThumbnailConcurrency int
	ThumbnailMaxRetry    int

	// Rate Limit（req/sec）
	RateLimitGeneral int
	RateLimitUpload  int

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.MongoURI = os.Getenv("MONGO_URI")
	if cfg.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBName = getEnvString("DB_NAME", "filebox")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 24*time.Hour)
	cfg.FolderPath = getEnvString("FOLDER_PATH", "/tmp/filebox")
	cfg.ThumbnailConcurrency = getEnvInt("THUMBNAIL_CONCURRENCY", 10)
	cfg.ThumbnailMaxRetry = getEnvInt("THUMBNAIL_MAX_RETRY", 5)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 20)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 5)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
