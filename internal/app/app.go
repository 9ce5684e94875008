// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/filebox/internal/auth"
	"github.com/hitoshi/filebox/internal/blob"
	"github.com/hitoshi/filebox/internal/config"
	"github.com/hitoshi/filebox/internal/database"
	"github.com/hitoshi/filebox/internal/files"
	"github.com/hitoshi/filebox/internal/handler"
	"github.com/hitoshi/filebox/internal/logger"
	"github.com/hitoshi/filebox/internal/metrics"
	"github.com/hitoshi/filebox/internal/middleware"
	"github.com/hitoshi/filebox/internal/queue"
	"github.com/hitoshi/filebox/internal/repository"
	"github.com/hitoshi/filebox/internal/worker/thumbnail"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("db_name", cfg.DBName),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	default:
		return runServe(cfg)
	}
}

// redisPinger はredis.Clientをhandler.Pingerに適合させるアダプタ。
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// asynqRedisOpt はConfigからasynqのRedis接続設定を組み立てる。
func asynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// runServe はAPIサーバーモードで起動する。
// MongoDBとRedisへ接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. ストア接続
	mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer mongoDB.Close(context.Background())

	redisClient, err := database.ConnectRedis(ctx, database.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	slog.Info("store connections established")

	// 2. リポジトリの初期化
	userRepo := repository.NewMongoUserRepo(mongoDB.Database())
	fileRepo := repository.NewMongoFileRepo(mongoDB.Database())
	sessionRepo := repository.NewRedisSessionRepo(redisClient)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{
		SessionTTL: cfg.SessionTTL,
	})

	blobStore := blob.NewStore(cfg.FolderPath)

	queueClient := queue.NewClient(asynqRedisOpt(cfg), cfg.ThumbnailMaxRetry)
	defer queueClient.Close()

	fileService := files.NewService(fileRepo, blobStore, queueClient, collector)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitUpload),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:         slog.Default(),
		StatusRecorder: collector,
		TokenResolver:  authService,
		RateLimiter:    rateLimiter,

		AuthService: authService,
		UserService: authService,
		FileService: fileService,

		DB:             mongoDB,
		Redis:          redisPinger{client: redisClient},
		UserCounter:    userRepo,
		FileCounter:    fileRepo,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はサムネイル生成ワーカーモードで起動する。
// MongoDBへ接続し、Redisキューからタスクを取り出して処理する。
// シグナルハンドリングとグレースフルシャットダウンはasynqサーバーが行う。
func runWorker(cfg *config.Config) error {
	ctx := context.Background()

	mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer mongoDB.Close(context.Background())

	slog.Info("store connections established (worker)")

	fileRepo := repository.NewMongoFileRepo(mongoDB.Database())
	blobStore := blob.NewStore(cfg.FolderPath)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	worker := thumbnail.NewWorker(fileRepo, blobStore, collector, slog.Default())

	srv := asynq.NewServer(asynqRedisOpt(cfg), asynq.Config{
		Concurrency: cfg.ThumbnailConcurrency,
	})

	slog.Info("worker starting",
		slog.Int("concurrency", cfg.ThumbnailConcurrency),
		slog.Int("max_retry", cfg.ThumbnailMaxRetry),
	)

	if err := srv.Run(worker.NewMux()); err != nil {
		return fmt.Errorf("worker run failed: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
