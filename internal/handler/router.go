package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/filebox/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger         *slog.Logger
	StatusRecorder middleware.StatusRecorder
	TokenResolver  middleware.TokenResolver
	RateLimiter    *middleware.RateLimiter

	// サービス
	AuthService AuthServiceInterface
	UserService UserServiceInterface
	FileService FileServiceInterface

	// 運用系
	DB             Pinger
	Redis          Pinger
	UserCounter    Counter
	FileCounter    Counter
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → (TokenMiddleware → RateLimitMiddleware)
//
// 公開メタデータ・コンテンツ取得はOptionalTokenMiddlewareで匿名アクセスを許す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	fileHandler := NewFileHandler(deps.FileService)
	appHandler := NewAppHandler(deps.DB, deps.Redis, deps.UserCounter, deps.FileCounter)

	// --- 認証不要のルート ---

	r.Post("/users", userHandler.Register)
	r.Get("/connect", authHandler.Connect)

	r.Get("/health", appHandler.Health)
	r.Get("/status", appHandler.Status)
	r.Get("/stats", appHandler.Stats)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)

	// --- 匿名アクセスを許すルート ---
	// トークンがあれば検証し、公開エントリの可視性判定はサービス層に委ねる
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalTokenMiddleware(deps.TokenResolver))

		r.Get("/files/{id}", fileHandler.Get)
		r.Get("/files/{id}/data", fileHandler.GetContent)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Token → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenMiddleware(deps.TokenResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/disconnect", authHandler.Disconnect)
		r.Get("/users/me", authHandler.Me)

		// POST /files - アップロード専用レート制限を追加
		r.With(deps.RateLimiter.UploadMiddleware()).Post("/files", fileHandler.Create)

		r.Get("/files", fileHandler.List)
		r.Put("/files/{id}/publish", fileHandler.Publish)
		r.Put("/files/{id}/unpublish", fileHandler.Unpublish)
	})

	return r
}
