package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Pinger はバックエンドストアへの疎通確認インターフェース。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter はコレクション内のドキュメント数を返すインターフェース。
// repository.UserRepository / FileRepository の部分集合として定義する。
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// AppHandler はサービス自体の状態を返すHTTPハンドラー。
type AppHandler struct {
	db        Pinger
	redis     Pinger
	userCount Counter
	fileCount Counter
}

// NewAppHandler はAppHandlerを生成する。
func NewAppHandler(db, redis Pinger, userCount, fileCount Counter) *AppHandler {
	return &AppHandler{
		db:        db,
		redis:     redis,
		userCount: userCount,
		fileCount: fileCount,
	}
}

// Health はプロセスの生存確認に応答する。
// GET /health
func (h *AppHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status はバックエンドストアへの疎通状態を返す。
// GET /status
func (h *AppHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbAlive := h.db.Ping(ctx) == nil
	redisAlive := h.redis.Ping(ctx) == nil

	writeJSON(w, http.StatusOK, map[string]bool{
		"db":    dbAlive,
		"redis": redisAlive,
	})
}

// Stats は登録ユーザー数と保存エントリ数を返す。
// GET /stats
func (h *AppHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.userCount.Count(ctx)
	if err != nil {
		slog.Error("failed to count users", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	entries, err := h.fileCount.Count(ctx)
	if err != nil {
		slog.Error("failed to count files", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"users": users,
		"files": entries,
	})
}
