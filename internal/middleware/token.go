// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/filebox/internal/model"
)

// tokenHeaderName は認証トークンを運ぶリクエストヘッダー名。
const tokenHeaderName = "X-Token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenResolver はトークンからユーザーIDへの解決に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

// NewTokenMiddleware はX-Tokenヘッダーからセッショントークンを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みユーザーIDをリクエストコンテキストに注入する。
// トークンが欠落・無効・検証不能のいずれの場合も401 Unauthorizedを返す。
func NewTokenMiddleware(resolver TokenResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(tokenHeaderName)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			userID, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				// セッションストアの障害も未認証として扱う（フェイルクローズ）。
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) {
					slog.Error("failed to resolve token",
						slog.String("error", err.Error()),
					)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalTokenMiddleware はトークンがあれば検証してユーザーIDを注入し、
// なければ匿名のままリクエストを通すミドルウェアを返す。
// 公開ファイルの内容取得など、匿名アクセスを許すエンドポイントで使用する。
// トークンが無効・検証不能の場合も匿名として扱う。
func NewOptionalTokenMiddleware(resolver TokenResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(tokenHeaderName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// トークンミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
