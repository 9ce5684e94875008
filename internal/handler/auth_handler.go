package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/filebox/internal/model"
)

// tokenHeaderName は認証トークンを運ぶリクエストヘッダー名。
const tokenHeaderName = "X-Token"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
	GetUserByToken(ctx context.Context, token string) (*model.User, error)
}

// AuthHandler はセッション認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// Connect はBasic認証の資格情報からセッショントークンを発行する。
// GET /connect
func (h *AuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	token, err := h.service.Login(r.Context(), email, password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Disconnect はセッショントークンを失効させる。
// GET /disconnect
func (h *AuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(tokenHeaderName)

	if err := h.service.Logout(r.Context(), token); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(tokenHeaderName)

	user, err := h.service.GetUserByToken(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
}
