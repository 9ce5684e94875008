package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/filebox/internal/files"
	"github.com/hitoshi/filebox/internal/middleware"
	"github.com/hitoshi/filebox/internal/model"
)

// FileServiceInterface はファイルハンドラーが必要とするサービスインターフェース。
type FileServiceInterface interface {
	CreateEntry(ctx context.Context, ownerID string, in files.CreateEntryInput) (*model.File, error)
	Get(ctx context.Context, requesterID, fileID string) (*model.File, error)
	List(ctx context.Context, ownerID, parentID string, page int) ([]*model.File, error)
	SetVisibility(ctx context.Context, requesterID, fileID string, isPublic bool) (*model.File, error)
	GetContent(ctx context.Context, requesterID, fileID, size string) ([]byte, string, error)
}

// FileHandler はファイルツリーのHTTPハンドラー。
type FileHandler struct {
	service FileServiceInterface
}

// NewFileHandler はFileHandlerを生成する。
func NewFileHandler(service FileServiceInterface) *FileHandler {
	return &FileHandler{
		service: service,
	}
}

// createFileRequest はエントリ作成リクエストのJSON表現。
type createFileRequest struct {
	Name     string `json:"name"`
	Kind     string `json:"type"`
	ParentID string `json:"parentId"`
	IsPublic bool   `json:"isPublic"`
	Data     string `json:"data"`
}

// Create は新しいフォルダまたはファイル/画像を作成する。
// 未知のJSONフィールドはリクエスト全体を拒否する。
// POST /files
func (h *FileHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req createFileRequest
	if err := dec.Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディを解釈できません。",
			Category: "validation",
			Action:   "JSONフォーマットとフィールド名を確認してください。",
		})
		return
	}

	file, err := h.service.CreateEntry(r.Context(), userID, files.CreateEntryInput{
		Name:     req.Name,
		Kind:     model.FileKind(req.Kind),
		ParentID: req.ParentID,
		IsPublic: req.IsPublic,
		Data:     req.Data,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(file))
}

// Get はエントリのメタデータを返す。
// 公開エントリは匿名でも閲覧できる。
// GET /files/{id}
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	// 匿名の場合はrequesterIDが空になる
	requesterID, _ := middleware.UserIDFromContext(r.Context())
	fileID := chi.URLParam(r, "id")

	file, err := h.service.Get(r.Context(), requesterID, fileID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponse(file))
}

// List は認証ユーザーの所有エントリを親フォルダ単位でページ取得する。
// GET /files?parentId=xxx&page=0
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	parentID := r.URL.Query().Get("parentId")

	// pageは0始まり。不正な値は0として扱う
	page := 0
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	entries, err := h.service.List(r.Context(), userID, parentID, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]fileResponse, len(entries))
	for i, f := range entries {
		results[i] = toFileResponse(f)
	}
	writeJSON(w, http.StatusOK, results)
}

// Publish はエントリを公開状態にする。
// PUT /files/{id}/publish
func (h *FileHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, true)
}

// Unpublish はエントリを非公開状態にする。
// PUT /files/{id}/unpublish
func (h *FileHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, false)
}

func (h *FileHandler) setVisibility(w http.ResponseWriter, r *http.Request, isPublic bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	fileID := chi.URLParam(r, "id")

	file, err := h.service.SetVisibility(r.Context(), userID, fileID, isPublic)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponse(file))
}

// GetContent はエントリのコンテンツを返す。
// sizeクエリでサムネイル版を指定できる。公開エントリは匿名でも取得できる。
// GET /files/{id}/data?size=250
func (h *FileHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := middleware.UserIDFromContext(r.Context())
	fileID := chi.URLParam(r, "id")
	size := r.URL.Query().Get("size")

	content, contentType, err := h.service.GetContent(r.Context(), requesterID, fileID, size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
