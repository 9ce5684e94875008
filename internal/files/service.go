// Package files はファイルツリーの操作とアップロードパイプラインを提供する。
package files

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"

	"github.com/hitoshi/filebox/internal/access"
	"github.com/hitoshi/filebox/internal/model"
	"github.com/hitoshi/filebox/internal/repository"
)

// PageSize は一覧取得の固定ページサイズ。
const PageSize = 20

// defaultContentType は拡張子からMIMEタイプを引けない場合のフォールバック。
const defaultContentType = "application/octet-stream"

// BlobStore はコンテンツ保管領域のインターフェース。
type BlobStore interface {
	// Save はコンテンツを新規パスへ永続化し、そのパスを返す。
	Save(data []byte) (string, error)
	// Read は指定パスのコンテンツを読み出す。
	Read(path string) ([]byte, error)
	// Exists は指定パスにコンテンツが存在するかを返す。
	Exists(path string) bool
}

// ThumbnailEnqueuer はサムネイル生成ジョブの投入インターフェース。
type ThumbnailEnqueuer interface {
	EnqueueThumbnail(ctx context.Context, userID, fileID string) error
}

// MetricsRecorder はアップロード関連メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordUpload(kind string)
	RecordThumbnailEnqueueFailure()
}

// CreateEntryInput はエントリ作成の検証済み入力。
// 未知フィールドはHTTP境界で拒否され、ここには型付きの値だけが届く。
type CreateEntryInput struct {
	Name     string
	Kind     model.FileKind
	ParentID string // 省略時はmodel.RootParentID
	IsPublic bool
	Data     string // base64エンコードされたコンテンツ。フォルダでは無視される。
}

// Service はファイルツリーに関するビジネスロジックを提供する。
type Service struct {
	fileRepo repository.FileRepository
	blobs    BlobStore
	enqueuer ThumbnailEnqueuer
	metrics  MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(
	fileRepo repository.FileRepository,
	blobs BlobStore,
	enqueuer ThumbnailEnqueuer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		fileRepo: fileRepo,
		blobs:    blobs,
		enqueuer: enqueuer,
		metrics:  metrics,
	}
}

// CreateEntry はフォルダまたはファイル/画像を作成する。
// 画像の場合はメタデータ書き込み成功後にサムネイル生成ジョブを投入する。
// ジョブ投入の失敗はアップロード自体を失敗させない（ベストエフォート境界）。
func (s *Service) CreateEntry(ctx context.Context, ownerID string, in CreateEntryInput) (*model.File, error) {
	if in.Name == "" {
		return nil, model.NewMissingFieldError(model.ErrCodeMissingName, "name")
	}
	if in.Kind == "" {
		return nil, model.NewMissingFieldError(model.ErrCodeMissingType, "type")
	}
	if !model.ValidKind(in.Kind) {
		return nil, model.NewUnsupportedKindError(string(in.Kind))
	}
	if in.Kind != model.KindFolder && in.Data == "" {
		return nil, model.NewMissingFieldError(model.ErrCodeMissingData, "data")
	}

	parentID := in.ParentID
	if parentID == "" {
		parentID = model.RootParentID
	}

	if parentID != model.RootParentID {
		parent, err := s.fileRepo.FindByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch parent: %w", err)
		}
		if parent == nil {
			return nil, model.NewParentNotFoundError(parentID)
		}
		if !parent.IsFolder() {
			return nil, model.NewParentNotFolderError(parentID)
		}
	}

	file := &model.File{
		OwnerID:  ownerID,
		Name:     in.Name,
		Kind:     in.Kind,
		ParentID: parentID,
		IsPublic: in.IsPublic,
	}

	if in.Kind != model.KindFolder {
		content, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			return nil, model.NewInvalidDataError()
		}

		path, err := s.blobs.Save(content)
		if err != nil {
			return nil, fmt.Errorf("failed to persist content: %w", err)
		}
		file.LocalPath = path
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to create file entry: %w", err)
	}

	s.metrics.RecordUpload(string(file.Kind))
	slog.Info("entry created",
		slog.String("file_id", file.ID),
		slog.String("user_id", ownerID),
		slog.String("kind", string(file.Kind)),
	)

	if file.Kind == model.KindImage {
		// メタデータ書き込みとジョブ投入はトランザクションではない。
		// 投入失敗時はファイルだけが残り、サムネイルは生成されない。
		if err := s.enqueuer.EnqueueThumbnail(ctx, ownerID, file.ID); err != nil {
			s.metrics.RecordThumbnailEnqueueFailure()
			slog.Warn("failed to enqueue thumbnail job, upload kept",
				slog.String("file_id", file.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return file, nil
}

// Get は指定IDのエントリを返す。
// 存在しない場合と閲覧権限がない場合は同一のNOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, requesterID, fileID string) (*model.File, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	if !access.CanRead(file, requesterID) {
		return nil, model.NewNotFoundError()
	}
	return file, nil
}

// List は要求ユーザー自身のエントリのうち親IDが一致するものをページングして返す。
// 範囲外のページは空スライスを返す。
func (s *Service) List(ctx context.Context, ownerID, parentID string, page int) ([]*model.File, error) {
	if parentID == "" {
		parentID = model.RootParentID
	}

	entries, err := s.fileRepo.ListByOwnerAndParent(ctx, ownerID, parentID, page, PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return entries, nil
}

// SetVisibility は可視性フラグを変更し、更新後のエントリを返す。
// 所有者以外からの変更は存在の有無を漏らさないようNOT_FOUNDで拒否する。
func (s *Service) SetVisibility(ctx context.Context, requesterID, fileID string, isPublic bool) (*model.File, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	if !access.CanWrite(file, requesterID) {
		return nil, model.NewNotFoundError()
	}

	updated, err := s.fileRepo.SetPublic(ctx, fileID, isPublic)
	if err != nil {
		return nil, fmt.Errorf("failed to update visibility: %w", err)
	}
	if updated == nil {
		return nil, model.NewNotFoundError()
	}

	return updated, nil
}

// allowedSizes はコンテンツ取得時に指定できるサムネイル幅。
var allowedSizes = map[string]bool{
	"500": true,
	"250": true,
	"100": true,
}

// GetContent はエントリのコンテンツとMIMEタイプを返す。
// requesterIDは匿名の場合空文字列。sizeを指定するとサムネイル版を返す。
// 閲覧不可・blob欠落・未生成のサムネイルはNOT_FOUND、
// フォルダはFOLDER_NO_CONTENTを返す。
func (s *Service) GetContent(ctx context.Context, requesterID, fileID, size string) ([]byte, string, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch file: %w", err)
	}
	if !access.CanRead(file, requesterID) {
		return nil, "", model.NewNotFoundError()
	}

	if file.IsFolder() {
		return nil, "", model.NewFolderNoContentError()
	}

	path := file.LocalPath
	if size != "" {
		if !allowedSizes[size] {
			return nil, "", model.NewNotFoundError()
		}
		path = fmt.Sprintf("%s_%s", file.LocalPath, size)
	}

	if !s.blobs.Exists(path) {
		return nil, "", model.NewNotFoundError()
	}

	content, err := s.blobs.Read(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read content: %w", err)
	}

	return content, contentTypeOf(file.Name), nil
}

// contentTypeOf はファイル名の拡張子からMIMEタイプを引く。
func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}
