// Package thumbnail は画像アップロードに対するサムネイル生成ワーカーを提供する。
// ジョブはat-least-onceで配送されるため、処理全体を冪等に保つ。
// 恒久的な失敗（ペイロード不正・ファイル不在）はasynq.SkipRetryで
// 即座に打ち切り、一時的な失敗はキューのバックオフ付きリトライに委ねる。
package thumbnail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/hibiken/asynq"

	"github.com/hitoshi/filebox/internal/model"
	"github.com/hitoshi/filebox/internal/queue"
)

// Widths は生成するサムネイルの幅。高さはアスペクト比を維持して決まる。
var Widths = []int{500, 250, 100}

// FileFinder はジョブが参照するファイルの再検証インターフェース。
type FileFinder interface {
	// FindByIDAndOwner はIDと所有者の両方が一致するエントリを返す。
	// 一致しない場合はnilを返す。
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.File, error)
}

// BlobStore はコンテンツの読み出しと派生ファイル書き込みのインターフェース。
type BlobStore interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Exists(path string) bool
}

// MetricsRecorder はサムネイル生成メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordThumbnailGenerated()
	RecordThumbnailFailed()
}

// Worker はサムネイル生成ジョブのコンシューマ。
type Worker struct {
	files   FileFinder
	blobs   BlobStore
	metrics MetricsRecorder
	logger  *slog.Logger
}

// NewWorker はWorkerを生成する。
func NewWorker(files FileFinder, blobs BlobStore, metrics MetricsRecorder, logger *slog.Logger) *Worker {
	return &Worker{
		files:   files,
		blobs:   blobs,
		metrics: metrics,
		logger:  logger,
	}
}

// NewMux はサムネイルタスクをこのワーカーに割り当てたServeMuxを返す。
func (w *Worker) NewMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeThumbnail, w.HandleThumbnailTask)
	return mux
}

// HandleThumbnailTask はサムネイル生成ジョブを1件処理する。
// 3解像度すべてを `<元パス>_<幅>` へ上書き生成する。派生パスは元コンテンツと
// 幅から決定的に定まるため、再実行・重複配送は同一バイト列の上書きになる。
// いずれかの幅で失敗した場合はジョブ全体を失敗させ、リトライで全幅を再生成する。
func (w *Worker) HandleThumbnailTask(ctx context.Context, task *asynq.Task) error {
	var p queue.ThumbnailPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("ペイロードを解析できません: %v: %w", err, asynq.SkipRetry)
	}
	if p.FileID == "" {
		return fmt.Errorf("file_idがありません: %w", asynq.SkipRetry)
	}
	if p.UserID == "" {
		return fmt.Errorf("user_idがありません: %w", asynq.SkipRetry)
	}

	// IDと所有者の両方で再検証する。不一致はリトライしても解消しない。
	file, err := w.files.FindByIDAndOwner(ctx, p.FileID, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to fetch file: %w", err)
	}
	if file == nil {
		w.metrics.RecordThumbnailFailed()
		return fmt.Errorf("ファイルが見つかりません (file_id=%s): %w", p.FileID, asynq.SkipRetry)
	}

	if !w.blobs.Exists(file.LocalPath) {
		w.metrics.RecordThumbnailFailed()
		return fmt.Errorf("元コンテンツがありません (path=%s): %w", file.LocalPath, asynq.SkipRetry)
	}

	src, err := w.blobs.Read(file.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to read original content: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		w.metrics.RecordThumbnailFailed()
		return fmt.Errorf("画像としてデコードできません: %v: %w", err, asynq.SkipRetry)
	}

	encodeFormat, err := imaging.FormatFromExtension(format)
	if err != nil {
		encodeFormat = imaging.PNG
	}

	for _, width := range Widths {
		if err := w.generate(img, encodeFormat, file.LocalPath, width); err != nil {
			w.metrics.RecordThumbnailFailed()
			return fmt.Errorf("failed to generate %dpx thumbnail: %w", width, err)
		}
	}

	w.metrics.RecordThumbnailGenerated()
	w.logger.Info("サムネイルを生成しました",
		slog.String("file_id", file.ID),
		slog.String("path", file.LocalPath),
		slog.String("format", format),
	)

	return nil
}

// generate は1解像度分のサムネイルを生成して書き込む。
func (w *Worker) generate(img image.Image, format imaging.Format, originalPath string, width int) error {
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	path := DerivativePath(originalPath, width)
	if err := w.blobs.Write(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	return nil
}

// DerivativePath は元パスと幅から派生ファイルのパスを決定的に構築する。
func DerivativePath(originalPath string, width int) string {
	return fmt.Sprintf("%s_%d", originalPath, width)
}
