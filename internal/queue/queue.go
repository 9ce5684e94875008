// Package queue はサムネイル生成ジョブのキュー投入を提供する。
// キューはRedisバックドのasynqで、at-least-once配送と
// 指数バックオフ付きリトライを前提とする。
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeThumbnail はサムネイル生成タスクのタイプ名。
const TypeThumbnail = "thumbnail:generate"

// ThumbnailPayload はサムネイル生成ジョブのペイロード。
// 配送は重複しうるため、コンシューマは冪等に処理すること。
type ThumbnailPayload struct {
	UserID string `json:"user_id"`
	FileID string `json:"file_id"`
}

// NewThumbnailTask はサムネイル生成タスクを構築する。
func NewThumbnailTask(userID, fileID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ThumbnailPayload{UserID: userID, FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal thumbnail payload: %w", err)
	}
	return asynq.NewTask(TypeThumbnail, payload), nil
}

// Client はasynqクライアントのラッパー。
type Client struct {
	client   *asynq.Client
	maxRetry int
}

// NewClient はClientを生成する。
// maxRetryはジョブごとのリトライ上限で、超過したジョブはアーカイブ
// （デッドレター）に移る。
func NewClient(redisOpt asynq.RedisClientOpt, maxRetry int) *Client {
	return &Client{
		client:   asynq.NewClient(redisOpt),
		maxRetry: maxRetry,
	}
}

// EnqueueThumbnail はサムネイル生成ジョブを投入する。
func (c *Client) EnqueueThumbnail(ctx context.Context, userID, fileID string) error {
	task, err := NewThumbnailTask(userID, fileID)
	if err != nil {
		return err
	}

	if _, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(c.maxRetry)); err != nil {
		return fmt.Errorf("failed to enqueue thumbnail task: %w", err)
	}
	return nil
}

// Close はクライアント接続を閉じる。
func (c *Client) Close() error {
	return c.client.Close()
}
