// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/filebox/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、採番したIDをuser.IDに設定する。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Count は登録ユーザー数を返す。
	Count(ctx context.Context) (int64, error)
}

// FileRepository はファイルメタデータの永続化インターフェース。
// 単一ドキュメントの挿入・更新はストア側でアトミックに行われる。
type FileRepository interface {
	// Create はエントリを作成し、採番したIDをfile.IDに設定する。
	Create(ctx context.Context, file *model.File) error

	// FindByID は指定IDのエントリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.File, error)

	// FindByIDAndOwner はIDと所有者の両方でエントリを検索する。
	// どちらかが一致しない場合はnilを返す。
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.File, error)

	// ListByOwnerAndParent は所有者と親IDが一致するエントリを挿入順で返す。
	// ページは0始まりで、範囲外のページは空スライスを返す。
	ListByOwnerAndParent(ctx context.Context, ownerID, parentID string, page, pageSize int) ([]*model.File, error)

	// SetPublic は可視性フラグを更新し、更新後のエントリを返す。
	// 対象が存在しない場合はnilを返す。
	SetPublic(ctx context.Context, id string, isPublic bool) (*model.File, error)

	// Count は全エントリ数を返す。
	Count(ctx context.Context) (int64, error)
}

// SessionRepository はトークン→ユーザーID 対応の永続化インターフェース。
// 実装はキーバリューストアへの固定TTL付き書き込みを想定する。
type SessionRepository interface {
	// Create はトークンを指定TTLで保存する。
	Create(ctx context.Context, token, userID string, ttl time.Duration) error

	// FindUserID はトークンに対応するユーザーIDを取得する。
	// 未登録・期限切れの場合は空文字列を返す。ストア不達はエラーを返し、
	// 呼び出し側はfail closed（拒否）として扱うこと。
	FindUserID(ctx context.Context, token string) (string, error)

	// Delete はトークンを即時削除する。存在しないトークンの削除はエラーにしない。
	Delete(ctx context.Context, token string) error
}
