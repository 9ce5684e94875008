// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 原因カテゴリとユーザー向け対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, file, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeMissingEmail    = "MISSING_EMAIL"
	ErrCodeMissingPassword = "MISSING_PASSWORD"
	ErrCodeUserExists      = "USER_EXISTS"
	ErrCodeMissingName     = "MISSING_NAME"
	ErrCodeMissingType     = "MISSING_TYPE"
	ErrCodeMissingData     = "MISSING_DATA"
	ErrCodeInvalidData     = "INVALID_DATA"
	ErrCodeParentNotFound  = "PARENT_NOT_FOUND"
	ErrCodeParentNotFolder = "PARENT_NOT_FOLDER"
	ErrCodeFolderNoContent = "FOLDER_NO_CONTENT"
)

// NewUnauthorizedError は認証エラーを生成する。
// トークン未提示・無効・期限切れのいずれでも同一のレスポンスを返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNotFoundError はエントリ未検出エラーを生成する。
// 存在しない場合と閲覧権限がない場合を意図的に区別しない（情報漏洩防止）。
func NewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "指定されたファイルが見つかりません。",
		Category: "file",
		Action:   "ファイルIDを確認してください。",
	}
}

// NewMissingFieldError は必須フィールド欠落エラーを生成する。
// codeにはMISSING_*系のエラーコードを指定する。
func NewMissingFieldError(code, field string) *APIError {
	return &APIError{
		Code:     code,
		Message:  fmt.Sprintf("必須フィールドがありません: %s", field),
		Category: "validation",
		Action:   fmt.Sprintf("%s を指定してください。", field),
	}
}

// NewUnsupportedKindError は未対応の種別エラーを生成する。
func NewUnsupportedKindError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingType,
		Message:  fmt.Sprintf("未対応の種別です: %s", kind),
		Category: "validation",
		Action:   "type には folder、file、image のいずれかを指定してください。",
	}
}

// NewInvalidDataError はコンテンツのデコード失敗エラーを生成する。
func NewInvalidDataError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidData,
		Message:  "data をbase64としてデコードできません。",
		Category: "validation",
		Action:   "data にはbase64エンコードされたコンテンツを指定してください。",
	}
}

// NewUserExistsError はメールアドレス重複エラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを指定するか、ログインしてください。",
	}
}

// NewParentNotFoundError は親フォルダ未検出エラーを生成する。
func NewParentNotFoundError(parentID string) *APIError {
	return &APIError{
		Code:     ErrCodeParentNotFound,
		Message:  fmt.Sprintf("親フォルダが見つかりません: %s", parentID),
		Category: "validation",
		Action:   "parentId を確認してください。",
	}
}

// NewParentNotFolderError は親がフォルダでない場合のエラーを生成する。
func NewParentNotFolderError(parentID string) *APIError {
	return &APIError{
		Code:     ErrCodeParentNotFolder,
		Message:  fmt.Sprintf("親エントリがフォルダではありません: %s", parentID),
		Category: "validation",
		Action:   "parentId にはフォルダのIDを指定してください。",
	}
}

// NewFolderNoContentError はフォルダに対するコンテンツ取得エラーを生成する。
func NewFolderNoContentError() *APIError {
	return &APIError{
		Code:     ErrCodeFolderNoContent,
		Message:  "フォルダはコンテンツを持ちません。",
		Category: "file",
		Action:   "ファイルまたは画像のIDを指定してください。",
	}
}
