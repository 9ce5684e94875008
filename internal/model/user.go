// Package model はドメインモデルを定義する。
package model

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptダイジェストで、登録後は変更されない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
}

// Session はトークンとユーザーIDの対応を表す。
// Redis上の `auth_<token>` キーとして固定TTLで保持され、
// 明示的なログアウトまたは期限切れで消滅する。
type Session struct {
	Token  string
	UserID string
}
