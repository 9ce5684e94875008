// Package access はファイルエントリに対する読み書き可否の判定を提供する。
// 判定は純粋関数で、ストアにもセッションにも依存しない。
package access

import "github.com/hitoshi/filebox/internal/model"

// CanRead はrequesterIDがエントリを閲覧できるかを返す。
// 公開エントリは誰でも（匿名含む）閲覧でき、非公開エントリは所有者のみ。
// requesterIDの空文字列は匿名を表す。
func CanRead(file *model.File, requesterID string) bool {
	if file == nil {
		return false
	}
	if file.IsPublic {
		return true
	}
	return requesterID != "" && requesterID == file.OwnerID
}

// CanWrite はrequesterIDがエントリを変更できるかを返す。所有者のみ可。
func CanWrite(file *model.File, requesterID string) bool {
	if file == nil {
		return false
	}
	return requesterID != "" && requesterID == file.OwnerID
}
