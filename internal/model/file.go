package model

// FileKind はファイルエントリの種別を表す。
type FileKind string

const (
	// KindFolder はフォルダ（コンテンツを持たない階層ノード）。
	KindFolder FileKind = "folder"
	// KindFile は通常ファイル。
	KindFile FileKind = "file"
	// KindImage は画像ファイル。アップロード成功時にサムネイル生成ジョブが発行される。
	KindImage FileKind = "image"
)

// RootParentID はルート直下を示す親IDの番兵値。
// 実在するエントリではなく、親フォルダ検証の対象外となる。
const RootParentID = "0"

// ValidKind は種別が folder/file/image のいずれかであるかを返す。
func ValidKind(k FileKind) bool {
	return k == KindFolder || k == KindFile || k == KindImage
}

// File はユーザー階層内のフォルダ・ファイル・画像ノードのメタデータを表す。
type File struct {
	ID       string
	OwnerID  string
	Name     string
	Kind     FileKind
	ParentID string // RootParentID ("0") はルート直下
	IsPublic bool
	// LocalPath はblob領域に永続化されたコンテンツへのパス。
	// フォルダでは常に空。
	LocalPath string
}

// IsFolder はエントリがフォルダであるかを返す。
func (f *File) IsFolder() bool {
	return f.Kind == KindFolder
}
