// Package blob はローカルファイルシステム上のコンテンツ保管領域を提供する。
// メタデータはMongoDBが持ち、ここには生のバイト列だけを置く。
package blob

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store はローカルblob領域。保管ディレクトリは最初の書き込み時に生成する。
type Store struct {
	dir string
}

// NewStore はStoreを生成する。ディレクトリ生成はこの時点では行わない。
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save はコンテンツを新規パスに永続化し、そのパスを返す。
// ファイル名はuuid v4で生成し、衝突を実質的に排除する。
func (s *Store) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}

	path := filepath.Join(s.dir, uuid.New().String())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return path, nil
}

// Write は指定パスへコンテンツを書き込む。既存ファイルは上書きする。
// サムネイル等の派生ファイルの決定的な再生成に使う。
func (s *Store) Write(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return nil
}

// Read は指定パスのコンテンツを読み出す。
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Exists は指定パスにコンテンツが存在するかを返す。
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
