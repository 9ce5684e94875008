package files

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/filebox/internal/model"
)

// --- モック ---

type mockFileRepo struct {
	createFn         func(ctx context.Context, file *model.File) error
	findByIDFn       func(ctx context.Context, id string) (*model.File, error)
	findByIDOwnerFn  func(ctx context.Context, id, ownerID string) (*model.File, error)
	listFn           func(ctx context.Context, ownerID, parentID string, page, pageSize int) ([]*model.File, error)
	setPublicFn      func(ctx context.Context, id string, isPublic bool) (*model.File, error)
}

func (m *mockFileRepo) Create(ctx context.Context, file *model.File) error {
	if m.createFn != nil {
		return m.createFn(ctx, file)
	}
	file.ID = "f-new"
	return nil
}
func (m *mockFileRepo) FindByID(ctx context.Context, id string) (*model.File, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockFileRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.File, error) {
	if m.findByIDOwnerFn != nil {
		return m.findByIDOwnerFn(ctx, id, ownerID)
	}
	return nil, nil
}
func (m *mockFileRepo) ListByOwnerAndParent(ctx context.Context, ownerID, parentID string, page, pageSize int) ([]*model.File, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, parentID, page, pageSize)
	}
	return []*model.File{}, nil
}
func (m *mockFileRepo) SetPublic(ctx context.Context, id string, isPublic bool) (*model.File, error) {
	if m.setPublicFn != nil {
		return m.setPublicFn(ctx, id, isPublic)
	}
	return nil, nil
}
func (m *mockFileRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

type mockBlobStore struct {
	saved map[string][]byte
	next  int
	fail  bool
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{saved: map[string][]byte{}}
}

func (m *mockBlobStore) Save(data []byte) (string, error) {
	if m.fail {
		return "", errors.New("disk full")
	}
	m.next++
	path := fmt.Sprintf("/blobs/%d", m.next)
	m.saved[path] = data
	return path, nil
}
func (m *mockBlobStore) Read(path string) ([]byte, error) {
	data, ok := m.saved[path]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return data, nil
}
func (m *mockBlobStore) Write(path string, data []byte) error {
	m.saved[path] = data
	return nil
}
func (m *mockBlobStore) Exists(path string) bool {
	_, ok := m.saved[path]
	return ok
}

type mockEnqueuer struct {
	calls [][2]string
	err   error
}

func (m *mockEnqueuer) EnqueueThumbnail(ctx context.Context, userID, fileID string) error {
	m.calls = append(m.calls, [2]string{userID, fileID})
	return m.err
}

type mockMetrics struct {
	uploads         []string
	enqueueFailures int
}

func (m *mockMetrics) RecordUpload(kind string)           { m.uploads = append(m.uploads, kind) }
func (m *mockMetrics) RecordThumbnailEnqueueFailure()     { m.enqueueFailures++ }

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	return apiErr.Code
}

// --- テスト ---

// ルート直下のフォルダ作成が親検証なしで成功することを検証
func TestService_CreateEntry_Folder(t *testing.T) {
	repo := &mockFileRepo{}
	svc := NewService(repo, newMockBlobStore(), &mockEnqueuer{}, &mockMetrics{})

	file, err := svc.CreateEntry(context.Background(), "u-1", CreateEntryInput{
		Name: "docs",
		Kind: model.KindFolder,
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	if file.ID != "f-new" {
		t.Errorf("ID = %q, want %q", file.ID, "f-new")
	}
	if file.ParentID != model.RootParentID {
		t.Errorf("ParentID = %q, want root sentinel %q", file.ParentID, model.RootParentID)
	}
	if file.LocalPath != "" {
		t.Errorf("folder must not have a content path, got %q", file.LocalPath)
	}
}

// 入力検証が欠落フィールドごとのエラーコードを返すことを検証
func TestService_CreateEntry_Validation(t *testing.T) {
	svc := NewService(&mockFileRepo{}, newMockBlobStore(), &mockEnqueuer{}, &mockMetrics{})
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateEntryInput
		code string
	}{
		{"名前欠落", CreateEntryInput{Kind: model.KindFile, Data: b64("x")}, model.ErrCodeMissingName},
		{"種別欠落", CreateEntryInput{Name: "a", Data: b64("x")}, model.ErrCodeMissingType},
		{"未対応種別", CreateEntryInput{Name: "a", Kind: "symlink"}, model.ErrCodeMissingType},
		{"データ欠落", CreateEntryInput{Name: "a", Kind: model.KindFile}, model.ErrCodeMissingData},
		{"画像もデータ必須", CreateEntryInput{Name: "a", Kind: model.KindImage}, model.ErrCodeMissingData},
		{"base64不正", CreateEntryInput{Name: "a", Kind: model.KindFile, Data: "%%%"}, model.ErrCodeInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEntry(ctx, "u-1", tt.in)
			if got := errCode(t, err); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

// 親が存在しない・フォルダでない場合に作成が拒否されることを検証
func TestService_CreateEntry_ParentValidation(t *testing.T) {
	repo := &mockFileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.File, error) {
			switch id {
			case "folder-1":
				return &model.File{ID: id, Kind: model.KindFolder, OwnerID: "u-1"}, nil
			case "file-1":
				return &model.File{ID: id, Kind: model.KindFile, OwnerID: "u-1"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, newMockBlobStore(), &mockEnqueuer{}, &mockMetrics{})
	ctx := context.Background()

	// 実在するフォルダ配下は成功
	if _, err := svc.CreateEntry(ctx, "u-1", CreateEntryInput{
		Name: "doc", Kind: model.KindFile, ParentID: "folder-1", Data: b64("x"),
	}); err != nil {
		t.Errorf("under folder: error = %v", err)
	}

	// ファイル配下は拒否
	_, err := svc.CreateEntry(ctx, "u-1", CreateEntryInput{
		Name: "doc", Kind: model.KindFile, ParentID: "file-1", Data: b64("x"),
	})
	if got := errCode(t, err); got != model.ErrCodeParentNotFolder {
		t.Errorf("code = %s, want %s", got, model.ErrCodeParentNotFolder)
	}

	// 不在の親は拒否
	_, err = svc.CreateEntry(ctx, "u-1", CreateEntryInput{
		Name: "doc", Kind: model.KindFile, ParentID: "nope", Data: b64("x"),
	})
	if got := errCode(t, err); got != model.ErrCodeParentNotFound {
		t.Errorf("code = %s, want %s", got, model.ErrCodeParentNotFound)
	}
}

// ファイル作成でコンテンツがデコードされblobへ永続化されることを検証
func TestService_CreateEntry_PersistsContent(t *testing.T) {
	blobs := newMockBlobStore()
	svc := NewService(&mockFileRepo{}, blobs, &mockEnqueuer{}, &mockMetrics{})

	file, err := svc.CreateEntry(context.Background(), "u-1", CreateEntryInput{
		Name: "doc", Kind: model.KindFile, Data: b64("hello world"),
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	if file.LocalPath == "" {
		t.Fatal("expected LocalPath to be set")
	}
	data, err := blobs.Read(file.LocalPath)
	if err != nil {
		t.Fatalf("blob not saved: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("content = %q, want %q", data, "hello world")
	}
}

// 画像作成でサムネイルジョブが投入されることを検証
func TestService_CreateEntry_ImageEnqueuesThumbnail(t *testing.T) {
	enq := &mockEnqueuer{}
	svc := NewService(&mockFileRepo{}, newMockBlobStore(), enq, &mockMetrics{})

	file, err := svc.CreateEntry(context.Background(), "u-1", CreateEntryInput{
		Name: "pic.png", Kind: model.KindImage, Data: b64("pngbytes"),
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	if len(enq.calls) != 1 {
		t.Fatalf("enqueue calls = %d, want 1", len(enq.calls))
	}
	if enq.calls[0] != [2]string{"u-1", file.ID} {
		t.Errorf("enqueue args = %v, want [u-1 %s]", enq.calls[0], file.ID)
	}
}

// 通常ファイルではジョブが投入されないことを検証
func TestService_CreateEntry_FileDoesNotEnqueue(t *testing.T) {
	enq := &mockEnqueuer{}
	svc := NewService(&mockFileRepo{}, newMockBlobStore(), enq, &mockMetrics{})

	if _, err := svc.CreateEntry(context.Background(), "u-1", CreateEntryInput{
		Name: "doc", Kind: model.KindFile, Data: b64("x"),
	}); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	if len(enq.calls) != 0 {
		t.Errorf("enqueue calls = %d, want 0", len(enq.calls))
	}
}

// ジョブ投入失敗でもアップロードが成功扱いになることを検証（ベストエフォート境界）
func TestService_CreateEntry_EnqueueFailureKeepsUpload(t *testing.T) {
	enq := &mockEnqueuer{err: errors.New("queue unreachable")}
	metrics := &mockMetrics{}
	svc := NewService(&mockFileRepo{}, newMockBlobStore(), enq, metrics)

	file, err := svc.CreateEntry(context.Background(), "u-1", CreateEntryInput{
		Name: "pic.png", Kind: model.KindImage, Data: b64("pngbytes"),
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v, want success despite enqueue failure", err)
	}
	if file.ID == "" {
		t.Error("expected created entry")
	}
	if metrics.enqueueFailures != 1 {
		t.Errorf("enqueueFailures = %d, want 1", metrics.enqueueFailures)
	}
}

// 可視性規則: 非公開は所有者のみ、公開後は誰でも取得できることを検証
func TestService_Get_Visibility(t *testing.T) {
	private := &model.File{ID: "f-1", OwnerID: "u-1", IsPublic: false}
	repo := &mockFileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.File, error) {
			if id == "f-1" {
				return private, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, newMockBlobStore(), &mockEnqueuer{}, &mockMetrics{})
	ctx := context.Background()

	if _, err := svc.Get(ctx, "u-1", "f-1"); err != nil {
		t.Errorf("owner read: error = %v", err)
	}

	// 他ユーザー・匿名・不在IDはいずれも同一のNOT_FOUND
	for _, requester := range []string{"u-2", ""} {
		_, err := svc.Get(ctx, requester, "f-1")
		if got := errCode(t, err); got != model.ErrCodeNotFound {
			t.Errorf("requester %q: code = %s, want %s", requester, got, model.ErrCodeNotFound)
		}
	}
	_, err := svc.Get(ctx, "u-1", "missing")
	if got := errCode(t, err); got != model.ErrCodeNotFound {
		t.Errorf("missing id: code = %s, want %s", got, model.ErrCodeNotFound)
	}

	// 公開後は任意のユーザーから取得できる
	private.IsPublic = true
	if _, err := svc.Get(ctx, "u-2", "f-1"); err != nil {
		t.Errorf("public read: error = %v", err)
	}
}

// Listが固定ページサイズとルート番兵を使うことを検証
func TestService_List(t *testing.T) {
	var gotOwner, gotParent string
	var gotPage, gotSize int
	repo := &mockFileRepo{
		listFn: func(ctx context.Context, ownerID, parentID string, page, pageSize int) ([]*model.File, error) {
			gotOwner, gotParent, gotPage, gotSize = ownerID, parentID, page, pageSize
			return []*model.File{{ID: "f-1"}}, nil
		},
	}
	svc := NewService(repo, newMockBlobStore(), &mockEnqueuer{}, &mockMetrics{})

	entries, err := svc.List(context.Background(), "u-1", "", 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if gotOwner != "u-1" || gotParent != model.RootParentID {
		t.Errorf("owner/parent = %q/%q, want u-1/%q", gotOwner, gotParent, model.RootParentID)
	}
	if gotPage != 3 || gotSize != PageSize {
		t.Errorf("page/size = %d/%d, want 3/%d", gotPage, gotSize, PageSize)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1", len(entries))
	}
}

// 可視性変更は所有者のみ可能で、更新後のエントリが返ることを検証
func TestService_SetVisibility(t *testing.T) {
	repo := &mockFileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.File, error) {
			return &model.File{ID: id, OwnerID: "u-1", IsPublic: false}, nil
		},
		setPublicFn: func(ctx context.Context, id string, isPublic bool) (*model.File, error) {
			return &model.File{ID: id, OwnerID: "u-1", IsPublic: isPublic}, nil
		},
	}
	svc := NewService(repo, newMockBlobStore(), &mockEnqueuer{}, &mockMetrics{})
	ctx := context.Background()

	updated, err := svc.SetVisibility(ctx, "u-1", "f-1", true)
	if err != nil {
		t.Fatalf("SetVisibility() error = %v", err)
	}
	if !updated.IsPublic {
		t.Error("expected IsPublic = true after publish")
	}

	_, err = svc.SetVisibility(ctx, "u-2", "f-1", true)
	if got := errCode(t, err); got != model.ErrCodeNotFound {
		t.Errorf("non-owner publish: code = %s, want %s", got, model.ErrCodeNotFound)
	}
}

// GetContentがコンテンツとMIMEタイプを返すことを検証
func TestService_GetContent(t *testing.T) {
	blobs := newMockBlobStore()
	path, _ := blobs.Save([]byte("hello world"))

	repo := &mockFileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.File, error) {
			switch id {
			case "f-1":
				return &model.File{ID: id, OwnerID: "u-1", Kind: model.KindFile, Name: "doc.txt", LocalPath: path, IsPublic: false}, nil
			case "folder":
				return &model.File{ID: id, OwnerID: "u-1", Kind: model.KindFolder, Name: "docs"}, nil
			case "gone":
				return &model.File{ID: id, OwnerID: "u-1", Kind: model.KindFile, Name: "x", LocalPath: "/blobs/missing"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, blobs, &mockEnqueuer{}, &mockMetrics{})
	ctx := context.Background()

	content, contentType, err := svc.GetContent(ctx, "u-1", "f-1", "")
	if err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if string(content) != "hello world" {
		t.Errorf("content = %q, want %q", content, "hello world")
	}
	if contentType != "text/plain; charset=utf-8" {
		t.Errorf("contentType = %q, want text/plain", contentType)
	}

	// 非公開コンテンツは匿名・他ユーザーからNOT_FOUND
	for _, requester := range []string{"", "u-2"} {
		_, _, err := svc.GetContent(ctx, requester, "f-1", "")
		if got := errCode(t, err); got != model.ErrCodeNotFound {
			t.Errorf("requester %q: code = %s, want %s", requester, got, model.ErrCodeNotFound)
		}
	}

	// フォルダはコンテンツを持たない
	_, _, err = svc.GetContent(ctx, "u-1", "folder", "")
	if got := errCode(t, err); got != model.ErrCodeFolderNoContent {
		t.Errorf("folder: code = %s, want %s", got, model.ErrCodeFolderNoContent)
	}

	// blob欠落はNOT_FOUND
	_, _, err = svc.GetContent(ctx, "u-1", "gone", "")
	if got := errCode(t, err); got != model.ErrCodeNotFound {
		t.Errorf("missing blob: code = %s, want %s", got, model.ErrCodeNotFound)
	}
}

// sizeを指定するとサムネイル版のコンテンツが返ることを検証
func TestService_GetContent_Size(t *testing.T) {
	blobs := newMockBlobStore()
	path, _ := blobs.Save([]byte("original"))
	if err := blobs.Write(path+"_250", []byte("thumb-250")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	repo := &mockFileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.File, error) {
			return &model.File{ID: id, OwnerID: "u-1", Kind: model.KindImage, Name: "pic.png", LocalPath: path}, nil
		},
	}
	svc := NewService(repo, blobs, &mockEnqueuer{}, &mockMetrics{})
	ctx := context.Background()

	content, contentType, err := svc.GetContent(ctx, "u-1", "f-1", "250")
	if err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if string(content) != "thumb-250" {
		t.Errorf("content = %q, want %q", content, "thumb-250")
	}
	if contentType != "image/png" {
		t.Errorf("contentType = %q, want image/png", contentType)
	}

	// 未生成のサムネイルはNOT_FOUND
	_, _, err = svc.GetContent(ctx, "u-1", "f-1", "500")
	if got := errCode(t, err); got != model.ErrCodeNotFound {
		t.Errorf("missing thumbnail: code = %s, want %s", got, model.ErrCodeNotFound)
	}

	// 許可されていないサイズはNOT_FOUND
	_, _, err = svc.GetContent(ctx, "u-1", "f-1", "999")
	if got := errCode(t, err); got != model.ErrCodeNotFound {
		t.Errorf("invalid size: code = %s, want %s", got, model.ErrCodeNotFound)
	}
}

// 拡張子なしのファイル名がフォールバックMIMEになることを検証
func TestContentTypeOf_Fallback(t *testing.T) {
	if got := contentTypeOf("noext"); got != defaultContentType {
		t.Errorf("contentTypeOf(noext) = %q, want %q", got, defaultContentType)
	}
	if got := contentTypeOf("pic.png"); got != "image/png" {
		t.Errorf("contentTypeOf(pic.png) = %q, want image/png", got)
	}
}
