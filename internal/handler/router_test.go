package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/filebox/internal/middleware"
	"github.com/hitoshi/filebox/internal/model"
	"golang.org/x/time/rate"
)

// mockResolver はmiddleware.TokenResolverのモック実装。
type mockResolver struct {
	users map[string]string // token -> userID
}

func (m *mockResolver) ResolveToken(ctx context.Context, token string) (string, error) {
	if userID, ok := m.users[token]; ok {
		return userID, nil
	}
	return "", model.NewUnauthorizedError()
}

// mockPinger はPingerのモック実装。
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// mockCounter はCounterのモック実装。
type mockCounter struct {
	count int64
}

func (m *mockCounter) Count(ctx context.Context) (int64, error) { return m.count, nil }

func testRouter(t *testing.T, fileService FileServiceInterface) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    1000,
		UploadRate:      rate.Limit(1000),
		UploadBurst:     1000,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	if fileService == nil {
		fileService = &mockFileService{
			getFn: func(ctx context.Context, requesterID, fileID string) (*model.File, error) {
				return &model.File{ID: fileID, OwnerID: "u-1", IsPublic: true}, nil
			},
			listFn: func(ctx context.Context, ownerID, parentID string, page int) ([]*model.File, error) {
				return nil, nil
			},
		}
	}

	return NewRouter(&RouterDeps{
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		TokenResolver: &mockResolver{users: map[string]string{"valid-token": "u-1"}},
		RateLimiter:   rl,
		AuthService: &mockAuthService{
			loginFn: func(ctx context.Context, email, password string) (string, error) {
				return "valid-token", nil
			},
			logoutFn: func(ctx context.Context, token string) error { return nil },
			getUserByTokenFn: func(ctx context.Context, token string) (*model.User, error) {
				return &model.User{ID: "u-1", Email: "bob@dylan.com"}, nil
			},
		},
		UserService: &mockUserService{
			registerFn: func(ctx context.Context, email, password string) (*model.User, error) {
				return &model.User{ID: "u-1", Email: email}, nil
			},
		},
		FileService:    fileService,
		DB:             &mockPinger{},
		Redis:          &mockPinger{err: errors.New("down")},
		UserCounter:    &mockCounter{count: 12},
		FileCounter:    &mockCounter{count: 1231},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	})
}

// 認証が必要なルートはトークンなしで401を返すこと。
func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := testRouter(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/disconnect"},
		{http.MethodGet, "/users/me"},
		{http.MethodPost, "/files"},
		{http.MethodGet, "/files"},
		{http.MethodPut, "/files/f-1/publish"},
		{http.MethodPut, "/files/f-1/unpublish"},
	}

	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", rt.method, rt.path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestRouter_ProtectedRouteWithToken(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("X-Token", "valid-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// 公開エントリのメタデータは匿名で取得できること。
func TestRouter_AnonymousGetFile(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/files/f-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_Health(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_Status(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body["db"] {
		t.Error("db = false, want true")
	}
	if body["redis"] {
		t.Error("redis = true, want false")
	}
}

func TestRouter_Stats(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]int64
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["users"] != 12 || body["files"] != 1231 {
		t.Errorf("body = %v", body)
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
