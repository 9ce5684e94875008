// Package auth はユーザー登録、ログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/filebox/internal/model"
	"github.com/hitoshi/filebox/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL time.Duration // セッション有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Register は新規ユーザーを登録する。
// メールアドレスは一意で、パスワードはbcryptダイジェストとして保存する。
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" {
		return nil, model.NewMissingFieldError(model.ErrCodeMissingEmail, "email")
	}
	if password == "" {
		return nil, model.NewMissingFieldError(model.ErrCodeMissingPassword, "password")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(digest),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return user, nil
}

// Login は資格情報を検証し、新しいセッショントークンを発行する。
// 1ログインにつき1トークンで、同一ユーザーの複数同時セッションを許容する。
// 資格情報不一致と未登録メールは同一のエラーで返す。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.NewUnauthorizedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", model.NewUnauthorizedError()
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	if err := s.sessionRepo.Create(ctx, token, user.ID, s.config.SessionTTL); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return token, nil
}

// Logout はトークンを失効させる。
// トークンが有効でない場合は認証エラーを返す。
func (s *Service) Logout(ctx context.Context, token string) error {
	userID, err := s.sessionRepo.FindUserID(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if userID == "" {
		return model.NewUnauthorizedError()
	}

	if err := s.sessionRepo.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// ResolveToken はトークンに対応するユーザーIDを返す。
// トークンが未登録・期限切れの場合は認証エラーを返す。
// ストア不達もエラーとなり、認可がfail openになることはない。
func (s *Service) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", model.NewUnauthorizedError()
	}

	userID, err := s.sessionRepo.FindUserID(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	if userID == "" {
		return "", model.NewUnauthorizedError()
	}

	return userID, nil
}

// GetUserByToken はトークンから現在のユーザーを取得する。
func (s *Service) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// generateToken は暗号的に安全なセッショントークンを生成する。
// 256bitの乱数を16進表記にするため、衝突確率は無視できる。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
