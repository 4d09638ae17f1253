// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/haruki/otoba/internal/model"
	"github.com/haruki/otoba/internal/repository"
)

// maxDisplayNameLength は表示名の最大文字数（rune単位）。
const maxDisplayNameLength = 32

// UserStore はユーザーの取得・更新インターフェース。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// NameSanitizer は表示名のサニタイズインターフェース。
type NameSanitizer interface {
	Sanitize(name string) string
}

// Service はユーザー管理のサービス層。
// プロフィール取得と表示名変更のビジネスロジックを提供する。
type Service struct {
	users     UserStore
	sanitizer NameSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users UserStore, sanitizer NameSanitizer) *Service {
	return &Service{
		users:     users,
		sanitizer: sanitizer,
	}
}

// GetProfile はユーザーのプロフィールを取得する。
// ユーザーが存在しない場合はUSER_NOT_FOUNDエラーを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return user, nil
}

// UpdateDisplayName はユーザーの表示名を更新する。
// 入力はサニタイズ後に検証され、空文字や長すぎる名前は
// INVALID_DISPLAY_NAMEエラーで拒否される。
func (s *Service) UpdateDisplayName(ctx context.Context, userID, name string) (*model.User, error) {
	sanitized := s.sanitizer.Sanitize(name)
	if sanitized == "" {
		return nil, model.NewInvalidDisplayNameError("表示名が空です")
	}
	if utf8.RuneCountInString(sanitized) > maxDisplayNameLength {
		return nil, model.NewInvalidDisplayNameError(
			fmt.Sprintf("表示名は%d文字以内で指定してください", maxDisplayNameLength))
	}

	if err := s.users.UpdateDisplayName(ctx, userID, sanitized); err != nil {
		return nil, fmt.Errorf("表示名の更新に失敗しました: %w", err)
	}

	slog.Info("display name updated",
		slog.String("user_id", userID),
	)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("更新後のユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return user, nil
}

// compile-time interface check
var _ UserStore = (repository.UserRepository)(nil)
