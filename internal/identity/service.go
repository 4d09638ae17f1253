// Package identity はユーザーの表示名解決を提供する。
//
// 解決は決して失敗しない。内部エラーはログに記録したうえで次の候補へ
// フォールバックし、最終的には "anon" に到達する。
package identity

import (
	"context"
	"log/slog"

	"github.com/haruki/otoba/internal/model"
	"github.com/haruki/otoba/internal/repository"
)

// UserFinder はユーザー取得に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// LinkFinder は紐付け取得に必要なインターフェース。
type LinkFinder interface {
	FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.LinkedAccount, error)
}

// NameSanitizer は表示名のサニタイズインターフェース。
type NameSanitizer interface {
	Sanitize(name string) string
}

// Resolver は表示名解決のサービス層。
type Resolver struct {
	users     UserFinder
	links     LinkFinder
	sanitizer NameSanitizer
}

// NewResolver はResolverを生成する。
func NewResolver(users UserFinder, links LinkFinder, sanitizer NameSanitizer) *Resolver {
	return &Resolver{
		users:     users,
		links:     links,
		sanitizer: sanitizer,
	}
}

// PreferredDisplayName はユーザーの望ましい表示名を解決する。
// 優先順位: プロバイダーハンドル > User.DisplayName > "anon"。
// アカウント紐付けの外から見える効果はephemeralフラグとこの優先順位だけなので、
// この順序は厳密に守る。
func (r *Resolver) PreferredDisplayName(ctx context.Context, userID string) string {
	account, err := r.links.FindByUserAndProvider(ctx, userID, model.ProviderDiscord)
	if err != nil {
		slog.Error("failed to fetch linked account for display name",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		account = nil
	}

	if account != nil {
		if handle := r.sanitizer.Sanitize(formatHandle(account.Meta)); handle != "" {
			return handle
		}
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		slog.Error("failed to fetch user for display name",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return model.FallbackDisplayName
	}
	if user == nil || user.DisplayName == "" {
		return model.FallbackDisplayName
	}

	return user.DisplayName
}

// compile-time interface checks
var _ UserFinder = (repository.UserRepository)(nil)
var _ LinkFinder = (repository.LinkedAccountRepository)(nil)
