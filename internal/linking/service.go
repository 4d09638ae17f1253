// Package linking は外部プロバイダーとのアカウント紐付けを提供する。
package linking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/haruki/otoba/internal/model"
	"github.com/haruki/otoba/internal/repository"
)

// UnlinkResult は紐付け解除の結果を表す。
type UnlinkResult struct {
	// Ephemeral は解除後に再計算されたephemeralフラグの値。
	Ephemeral bool
}

// LinkStore は紐付けサービスが必要とするリポジトリインターフェース。
// repository.LinkedAccountRepositoryの部分集合として定義する。
type LinkStore interface {
	Link(ctx context.Context, account *model.LinkedAccount) error
	Delete(ctx context.Context, userID, provider string) error
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// EphemeralFlagSetter はephemeralフラグ更新のインターフェース。
type EphemeralFlagSetter interface {
	SetEphemeral(ctx context.Context, userID string, ephemeral bool) error
}

// Service はアカウント紐付けのサービス層。
// ephemeralフラグは「紐付けが0件かどうか」から導出されるキャッシュであり、
// ここが唯一の更新経路になる。
type Service struct {
	links LinkStore
	users EphemeralFlagSetter
}

// NewService はServiceを生成する。
func NewService(links LinkStore, users EphemeralFlagSetter) *Service {
	return &Service{
		links: links,
		users: users,
	}
}

// LinkAccount はプロバイダー紐付けをUPSERTする。
// (userID, provider)が既に存在する場合はmetaをlast write winsで上書きする。冪等。
// 紐付けの成立と同時にユーザーのephemeralフラグは下ろされる。
func (s *Service) LinkAccount(ctx context.Context, userID, provider string, meta json.RawMessage) error {
	account := &model.LinkedAccount{
		UserID:    userID,
		Provider:  provider,
		Meta:      meta,
		CreatedAt: time.Now(),
	}

	if err := s.links.Link(ctx, account); err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}

	slog.Info("account linked",
		slog.String("user_id", userID),
		slog.String("provider", provider),
	)
	return nil
}

// UnlinkAccount はプロバイダー紐付けを解除し、ephemeralフラグを再計算する。
// 3段階（削除→残数カウント→フラグ更新）は単一トランザクションに包まない。
// 削除成功後に後続が失敗した場合、紐付け済みユーザーが誤ってephemeralに
// 見える可能性があるが、これは安全な方向の不整合であり、フラグは再導出可能な
// キャッシュなので呼び出し側の再実行で回復する。失敗は必ずエラーとして返す。
func (s *Service) UnlinkAccount(ctx context.Context, userID, provider string) (*UnlinkResult, error) {
	// 1. 紐付け行の削除（行が無くてもエラーにしない: 冪等）
	if err := s.links.Delete(ctx, userID, provider); err != nil {
		return nil, fmt.Errorf("failed to delete linked account: %w", err)
	}

	// 2. 残りの紐付け数を数える
	remaining, err := s.links.CountByUserID(ctx, userID)
	if err != nil {
		slog.Error("failed to count remaining links after unlink",
			slog.String("user_id", userID),
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return nil, model.NewEphemeralFlagStaleError(userID)
	}

	// 3. ephemeral = (残数 == 0) を書き戻す
	ephemeral := remaining == 0
	if err := s.users.SetEphemeral(ctx, userID, ephemeral); err != nil {
		slog.Error("failed to recompute ephemeral flag after unlink",
			slog.String("user_id", userID),
			slog.String("provider", provider),
			slog.Bool("ephemeral", ephemeral),
			slog.String("error", err.Error()),
		)
		return nil, model.NewEphemeralFlagStaleError(userID)
	}

	slog.Info("account unlinked",
		slog.String("user_id", userID),
		slog.String("provider", provider),
		slog.Int("remaining_links", remaining),
		slog.Bool("ephemeral", ephemeral),
	)

	return &UnlinkResult{Ephemeral: ephemeral}, nil
}

// compile-time interface checks
var _ LinkStore = (repository.LinkedAccountRepository)(nil)
var _ EphemeralFlagSetter = (repository.UserRepository)(nil)
