// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/haruki/otoba/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithSession はユーザー・セッション・初期プレゼンス行を
	// 同一トランザクションで作成する。匿名IDの新規発行で使用する。
	CreateWithSession(ctx context.Context, user *model.User, session *model.Session) error

	// SetEphemeral はユーザーのephemeralフラグを更新する。
	// ユーザーが存在しない場合はエラーを返す。
	SetEphemeral(ctx context.Context, userID string, ephemeral bool) error

	// UpdateDisplayName はユーザーの表示名を更新する。
	UpdateDisplayName(ctx context.Context, userID, displayName string) error

	// TouchLastSeen はユーザーのlast_seen_atを指定時刻に更新する。
	// ハートビートの副次書き込みとして使われ、呼び出し側で失敗を握りつぶしてよい。
	TouchLastSeen(ctx context.Context, userID string, at time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// FindByIDWithUser はセッションと所有ユーザーを1往復で取得する。
	// セッションまたはユーザーが存在しない場合は(nil, nil, nil)を返す。
	FindByIDWithUser(ctx context.Context, id string) (*model.Session, *model.User, error)
}

// LinkedAccountRepository は外部プロバイダー紐付けの永続化インターフェース。
type LinkedAccountRepository interface {
	// Link は(user_id, provider)をキーに紐付けをUPSERTし、
	// 同一ステートメント内でユーザーのephemeralフラグを下ろす。
	// metaはlast write winsで上書きされる。冪等。
	Link(ctx context.Context, account *model.LinkedAccount) error

	// Delete は(user_id, provider)の紐付け行を削除する。行が無くてもエラーにしない。
	Delete(ctx context.Context, userID, provider string) error

	// CountByUserID はユーザーの紐付け数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// FindByUserAndProvider は(user_id, provider)で紐付けを検索する。
	// 見つからない場合はnilを返す。
	FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.LinkedAccount, error)
}

// PresenceRepository はプレゼンスデータの永続化インターフェース。
type PresenceRepository interface {
	// Touch はプレゼンス行のlast_seen_atを指定時刻に更新し、所有ユーザーIDを返す。
	// 行が存在しない場合（回収済み等）は空文字列を返す。
	Touch(ctx context.Context, sessionID string, at time.Time) (string, error)
}

// CleanupRepository は回収ワーカーが使う集約クリーンアップ操作のインターフェース。
// 実体はマイグレーションで定義されるSQL関数。
type CleanupRepository interface {
	// CleanupExpiredPresence は失効プレゼンス行を削除し、削除件数を返す。
	// 件数は削除前読み取りに基づく観測用の値で、並行ハートビートと競合し得る。
	CleanupExpiredPresence(ctx context.Context, ttl time.Duration) (int64, error)

	// CleanupEphemeralUsers は放棄された匿名ユーザーを削除または匿名化し、
	// それぞれの件数を返す。
	CleanupEphemeralUsers(ctx context.Context, ttl time.Duration) (deleted, anonymized int64, err error)
}
