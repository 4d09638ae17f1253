// Package session はセッション解決と匿名IDの新規発行を提供する。
//
// トークンが無い・形式不正・解決できない場合は即座に新しい匿名IDを発行する
// fail-open方針を契約として採用している。可用性をexactly-onceな発行より
// 優先するため、有効トークンを持たない並行リクエストがそれぞれ別のIDを
// 発行し得るが、この重複は無害であり許容する。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haruki/otoba/internal/model"
	"github.com/haruki/otoba/internal/repository"
)

// Result はセッション解決の結果を表す。
type Result struct {
	UserID    string
	SessionID string
	// ShouldSetCookie は新しいトークンをクライアントに配布すべきかを示す。
	// トークンの輸送方法（Cookie名や属性）はハンドラー層の関心事。
	ShouldSetCookie bool
}

// SessionFinder はセッション解決に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByIDWithUser(ctx context.Context, id string) (*model.Session, *model.User, error)
}

// UserCreator は匿名ID発行に必要なインターフェース。
type UserCreator interface {
	CreateWithSession(ctx context.Context, user *model.User, session *model.Session) error
}

// MetricsCollector はセッション解決のメトリクス収集インターフェース。
type MetricsCollector interface {
	RecordSessionMinted()
	RecordSessionResumed()
}

// Manager はセッション解決のサービス層。
type Manager struct {
	sessions SessionFinder
	users    UserCreator
	metrics  MetricsCollector
}

// NewManager はManagerを生成する。
func NewManager(sessions SessionFinder, users UserCreator, metrics MetricsCollector) *Manager {
	return &Manager{
		sessions: sessions,
		users:    users,
		metrics:  metrics,
	}
}

// EnsureSession は受信トークンを既存のユーザーに解決するか、新しい匿名IDを発行する。
//
// トークンが欠落・形式不正・未知、またはその先のユーザーがBAN済みや欠落の場合は
// すべて「解決できない」として扱い、リクエストを拒否せず新規発行する。
// 解決時の内部エラーも同様にフォールバックし、ログにのみ記録する。
// 固定の有効トークンに対しては冪等で、常に同じ{UserID, SessionID}を返す。
func (m *Manager) EnsureSession(ctx context.Context, token string) (*Result, error) {
	if validToken(token) {
		session, user, err := m.sessions.FindByIDWithUser(ctx, token)
		if err != nil {
			// fail-open: 解決の失敗は新規発行で吸収する
			slog.Error("failed to resolve session token, minting fresh identity",
				slog.String("error", err.Error()),
			)
		} else if session != nil && user != nil && !user.Banned {
			m.metrics.RecordSessionResumed()
			return &Result{
				UserID:          user.ID,
				SessionID:       session.ID,
				ShouldSetCookie: false,
			}, nil
		}
	}

	return m.mint(ctx)
}

// mint は匿名ユーザーと新しいセッションを発行する。
// ユーザー・セッション・初期プレゼンス行は単一トランザクションで作成される。
func (m *Manager) mint(ctx context.Context) (*Result, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:          uuid.New().String(),
		DisplayName: "",
		Ephemeral:   true,
		Kind:        model.UserKindHuman,
		Banned:      false,
		CreatedAt:   now,
		LastSeenAt:  now,
	}
	session := &model.Session{
		ID:        token,
		UserID:    user.ID,
		CreatedAt: now,
	}

	if err := m.users.CreateWithSession(ctx, user, session); err != nil {
		return nil, fmt.Errorf("failed to create ephemeral user: %w", err)
	}

	m.metrics.RecordSessionMinted()
	slog.Info("ephemeral identity minted",
		slog.String("user_id", user.ID),
	)

	return &Result{
		UserID:          user.ID,
		SessionID:       session.ID,
		ShouldSetCookie: true,
	}, nil
}

// compile-time interface checks
var _ SessionFinder = (repository.SessionRepository)(nil)
var _ UserCreator = (repository.UserRepository)(nil)
