// Package presence はセッション単位のハートビート記録を提供する。
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haruki/otoba/internal/model"
	"github.com/haruki/otoba/internal/repository"
)

// HeartbeatResult はハートビート記録の結果を表す。
type HeartbeatResult struct {
	OK        bool
	Throttled bool
}

// PresenceToucher はプレゼンス更新に必要なインターフェース。
// repository.PresenceRepositoryの部分集合として定義する。
type PresenceToucher interface {
	Touch(ctx context.Context, sessionID string, at time.Time) (string, error)
}

// UserToucher はユーザーのlast_seen_at更新インターフェース。
type UserToucher interface {
	TouchLastSeen(ctx context.Context, userID string, at time.Time) error
}

// MetricsCollector はハートビートのメトリクス収集インターフェース。
type MetricsCollector interface {
	RecordHeartbeat(result string)
}

// Tracker はハートビート記録のサービス層。
type Tracker struct {
	presence PresenceToucher
	users    UserToucher
	throttle Throttle
	metrics  MetricsCollector
}

// NewTracker はTrackerを生成する。
func NewTracker(presence PresenceToucher, users UserToucher, throttle Throttle, metrics MetricsCollector) *Tracker {
	return &Tracker{
		presence: presence,
		users:    users,
		throttle: throttle,
		metrics:  metrics,
	}
}

// RecordHeartbeat はセッションのハートビートを記録する。
//
// スロットル窓内の呼び出しは {OK:true, Throttled:true} を返し、ストレージへの
// 書き込みを一切行わない。窓を超えた呼び出しはプレゼンス行のlast_seen_atを
// 更新し、続けて所有ユーザーのlast_seen_atをベストエフォートで更新する。
// 後者の失敗はログに記録して握りつぶす（ハートビートの主目的である
// プレゼンス更新は既に成功している）。
// プレゼンス行が存在しない場合（回収済みセッション等）はNotFoundを返す。
func (t *Tracker) RecordHeartbeat(ctx context.Context, sessionID string) (*HeartbeatResult, error) {
	if !t.throttle.Allow(sessionID) {
		t.metrics.RecordHeartbeat("throttled")
		return &HeartbeatResult{OK: true, Throttled: true}, nil
	}

	now := time.Now()

	userID, err := t.presence.Touch(ctx, sessionID, now)
	if err != nil {
		t.metrics.RecordHeartbeat("error")
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}
	if userID == "" {
		t.metrics.RecordHeartbeat("not_found")
		return nil, model.NewPresenceNotFoundError(sessionID)
	}

	// 副次書き込み: 失敗してもハートビート自体は成功扱い
	if err := t.users.TouchLastSeen(ctx, userID, now); err != nil {
		slog.Warn("failed to touch user last_seen_at",
			slog.String("user_id", userID),
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	t.metrics.RecordHeartbeat("ok")
	return &HeartbeatResult{OK: true, Throttled: false}, nil
}

// compile-time interface checks
var _ PresenceToucher = (repository.PresenceRepository)(nil)
var _ UserToucher = (repository.UserRepository)(nil)
