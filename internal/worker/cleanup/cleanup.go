// Package cleanup は失効データの回収ジョブを提供する。
// 失効したプレゼンス行の削除と、放棄された匿名ユーザーの削除・匿名化を
// 定期バッチで実行する。各フェーズは時点述語に基づく冪等な処理であり、
// 多重実行や並行実行をロックではなく冪等性で安全にしている。
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/haruki/otoba/internal/repository"
)

// Report は1回の回収実行の結果を表す。
// フェーズが失敗した場合でも、成功したフェーズの件数はそのまま反映される。
type Report struct {
	PresenceDeleted int64
	UsersDeleted    int64
	UsersAnonymized int64
	DurationMS      int64
}

// Store は回収ジョブが使う集約クリーンアップ操作のインターフェース。
// repository.CleanupRepositoryの部分集合として定義する。
type Store interface {
	CleanupExpiredPresence(ctx context.Context, ttl time.Duration) (int64, error)
	CleanupEphemeralUsers(ctx context.Context, ttl time.Duration) (deleted, anonymized int64, err error)
}

// MetricsCollector は回収ジョブのメトリクス収集インターフェース。
type MetricsCollector interface {
	RecordCleanup(presenceDeleted, usersDeleted, usersAnonymized int64, duration time.Duration)
}

// Job は失効データの回収ジョブ。
type Job struct {
	store   Store
	logger  *slog.Logger
	metrics MetricsCollector

	PresenceTTL      time.Duration // プレゼンス行の失効時間（デフォルト: 5分）
	EphemeralUserTTL time.Duration // 匿名ユーザーの放棄判定時間（デフォルト: 24時間）
}

// NewJob は新しいJobを生成する。
func NewJob(store Store, logger *slog.Logger, metrics MetricsCollector) *Job {
	return &Job{
		store:            store,
		logger:           logger,
		metrics:          metrics,
		PresenceTTL:      5 * time.Minute,
		EphemeralUserTTL: 24 * time.Hour,
	}
}

// Run は2つの独立したフェーズを順に実行し、結果をReportとして返す。
//  1. プレゼンス失効: last_seen_atがPresenceTTLより古い行を削除
//  2. 匿名ユーザー失効: 放棄された匿名ユーザーを削除または匿名化
//
// 一方のフェーズの失敗はもう一方を中断しない。失敗はログに記録され、
// 呼び出し側には例外ではなく達成できた件数がそのまま返る。
// 冪等: 連続実行の2回目は回収対象が無く、全件数0のReportになる。
func (j *Job) Run(ctx context.Context) *Report {
	start := time.Now()
	report := &Report{}

	presenceDeleted, err := j.store.CleanupExpiredPresence(ctx, j.PresenceTTL)
	if err != nil {
		j.logger.Error("presence expiry phase failed",
			slog.String("error", err.Error()),
			slog.Duration("presence_ttl", j.PresenceTTL),
		)
	} else {
		report.PresenceDeleted = presenceDeleted
	}

	usersDeleted, usersAnonymized, err := j.store.CleanupEphemeralUsers(ctx, j.EphemeralUserTTL)
	if err != nil {
		j.logger.Error("ephemeral user expiry phase failed",
			slog.String("error", err.Error()),
			slog.Duration("ephemeral_user_ttl", j.EphemeralUserTTL),
		)
	} else {
		report.UsersDeleted = usersDeleted
		report.UsersAnonymized = usersAnonymized
	}

	duration := time.Since(start)
	report.DurationMS = duration.Milliseconds()

	j.metrics.RecordCleanup(report.PresenceDeleted, report.UsersDeleted, report.UsersAnonymized, duration)
	j.logger.Info("cleanup completed",
		slog.Int64("presence_deleted", report.PresenceDeleted),
		slog.Int64("users_deleted", report.UsersDeleted),
		slog.Int64("users_anonymized", report.UsersAnonymized),
		slog.Int64("duration_ms", report.DurationMS),
	)

	return report
}

// compile-time interface check
var _ Store = (repository.CleanupRepository)(nil)
