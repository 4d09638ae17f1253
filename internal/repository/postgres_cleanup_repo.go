package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresCleanupRepo はマイグレーションで定義されたSQL集約関数を呼び出す
// クリーンアップリポジトリ。回収処理の述語と件数計上はDB側に寄せ、
// Goからは1往復の関数呼び出しだけを行う。
type PostgresCleanupRepo struct {
	db *sql.DB
}

// NewPostgresCleanupRepo はPostgresCleanupRepoを生成する。
func NewPostgresCleanupRepo(db *sql.DB) *PostgresCleanupRepo {
	return &PostgresCleanupRepo{db: db}
}

// CleanupExpiredPresence は失効プレゼンス行を削除し、削除件数を返す。
func (r *PostgresCleanupRepo) CleanupExpiredPresence(ctx context.Context, ttl time.Duration) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT cleanup_expired_presence($1::interval)`,
		intervalString(ttl),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired presence: %w", err)
	}
	return count, nil
}

// CleanupEphemeralUsers は放棄された匿名ユーザーを削除または匿名化し、件数を返す。
func (r *PostgresCleanupRepo) CleanupEphemeralUsers(ctx context.Context, ttl time.Duration) (int64, int64, error) {
	var deleted, anonymized int64
	err := r.db.QueryRowContext(ctx,
		`SELECT deleted_count, anonymized_count FROM cleanup_ephemeral_users($1::interval)`,
		intervalString(ttl),
	).Scan(&deleted, &anonymized)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to cleanup ephemeral users: %w", err)
	}
	return deleted, anonymized, nil
}

// intervalString はtime.DurationをPostgreSQLのinterval文字列に変換する。
func intervalString(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}

// compile-time interface check
var _ CleanupRepository = (*PostgresCleanupRepo)(nil)
