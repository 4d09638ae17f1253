package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresPresenceRepo はPostgreSQLを使用したプレゼンスリポジトリ。
type PostgresPresenceRepo struct {
	db *sql.DB
}

// NewPostgresPresenceRepo はPostgresPresenceRepoを生成する。
func NewPostgresPresenceRepo(db *sql.DB) *PostgresPresenceRepo {
	return &PostgresPresenceRepo{db: db}
}

// Touch はプレゼンス行のlast_seen_atを更新し、所有ユーザーIDを返す。
// 行が存在しない場合（回収ワーカーによる並行削除など）は空文字列を返す。
func (r *PostgresPresenceRepo) Touch(ctx context.Context, sessionID string, at time.Time) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`UPDATE presence SET last_seen_at = $2 WHERE session_id = $1 RETURNING user_id`,
		sessionID, at,
	).Scan(&userID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to touch presence: %w", err)
	}

	return userID, nil
}

// compile-time interface check
var _ PresenceRepository = (*PostgresPresenceRepo)(nil)
