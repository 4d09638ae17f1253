package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/haruki/otoba/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// FindByIDWithUser はセッションと所有ユーザーをJOINで1往復で取得する。
// セッションが存在しない場合は(nil, nil, nil)を返す。
// セッションは必ず既存ユーザーを指す不変条件があるため、JOINの欠落はセッション不在と同義。
func (r *PostgresSessionRepo) FindByIDWithUser(ctx context.Context, id string) (*model.Session, *model.User, error) {
	session := &model.Session{}
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, s.created_at,
		        u.id, u.display_name, u.ephemeral, u.kind, u.banned, u.created_at, u.last_seen_at
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.id = $1`,
		id,
	).Scan(
		&session.ID, &session.UserID, &session.CreatedAt,
		&user.ID, &user.DisplayName, &user.Ephemeral, &user.Kind, &user.Banned, &user.CreatedAt, &user.LastSeenAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find session with user: %w", err)
	}

	return session, user, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
