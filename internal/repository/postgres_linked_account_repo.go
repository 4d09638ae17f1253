package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/haruki/otoba/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反エラーコード。
const uniqueViolation = "23505"

// PostgresLinkedAccountRepo はPostgreSQLを使用した紐付けリポジトリ。
type PostgresLinkedAccountRepo struct {
	db *sql.DB
}

// NewPostgresLinkedAccountRepo はPostgresLinkedAccountRepoを生成する。
func NewPostgresLinkedAccountRepo(db *sql.DB) *PostgresLinkedAccountRepo {
	return &PostgresLinkedAccountRepo{db: db}
}

// Link は紐付けをUPSERTし、同一ステートメントでユーザーのephemeralフラグを下ろす。
// (user_id, provider)が既に存在する場合はmetaをlast write winsで上書きする。
func (r *PostgresLinkedAccountRepo) Link(ctx context.Context, account *model.LinkedAccount) error {
	_, err := r.db.ExecContext(ctx,
		`WITH upserted AS (
		     INSERT INTO linked_accounts (user_id, provider, meta, created_at)
		     VALUES ($1, $2, $3, $4)
		     ON CONFLICT (user_id, provider) DO UPDATE SET meta = EXCLUDED.meta
		 )
		 UPDATE users SET ephemeral = FALSE WHERE id = $1`,
		account.UserID, account.Provider, []byte(account.Meta), account.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return model.NewLinkConflictError(account.Provider)
		}
		return fmt.Errorf("failed to link account: %w", err)
	}
	return nil
}

// Delete は(user_id, provider)の紐付け行を削除する。行が無くてもエラーにしない（冪等）。
func (r *PostgresLinkedAccountRepo) Delete(ctx context.Context, userID, provider string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM linked_accounts WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to delete linked account: %w", err)
	}
	return nil
}

// CountByUserID はユーザーの紐付け数を返す。
func (r *PostgresLinkedAccountRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM linked_accounts WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count linked accounts: %w", err)
	}
	return count, nil
}

// FindByUserAndProvider は(user_id, provider)で紐付けを検索する。見つからない場合はnilを返す。
func (r *PostgresLinkedAccountRepo) FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.LinkedAccount, error) {
	account := &model.LinkedAccount{}
	var meta []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, provider, meta, created_at
		 FROM linked_accounts
		 WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	).Scan(&account.UserID, &account.Provider, &meta, &account.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find linked account: %w", err)
	}

	account.Meta = meta
	return account, nil
}

// compile-time interface check
var _ LinkedAccountRepository = (*PostgresLinkedAccountRepo)(nil)
