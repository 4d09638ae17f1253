// Package auth はDiscord OAuth認証フローとアカウント紐付けの起点を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/haruki/otoba/internal/model"
)

// DiscordProfile はDiscordのユーザー情報エンドポイントのレスポンス。
// そのままlinked_accountsのmetaとして保存され、表示名導出の入力になる。
type DiscordProfile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
	Avatar        string `json:"avatar"`
	Email         string `json:"email"`
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*DiscordProfile, error)
}

// AccountLinker はアカウント紐付けのインターフェース。
type AccountLinker interface {
	LinkAccount(ctx context.Context, userID, provider string, meta json.RawMessage) error
}

// Service はOAuth認証フローのビジネスロジックを提供する。
// コールバックで取得したプロフィールを現在のユーザーに紐付ける。
// 紐付けの成立と同時にユーザーはephemeralでなくなる。
type Service struct {
	oauth  OAuthProvider
	linker AccountLinker
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, linker AccountLinker) *Service {
	return &Service{
		oauth:  oauth,
		linker: linker,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// GenerateState はCSRF防止用のstateパラメータを生成する。
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HandleCallback はOAuthコールバックを処理し、取得したDiscordプロフィールを
// 現在のユーザーに紐付ける。既に紐付けがある場合はmetaが上書きされる（冪等）。
func (s *Service) HandleCallback(ctx context.Context, userID, code string) (*DiscordProfile, error) {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	meta, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal discord profile: %w", err)
	}

	if err := s.linker.LinkAccount(ctx, userID, model.ProviderDiscord, meta); err != nil {
		return nil, fmt.Errorf("failed to link discord account: %w", err)
	}

	slog.Info("discord account linked via oauth",
		slog.String("user_id", userID),
		slog.String("discord_user_id", profile.ID),
	)

	return profile, nil
}
