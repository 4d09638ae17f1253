// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/haruki/otoba/internal/middleware"
	"github.com/haruki/otoba/internal/model"
)

// userResponse はユーザープロフィールのJSONレスポンス。
// display_nameは保存値ではなく導出済みの表示名を返す。
type userResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Ephemeral   bool      `json:"ephemeral"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// sessionResponse はセッション解決のJSONレスポンス。
type sessionResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Ephemeral   bool   `json:"ephemeral"`
}

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, userID, name string) (*model.User, error)
}

// DisplayNameResolver は表示名の導出インターフェース。
type DisplayNameResolver interface {
	PreferredDisplayName(ctx context.Context, userID string) string
}

// SessionHandler はセッション解決のHTTPハンドラー。
// セッションの発行自体はミドルウェアで済んでいるため、
// ここでは解決済みのIDをプロフィールとして返すだけになる。
type SessionHandler struct {
	users    UserServiceInterface
	resolver DisplayNameResolver
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(users UserServiceInterface, resolver DisplayNameResolver) *SessionHandler {
	return &SessionHandler{
		users:    users,
		resolver: resolver,
	}
}

// Ensure はセッションを解決し、現在の識別子を返す。
// POST /api/session
// 有効なトークンを持たないクライアントにはミドルウェアが新しい匿名IDを
// 発行済みなので、このエンドポイントは常に何らかの識別子を返す。
func (h *SessionHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse{
		UserID:      user.ID,
		DisplayName: h.resolver.PreferredDisplayName(r.Context(), user.ID),
		Ephemeral:   user.Ephemeral,
	})
}

// toUserResponse はドメインのUserをレスポンス型に変換する。
func toUserResponse(user *model.User, displayName string) userResponse {
	return userResponse{
		ID:          user.ID,
		DisplayName: displayName,
		Ephemeral:   user.Ephemeral,
		Kind:        string(user.Kind),
		CreatedAt:   user.CreatedAt,
		LastSeenAt:  user.LastSeenAt,
	}
}
