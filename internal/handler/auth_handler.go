package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/haruki/otoba/internal/auth"
	"github.com/haruki/otoba/internal/linking"
	"github.com/haruki/otoba/internal/middleware"
	"github.com/haruki/otoba/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, userID, code string) (*auth.DiscordProfile, error)
}

// LinkServiceInterface はアカウント紐付け解除のインターフェース。
type LinkServiceInterface interface {
	UnlinkAccount(ctx context.Context, userID, provider string) (*linking.UnlinkResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はDiscord OAuth認証と紐付け解除のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	linker  LinkServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, linker LinkServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		linker:  linker,
		config:  config,
	}
}

// Login はDiscord OAuthフローを開始する。
// GET /auth/discord/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、Discordアカウントを現在のユーザーに紐付ける。
// GET /auth/discord/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 紐付け先ユーザーはセッションミドルウェアが解決済み
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		slog.Error("oauth callback without resolved user", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// 4. プロフィール取得と紐付け
	if _, err := h.service.HandleCallback(r.Context(), userID, code); err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// unlinkResponse は紐付け解除のJSONレスポンス。
type unlinkResponse struct {
	Ephemeral bool `json:"ephemeral"`
}

// Unlink はDiscordアカウントの紐付けを解除する。
// DELETE /auth/discord
// 解除後に再計算されたephemeralフラグを返す。
func (h *AuthHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.linker.UnlinkAccount(r.Context(), userID, model.ProviderDiscord)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(unlinkResponse{
		Ephemeral: result.Ephemeral,
	})
}
