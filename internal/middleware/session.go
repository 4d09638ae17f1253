// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/haruki/otoba/internal/session"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "otoba_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// sessionIDContextKey はリクエストコンテキストにセッションIDを格納するためのキー。
var sessionIDContextKey = contextKey("session_id")

// SessionCookieConfig はセッションCookieの属性設定。
type SessionCookieConfig struct {
	MaxAge int
	Secure bool
	Domain string
}

// SessionEnsurer はセッション解決のインターフェース。
// session.Managerの部分集合として定義する。
type SessionEnsurer interface {
	EnsureSession(ctx context.Context, token string) (*session.Result, error)
}

// NewSessionMiddleware はCookieのトークンを解決し、解決できない場合は
// 新しい匿名IDを発行するミドルウェアを返す。fail-open方針のため
// 401を返すことはなく、すべてのリクエストが何らかのIDで通過する。
// 解決したユーザーIDとセッションIDをリクエストコンテキストに注入し、
// 新規発行時はHttpOnlyのセッションCookieをレスポンスに設定する。
func NewSessionMiddleware(ensurer SessionEnsurer, config SessionCookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}

			result, err := ensurer.EnsureSession(r.Context(), token)
			if err != nil {
				// 新規発行まで失敗した場合のみエラーになる
				WriteInternalServerError(w)
				return
			}

			if result.ShouldSetCookie {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    result.SessionID,
					Path:     "/",
					Domain:   config.Domain,
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, result.UserID)
			ctx = context.WithValue(ctx, sessionIDContextKey, result.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
func SessionIDFromContext(ctx context.Context) (string, error) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return sessionID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithSessionID はコンテキストにセッションIDを注入する。
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}
