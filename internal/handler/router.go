package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haruki/otoba/internal/metrics"
	"github.com/haruki/otoba/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionEnsurer    middleware.SessionEnsurer
	SessionCookie     middleware.SessionCookieConfig
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// 認証・紐付け
	AuthService AuthServiceInterface
	LinkService LinkServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール
	UserService UserServiceInterface
	Resolver    DisplayNameResolver

	// プレゼンス
	HeartbeatService HeartbeatServiceInterface

	// メトリクス公開
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Session
//
// セッションミドルウェアはfail-openのため、/healthと/metrics以外の
// すべてのルートが何らかの識別子を持って通過する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	sessionHandler := NewSessionHandler(deps.UserService, deps.Resolver)
	meHandler := NewMeHandler(deps.UserService, deps.Resolver)
	heartbeatHandler := NewHeartbeatHandler(deps.HeartbeatService)
	authHandler := NewAuthHandler(deps.AuthService, deps.LinkService, deps.AuthConfig)

	// --- セッション解決の外に置くルート ---

	r.Get("/health", handleHealth)
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- セッション解決を通るルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionEnsurer, deps.SessionCookie))

		r.Route("/api", func(r chi.Router) {
			r.Post("/session", sessionHandler.Ensure)
			r.Get("/me", meHandler.Get)
			r.Patch("/me/name", meHandler.UpdateName)
			r.Post("/heartbeat", heartbeatHandler.Beat)
		})

		r.Route("/auth/discord", func(r chi.Router) {
			r.Get("/login", authHandler.Login)
			r.Get("/callback", authHandler.Callback)
			r.Delete("/", authHandler.Unlink)
		})
	})

	return r
}

// handleHealth はヘルスチェックエンドポイント。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
