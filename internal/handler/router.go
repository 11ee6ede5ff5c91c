package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/duniaauth/internal/metrics"
	"github.com/hitoshi/duniaauth/internal/middleware"
	"github.com/hitoshi/duniaauth/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	Metrics           metrics.MetricsCollector

	// 認証
	Transport     SessionTransport
	Authenticator middleware.IdentityAuthenticator
	AuthService   AuthServiceInterface

	// アカウント
	AccountService AccountServiceInterface

	// 運用
	HealthChecker  repository.HealthChecker
	MetricsHandler http.Handler // nilの場合 /metrics は公開しない
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Metrics → Recovery → SecurityHeaders → CORS
//
// /accounts/* のみ認証ガードの内側に配置する。/auth/me はガードと同じ検証を自前で行う。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Transport, deps.Authenticator)
	accountHandler := NewAccountHandler(deps.AccountService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Get("/me", authHandler.Me)
		r.Post("/signout", authHandler.SignOut)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Transport, deps.Authenticator))

		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/", accountHandler.GetAccount)
			r.Patch("/", accountHandler.UpdateAccount)
		})
	})

	return r
}
