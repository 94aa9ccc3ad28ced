package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/raideer/udacity-project-catalog/internal/metrics"
	"github.com/raideer/udacity-project-catalog/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DB を受け付けることができる。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	UserResolver      middleware.UserResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetrics

	// メトリクス公開（nilの場合は/metricsを公開しない）
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// カタログ
	CatalogService CatalogServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → (CSRF) → (RequireAuth → RateLimit)
//
// 閲覧系（/api/catalog…のGET）は未認証でも到達できる。
// 変更系はRequireAuthとレート制限を通過した場合のみ到達できる。
// 認証ルート（/auth/*）はCookieを直接扱うためセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPMetrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	catalogHandler := NewCatalogHandler(deps.CatalogService)
	itemHandler := NewItemHandler(deps.CatalogService)

	// --- 運用エンドポイント ---

	r.Get("/healthz", newHealthzHandler(deps.HealthChecker))

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証ルート（OAuthフロー） ---

	r.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/login", authHandler.Login)
		r.Get("/{provider}/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- カタログAPI ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.UserResolver))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// CSRFトークン取得
		r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// 閲覧系（認証不要）
		r.Get("/api/catalog", catalogHandler.Index)
		r.Get("/api/catalog.json", catalogHandler.Export)
		r.Get("/api/catalog/{category}", catalogHandler.GetCategory)
		r.Get("/api/catalog/{category}/{item}", itemHandler.GetItem)

		// 変更系（認証必須 + レート制限）
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth())
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(deps.RateLimiter.MutationMiddleware())

			r.Post("/api/catalog", catalogHandler.CreateCategory)
			r.Patch("/api/catalog/{category}", catalogHandler.UpdateCategory)
			r.Delete("/api/catalog/{category}", catalogHandler.DeleteCategory)

			r.Post("/api/catalog/{category}/items", itemHandler.CreateItem)
			r.Patch("/api/catalog/{category}/{item}", itemHandler.UpdateItem)
			r.Delete("/api/catalog/{category}/{item}", itemHandler.DeleteItem)
		})
	})

	return r
}

// newHealthzHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthzHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}
