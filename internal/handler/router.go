package handler

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cricketstats/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// TrustedProxies は転送ヘッダーを信用する接続元。空なら常にRemoteAddrを使う。
	TrustedProxies []netip.Prefix

	// ミドルウェア依存
	Identity    middleware.UserResolver
	Gate        *middleware.AccessGate
	RateLimiter *middleware.RateLimiter
	CSRF        middleware.CSRFConfig
	Metrics     middleware.StatusMetrics

	// 認証
	AuthService AuthServiceInterface
	States      StateService
	AuthConfig  AuthHandlerConfig

	// 選手
	PlayerService PlayerServiceInterface

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	Renderer *Renderer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → TrustedRealIP → SecurityHeaders → Identity → Logging → Metrics → CSRF
//
// /health と /metrics はIdentity以降のチェーンの外に配置する。
// 書き込み系のルートは AccessGate → RateLimit(Write) を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	render := deps.Renderer
	if render == nil {
		render = MustNewRenderer()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.States, deps.AuthConfig)
	pageHandler := NewPageHandler(deps.PlayerService, deps.AuthService.Providers, deps.HealthChecker, render)
	playerHandler := NewPlayerHandler(deps.PlayerService, render)

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(http.HandlerFunc(render.InternalError)))
	r.Use(middleware.NewTrustedRealIPMiddleware(deps.TrustedProxies))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	// --- 運用エンドポイント ---
	r.Get("/health", pageHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Handle("/static/*", staticHandler())
	r.Get("/images/default-player.jpg", defaultPlayerImage)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware(deps.Identity))
		r.Use(middleware.NewLoggingMiddleware(logger))
		if deps.Metrics != nil {
			r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
		}
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.NotFound(render.NotFound)

		// --- 認証ルート（IP単位のレート制限） ---
		r.Route("/auth", func(r chi.Router) {
			r.Use(deps.RateLimiter.LoginMiddleware())

			r.Get("/me", authHandler.Me)
			r.Get("/logout", authHandler.Logout)
			r.Post("/logout", authHandler.Logout)
			r.Get("/{provider}", authHandler.Login)
			r.Get("/{provider}/callback", authHandler.Callback)
		})

		// --- 閲覧ルート（ログイン不要） ---
		r.Get("/", pageHandler.Home)
		r.Get("/login", pageHandler.Login)
		r.Get("/players", playerHandler.List)
		r.Get("/players/{id}", playerHandler.Show)

		// --- 書き込みルート（AccessGateの後ろ） ---
		r.Group(func(r chi.Router) {
			r.Use(deps.Gate.Middleware())

			r.Get("/players/new", playerHandler.New)
			r.Get("/players/{id}/edit", playerHandler.Edit)

			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.WriteMiddleware())

				r.Post("/players", playerHandler.Create)
				r.Post("/players/{id}", playerHandler.Update)
				r.Put("/players/{id}", playerHandler.Update)

				admin := middleware.NewRequireAdminMiddleware(http.HandlerFunc(playerHandler.Forbidden))
				r.With(admin).Post("/players/{id}/delete", playerHandler.Delete)
				r.With(admin).Delete("/players/{id}", playerHandler.Delete)
			})
		})
	})

	return r
}
