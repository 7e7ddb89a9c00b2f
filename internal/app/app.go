package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cricketstats/internal/auth"
	"github.com/hitoshi/cricketstats/internal/config"
	"github.com/hitoshi/cricketstats/internal/database"
	"github.com/hitoshi/cricketstats/internal/handler"
	"github.com/hitoshi/cricketstats/internal/logger"
	"github.com/hitoshi/cricketstats/internal/metrics"
	"github.com/hitoshi/cricketstats/internal/middleware"
	"github.com/hitoshi/cricketstats/internal/model"
	"github.com/hitoshi/cricketstats/internal/player"
	"github.com/hitoshi/cricketstats/internal/repository"
	"github.com/hitoshi/cricketstats/internal/security"
	"github.com/hitoshi/cricketstats/internal/user"
	"github.com/hitoshi/cricketstats/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	if cfg.LogLevel != slog.LevelInfo {
		logger.SetupDefault(w, cfg.LogLevel)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.Port),
		slog.String("base_url", cfg.BaseURL),
		slog.Int("providers", len(cfg.Providers)),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandPromote:
		return runSetRole(cfg, args[1:], model.RoleAdmin)
	case CommandDemote:
		return runSetRole(cfg, args[1:], model.RoleUser)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// server はHTTPサーバーと、停止時に解放する依存関係をまとめたもの。
type server struct {
	http        *http.Server
	rateLimiter *middleware.RateLimiter
}

// buildServer は全依存関係をワイヤリングしたHTTPサーバーを構築する。
func buildServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*server, error) {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	playerRepo := repository.NewPostgresPlayerRepo(db)

	// 2. メトリクス
	collector := metrics.NewCollector(reg)

	// 3. 認証サービスの初期化
	providers, err := auth.NewRegistryFromConfig(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to configure login providers: %w", err)
	}
	sessions := auth.NewSessionCodec(sessionRepo, userRepo, cfg.SessionTTL())
	resolver := auth.NewResolver(userRepo, collector)
	authService := auth.NewService(providers, resolver, sessions, collector)

	// 4. 選手サービスの初期化
	playerService := player.NewService(playerRepo, security.NewTextSanitizer())

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitLogin, cfg.RateLimitWrite),
	)

	deps := &handler.RouterDeps{
		Logger:         slog.Default(),
		TrustedProxies: cfg.TrustedProxies,
		Identity:       authService,
		Gate: middleware.NewAccessGate(authService, middleware.GateConfig{
			LandingPath:  "/",
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		}, collector),
		RateLimiter: rateLimiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Metrics: collector,

		AuthService: authService,
		States:      auth.NewStateSigner(cfg.SessionSecret),
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PlayerService: playerService,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),
	}

	return &server{
		http: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      handler.NewRouter(deps),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		rateLimiter: rateLimiter,
	}, nil
}

// runServe はHTTPサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	srv, err := buildServer(cfg, db, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer srv.rateLimiter.Stop()

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", srv.http.Addr),
		)
		if err := srv.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップを一定間隔で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if metricsSrv := newWorkerMetricsServer(cfg.WorkerMetricsPort, reg); metricsSrv != nil {
		go func() {
			slog.Info("worker metrics server starting",
				slog.String("addr", metricsSrv.Addr),
			)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("worker metrics server failed",
					slog.String("error", err.Error()),
				)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// newWorkerMetricsServer はworkerのメトリクスを/metricsで公開するHTTPサーバーを返す。
// portが空ならnilを返す。
func newWorkerMetricsServer(port string, reg *prometheus.Registry) *http.Server {
	if port == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(reg))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSetRole は引数で指定したユーザーの権限を変更する。
//
//	cricketstats promote <user-id>
//	cricketstats demote <user-id>
func runSetRole(cfg *config.Config, args []string, role model.Role) error {
	if len(args) == 0 || args[0] == "" {
		return fmt.Errorf("user id is required")
	}

	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := user.NewService(repository.NewPostgresUserRepo(db)).SetRole(ctx, args[0], role)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}

	slog.Info("user role updated",
		slog.String("user_id", u.ID),
		slog.String("provider", string(u.Provider)),
		slog.String("role", string(u.Role)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
