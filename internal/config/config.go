// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ProviderConfig は有効化されたログインプロバイダーの設定。
// 起動時に1回だけ解決し、実行中に追加・削除はしない。
type ProviderConfig struct {
	Name         string // "google", "github", "demo"
	ClientID     string
	ClientSecret string
	RedirectURL  string // {BASE_URL}/auth/{name}/callback
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	BaseURL string
	Port    string

	// WorkerMetricsPort はworkerモードで/metricsを公開するポート。空なら公開しない。
	WorkerMetricsPort string

	// Session
	SessionSecret          string
	SessionMaxAge          int // 秒
	SessionCleanupInterval time.Duration

	// Rate Limit（req/min）
	RateLimitLogin int
	RateLimitWrite int

	// Cookie
	CookieSecure bool
	CookieDomain string

	// Logging
	LogLevel slog.Level

	// TrustedProxies は転送ヘッダー（X-Forwarded-For等）を信用するプロキシのアドレス範囲。
	TrustedProxies []netip.Prefix

	// Providers は有効なログインプロバイダーの一覧。表示順に並ぶ。
	Providers []ProviderConfig
}

// rawEnv は環境変数の生の値を保持する。
type rawEnv struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	BaseURL     string `env:"BASE_URL,required,notEmpty"`
	Port        string `env:"PORT" envDefault:"3000"`

	WorkerMetricsPort string `env:"WORKER_METRICS_PORT" envDefault:"9091"`

	SessionSecret          string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionMaxAge          int           `env:"SESSION_MAX_AGE" envDefault:"86400"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	DemoLoginEnabled   bool   `env:"DEMO_LOGIN_ENABLED" envDefault:"false"`

	RateLimitLogin int `env:"RATE_LIMIT_LOGIN" envDefault:"20"`
	RateLimitWrite int `env:"RATE_LIMIT_WRITE" envDefault:"60"`

	CookieDomain string `env:"COOKIE_DOMAIN"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定、またはログインプロバイダーが1つも有効でない場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	raw, err := env.ParseAs[rawEnv]()
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	trustedProxies, err := parseTrustedProxies(raw.TrustedProxies)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(raw.BaseURL, "/")
	cfg := &Config{
		DatabaseURL:            raw.DatabaseURL,
		BaseURL:                baseURL,
		Port:                   raw.Port,
		WorkerMetricsPort:      raw.WorkerMetricsPort,
		SessionSecret:          raw.SessionSecret,
		SessionMaxAge:          raw.SessionMaxAge,
		SessionCleanupInterval: raw.SessionCleanupInterval,
		RateLimitLogin:         raw.RateLimitLogin,
		RateLimitWrite:         raw.RateLimitWrite,
		CookieSecure:           strings.HasPrefix(baseURL, "https://"),
		CookieDomain:           raw.CookieDomain,
		LogLevel:               raw.LogLevel,
		TrustedProxies:         trustedProxies,
		Providers:              resolveProviders(raw, baseURL),
	}

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no login provider configured: set GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET, GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET or DEMO_LOGIN_ENABLED")
	}

	return cfg, nil
}

// validate は期間とレート制限の値が正であることを確認する。
func validate(raw rawEnv) error {
	if raw.SessionMaxAge <= 0 {
		return fmt.Errorf("invalid SESSION_MAX_AGE: must be a positive number of seconds, got %d", raw.SessionMaxAge)
	}
	if raw.SessionCleanupInterval <= 0 {
		return fmt.Errorf("invalid SESSION_CLEANUP_INTERVAL: must be a positive duration, got %s", raw.SessionCleanupInterval)
	}
	if raw.RateLimitLogin <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_LOGIN: must be a positive req/min, got %d", raw.RateLimitLogin)
	}
	if raw.RateLimitWrite <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_WRITE: must be a positive req/min, got %d", raw.RateLimitWrite)
	}
	return nil
}

// parseTrustedProxies はCIDRまたは単一IPのリストをプレフィックスに変換する。
func parseTrustedProxies(values []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// resolveProviders は認証情報が揃っているプロバイダーを表示順に列挙する。
func resolveProviders(raw rawEnv, baseURL string) []ProviderConfig {
	var providers []ProviderConfig

	if raw.GoogleClientID != "" && raw.GoogleClientSecret != "" {
		providers = append(providers, ProviderConfig{
			Name:         "google",
			ClientID:     raw.GoogleClientID,
			ClientSecret: raw.GoogleClientSecret,
			RedirectURL:  callbackURL(baseURL, "google"),
		})
	}

	if raw.GitHubClientID != "" && raw.GitHubClientSecret != "" {
		providers = append(providers, ProviderConfig{
			Name:         "github",
			ClientID:     raw.GitHubClientID,
			ClientSecret: raw.GitHubClientSecret,
			RedirectURL:  callbackURL(baseURL, "github"),
		})
	}

	if raw.DemoLoginEnabled {
		providers = append(providers, ProviderConfig{
			Name:        "demo",
			RedirectURL: callbackURL(baseURL, "demo"),
		})
	}

	return providers
}

func callbackURL(baseURL, provider string) string {
	return baseURL + "/auth/" + provider + "/callback"
}

// SessionTTL はセッションの有効期間を返す。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}
