package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/cricketstats/internal/model"
)

const (
	// ReturnToCookieName はログイン後の戻り先パスを保持するCookieの名前。
	ReturnToCookieName = "return_to"

	// DefaultReturnPath は戻り先が記録されていない場合のログイン後の遷移先。
	DefaultReturnPath = "/players"

	returnToMaxAge = 600 // 10分
)

// GateMetrics はアクセスゲートの計測に使うインターフェース。
type GateMetrics interface {
	RecordGateDenied()
}

// GateConfig はアクセスゲートの設定。
type GateConfig struct {
	LandingPath  string // 拒否時のリダイレクト先
	CookieSecure bool
	CookieDomain string
}

// Decision はアクセスゲートの判定結果。
type Decision struct {
	Allowed bool
	User    *model.User
}

// AccessGate は書き込み操作の前にログイン状態を確認する。
type AccessGate struct {
	resolver UserResolver
	config   GateConfig
	metrics  GateMetrics
}

// NewAccessGate はAccessGateを生成する。metricsはnilでもよい。
func NewAccessGate(resolver UserResolver, config GateConfig, metrics GateMetrics) *AccessGate {
	if config.LandingPath == "" {
		config.LandingPath = "/"
	}
	return &AccessGate{resolver: resolver, config: config, metrics: metrics}
}

// Guard はリクエストを許可するかを判定する。エラーは返さない。
// コンテキストに復元済みのユーザーがあればそれを使い、無ければCookieから復元する。
func (g *AccessGate) Guard(r *http.Request) Decision {
	if user, ok := UserFromContext(r.Context()); ok {
		return Decision{Allowed: true, User: user}
	}
	if user, ok := resolveFromCookie(r, g.resolver); ok {
		return Decision{Allowed: true, User: user}
	}
	return Decision{}
}

// Middleware はゲートをミドルウェアとして返す。
// 拒否時は要求パスを戻り先Cookieに記録し、ランディングページへリダイレクトする。
func (g *AccessGate) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Guard(r)
			if d.Allowed {
				next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), d.User)))
				return
			}

			returnTo := DefaultReturnPath
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				returnTo = SafeReturnPath(r.URL.RequestURI())
			}
			http.SetCookie(w, &http.Cookie{
				Name:     ReturnToCookieName,
				Value:    url.QueryEscape(returnTo),
				Path:     "/",
				Domain:   g.config.CookieDomain,
				MaxAge:   returnToMaxAge,
				HttpOnly: true,
				Secure:   g.config.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})

			slog.Info("access denied, login required",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			if g.metrics != nil {
				g.metrics.RecordGateDenied()
			}

			http.Redirect(w, r, g.config.LandingPath, http.StatusFound)
		})
	}
}

// ReturnPathFromCookie は戻り先Cookieのパスを返す。無い場合は空文字。
func ReturnPathFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(ReturnToCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	p, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return SafeReturnPath(p)
}

// ClearReturnPath は戻り先Cookieを削除する。
func ClearReturnPath(w http.ResponseWriter, secure bool, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     ReturnToCookieName,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SafeReturnPath はサイト内の相対パスだけを通し、それ以外は DefaultReturnPath を返す。
func SafeReturnPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return DefaultReturnPath
	}
	if strings.HasPrefix(p, "/auth/") {
		return DefaultReturnPath
	}
	return p
}

// NewRequireAdminMiddleware は管理者以外のリクエストをforbiddenで処理するミドルウェアを返す。
// アクセスゲートの後に配置する。
func NewRequireAdminMiddleware(forbidden http.Handler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if !user.IsAdmin() {
				slog.Warn("admin privileges required",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				forbidden.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
