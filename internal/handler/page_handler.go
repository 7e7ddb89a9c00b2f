package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/cricketstats/internal/model"
)

// loginErrorMessages はログインページの ?error= コードと表示文言の対応。
var loginErrorMessages = map[string]string{
	"auth_failed":   "Sign-in failed. Please try again.",
	"access_denied": "Sign-in was cancelled at the provider.",
	"no_user":       "We could not find your account. Please sign in again.",
	"login_failed":  "Could not complete sign-in. Please try again.",
}

const loginErrorFallback = "Something went wrong while signing in. Please try again."

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// PageHandler はトップページ、ログインページ、ヘルスチェックのハンドラー。
type PageHandler struct {
	players   PlayerServiceInterface
	providers func() []model.Provider
	health    HealthChecker
	render    *Renderer
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(players PlayerServiceInterface, providers func() []model.Provider, health HealthChecker, render *Renderer) *PageHandler {
	return &PageHandler{
		players:   players,
		providers: providers,
		health:    health,
		render:    render,
	}
}

// Home は名前順の選手一覧を含むトップページを表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.List(r.Context(), model.PlayerSortByName)
	if err != nil {
		slog.Error("failed to load players for home page", slog.String("error", err.Error()))
		h.render.RenderError(w, r, http.StatusInternalServerError,
			"Error - Cricket Stats", "Failed to load team data. Please try again later.")
		return
	}

	h.render.Render(w, r, http.StatusOK, pageIndex, viewData{
		Title:   "India Cricket Team - Home",
		Page:    "home",
		Players: players,
	})
}

// Login は有効なプロバイダーの一覧とエラー文言を含むログインページを表示する。
// GET /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	var links []providerLink
	for _, p := range h.providers() {
		links = append(links, providerLink{Name: string(p), Label: providerLabel(p)})
	}

	data := viewData{
		Title:     "Log in - India Cricket Team",
		Page:      "login",
		Providers: links,
	}
	if code := r.URL.Query().Get("error"); code != "" {
		msg, ok := loginErrorMessages[code]
		if !ok {
			msg = loginErrorFallback
		}
		data.Error = msg
	}

	h.render.Render(w, r, http.StatusOK, pageLogin, data)
}

// Health はDBへの疎通を確認する。
// GET /health
func (h *PageHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.health.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func providerLabel(p model.Provider) string {
	switch p {
	case model.ProviderGoogle:
		return "Continue with Google"
	case model.ProviderGitHub:
		return "Continue with GitHub"
	case model.ProviderDemo:
		return "Demo login"
	default:
		s := string(p)
		if s == "" {
			return "Continue"
		}
		return "Continue with " + strings.ToUpper(s[:1]) + s[1:]
	}
}
