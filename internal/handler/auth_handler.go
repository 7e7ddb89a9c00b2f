// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cricketstats/internal/auth"
	"github.com/hitoshi/cricketstats/internal/middleware"
	"github.com/hitoshi/cricketstats/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600 // 10分

	// ログインページのエラーコード
	loginErrorAuthFailed   = "auth_failed"
	loginErrorAccessDenied = "access_denied"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Providers() []model.Provider
	LoginURL(provider, state string) (string, error)
	CompleteLogin(ctx context.Context, provider, code string) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// StateService はOAuth stateの発行と検証を行うインターフェース。
type StateService interface {
	Issue(provider, returnTo string) (token, nonce string, err error)
	Verify(token string) (*auth.StateClaims, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	states  StateService
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, states StateService, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		states:  states,
		config:  config,
	}
}

// Login はプロバイダーの同意画面へのリダイレクトでOAuthフローを開始する。
// GET /auth/{provider}
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	returnTo := middleware.ReturnPathFromCookie(r)

	token, nonce, err := h.states.Issue(provider, returnTo)
	if err != nil {
		slog.Error("failed to issue oauth state", slog.String("error", err.Error()))
		h.redirectLoginError(w, r, loginErrorAuthFailed)
		return
	}

	loginURL, err := h.service.LoginURL(provider, nonce)
	if err != nil {
		slog.Warn("login requested for unavailable provider",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		h.redirectLoginError(w, r, loginErrorAuthFailed)
		return
	}

	// stateトークンをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    token,
		Path:     "/auth/",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/{provider}/callback?code=xxx&state=yyy
// 失敗はすべて /login?error=auth_failed へのリダイレクトになる。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	stateToken := ""
	if c, err := r.Cookie(oauthStateCookie); err == nil {
		stateToken = c.Value
	}
	h.clearStateCookie(w)

	// 同意画面での拒否はトークン交換を行わない
	if idpErr := q.Get("error"); idpErr != "" {
		slog.Info("oauth consent not granted",
			slog.String("provider", provider),
			slog.String("idp_error", idpErr),
		)
		if idpErr == loginErrorAccessDenied {
			h.redirectLoginError(w, r, loginErrorAccessDenied)
			return
		}
		h.redirectLoginError(w, r, loginErrorAuthFailed)
		return
	}

	claims, err := h.states.Verify(stateToken)
	if err != nil || claims.Provider != provider || claims.Nonce != q.Get("state") {
		slog.Warn("oauth state mismatch",
			slog.String("provider", provider),
			slog.Bool("state_cookie_present", stateToken != ""),
		)
		h.redirectLoginError(w, r, loginErrorAuthFailed)
		return
	}

	code := q.Get("code")
	if code == "" {
		slog.Warn("oauth callback without code", slog.String("provider", provider))
		h.redirectLoginError(w, r, loginErrorAuthFailed)
		return
	}

	result, err := h.service.CompleteLogin(r.Context(), provider, code)
	if err != nil {
		h.redirectLoginError(w, r, loginErrorAuthFailed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.Session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	middleware.ClearReturnPath(w, h.config.CookieSecure, h.config.CookieDomain)

	target := middleware.DefaultReturnPath
	if claims.ReturnTo != "" {
		target = middleware.SafeReturnPath(claims.ReturnTo)
	}

	slog.Info("oauth callback completed",
		slog.String("provider", provider),
		slog.String("stage", string(auth.StageRedirected)),
		slog.String("user_id", result.User.ID),
	)
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout はセッションを破棄してトップページへリダイレクトする。
// GET /auth/logout, POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			// 失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// meResponse は /auth/me のレスポンス。
type meResponse struct {
	ID          string  `json:"id"`
	Provider    string  `json:"provider"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email"`
	AvatarURL   *string `json:"avatar_url"`
	Role        string  `json:"role"`
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "Login required.",
			Category: "auth",
			Action:   "Log in and try again.",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(meResponse{
		ID:          user.ID,
		Provider:    string(user.Provider),
		DisplayName: user.DisplayName,
		Email:       user.Email,
		AvatarURL:   user.AvatarURL,
		Role:        string(user.Role),
	})
}

func (h *AuthHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(code), http.StatusFound)
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}
