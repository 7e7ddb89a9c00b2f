// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/cricketstats/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userContextKey はリクエストコンテキストにログインユーザーを格納するためのキー。
	userContextKey = contextKey("user")
	// csrfContextKey はリクエストコンテキストにCSRFトークンを格納するためのキー。
	csrfContextKey = contextKey("csrf_token")
)

// UserResolver はセッショントークンからユーザーを復元するインターフェース。
// 未ログイン・期限切れ・障害はすべて (nil, false) で表す。
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*model.User, bool)
}

// NewIdentityMiddleware はCookieのセッションからログインユーザーを復元し、
// リクエストコンテキストに注入するミドルウェアを返す。
// 未ログインのリクエストもそのまま通す。
func NewIdentityMiddleware(resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := resolveFromCookie(r, resolver); ok {
				r = r.WithContext(ContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveFromCookie はCookieのセッショントークンからユーザーを復元する。
func resolveFromCookie(r *http.Request, resolver UserResolver) (*model.User, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return resolver.CurrentUser(r.Context(), cookie.Value)
}

// UserFromContext はリクエストコンテキストからログインユーザーを取得する。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

// ContextWithUser はコンテキストにログインユーザーを注入する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user, ok := UserFromContext(ctx)
	if !ok || user.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return user.ID, nil
}
