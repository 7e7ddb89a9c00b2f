package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cricketstats/internal/auth"
	"github.com/hitoshi/cricketstats/internal/middleware"
	"github.com/hitoshi/cricketstats/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	providersFn     func() []model.Provider
	loginURLFn      func(provider, state string) (string, error)
	completeLoginFn func(ctx context.Context, provider, code string) (*auth.LoginResult, error)
	logoutFn        func(ctx context.Context, token string) error

	completeCalls int
	logoutTokens  []string
}

func (m *mockAuthService) Providers() []model.Provider {
	if m.providersFn != nil {
		return m.providersFn()
	}
	return []model.Provider{model.ProviderGoogle, model.ProviderGitHub}
}

func (m *mockAuthService) LoginURL(provider, state string) (string, error) {
	if m.loginURLFn != nil {
		return m.loginURLFn(provider, state)
	}
	return "https://idp.example.com/authorize?provider=" + provider + "&state=" + state, nil
}

func (m *mockAuthService) CompleteLogin(ctx context.Context, provider, code string) (*auth.LoginResult, error) {
	m.completeCalls++
	if m.completeLoginFn != nil {
		return m.completeLoginFn(ctx, provider, code)
	}
	return nil, &auth.CallbackError{Stage: auth.StageExchangingToken, Code: auth.CodeTokenExchangeFailed}
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	m.logoutTokens = append(m.logoutTokens, token)
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

// mockPlayerService はPlayerServiceInterfaceのモック実装。
type mockPlayerService struct {
	listFn   func(ctx context.Context, sort model.PlayerSort) ([]*model.Player, error)
	getFn    func(ctx context.Context, id string) (*model.Player, error)
	createFn func(ctx context.Context, fields model.PlayerFields) (*model.Player, error)
	updateFn func(ctx context.Context, id string, fields model.PlayerFields) (*model.Player, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockPlayerService) List(ctx context.Context, sort model.PlayerSort) ([]*model.Player, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sort)
	}
	return nil, nil
}

func (m *mockPlayerService) Get(ctx context.Context, id string) (*model.Player, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewPlayerNotFoundError(id)
}

func (m *mockPlayerService) Create(ctx context.Context, fields model.PlayerFields) (*model.Player, error) {
	if m.createFn != nil {
		return m.createFn(ctx, fields)
	}
	return &model.Player{ID: "p-new"}, nil
}

func (m *mockPlayerService) Update(ctx context.Context, id string, fields model.PlayerFields) (*model.Player, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, fields)
	}
	return &model.Player{ID: id}, nil
}

func (m *mockPlayerService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockIdentity はセッショントークンとユーザーの対応表でUserResolverを実装する。
type mockIdentity map[string]*model.User

func (m mockIdentity) CurrentUser(ctx context.Context, token string) (*model.User, bool) {
	u, ok := m[token]
	return u, ok
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error { return m.err }

// --- テストヘルパー ---

// withUser はテスト用にリクエストコンテキストにユーザーを注入するヘルパー。
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// findCookie はレスポンスから指定名のCookieを探す。
func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}
