package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/cricketstats/internal/model"
)

// mockUserResolver はテスト用のUserResolverモック。
type mockUserResolver struct {
	currentUserFn func(ctx context.Context, token string) (*model.User, bool)
	calls         int
}

func (m *mockUserResolver) CurrentUser(ctx context.Context, token string) (*model.User, bool) {
	m.calls++
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, token)
	}
	return nil, false
}

// resolverFor は指定トークンにだけユーザーを返すモックを生成する。
func resolverFor(token string, user *model.User) *mockUserResolver {
	return &mockUserResolver{
		currentUserFn: func(ctx context.Context, got string) (*model.User, bool) {
			if got == token {
				return user, true
			}
			return nil, false
		},
	}
}

func TestIdentityMiddleware_ValidSession_InjectsUser(t *testing.T) {
	user := &model.User{ID: "user-1", DisplayName: "Virat", Role: model.RoleUser}
	mw := NewIdentityMiddleware(resolverFor("valid-session", user))

	var gotUser *model.User
	var gotID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFromContext(r.Context())
		gotID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/players", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if gotUser != user {
		t.Errorf("user = %+v, want %+v", gotUser, user)
	}
	if gotID != "user-1" {
		t.Errorf("user ID = %q, want %q", gotID, "user-1")
	}
}

func TestIdentityMiddleware_NoCookie_PassesThroughAnonymous(t *testing.T) {
	resolver := &mockUserResolver{}
	mw := NewIdentityMiddleware(resolver)

	handlerCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if _, ok := UserFromContext(r.Context()); ok {
			t.Error("expected no user in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !handlerCalled {
		t.Fatal("handler should be called for anonymous request")
	}
	if resolver.calls != 0 {
		t.Errorf("resolver calls = %d, want 0 without cookie", resolver.calls)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestIdentityMiddleware_InvalidSession_PassesThroughAnonymous(t *testing.T) {
	mw := NewIdentityMiddleware(resolverFor("valid-session", &model.User{ID: "user-1"}))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); ok {
			t.Error("expected no user for unknown session")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUserIDFromContext_Empty_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for context without user")
	}
	ctx := ContextWithUser(context.Background(), nil)
	if _, ok := UserFromContext(ctx); ok {
		t.Error("nil user should not be reported as present")
	}
}
