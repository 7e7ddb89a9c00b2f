package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/cricketstats/internal/model"
)

type serviceFixture struct {
	svc      *Service
	users    *memUserRepo
	sessions *memSessionRepo
	metrics  *mockMetrics
}

func newServiceFixture(providers ...Provider) *serviceFixture {
	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	metrics := &mockMetrics{}
	svc := NewService(
		NewRegistry(providers...),
		NewResolver(users, metrics),
		NewSessionCodec(sessions, users, 24*time.Hour),
		metrics,
	)
	return &serviceFixture{svc: svc, users: users, sessions: sessions, metrics: metrics}
}

func githubJSinghProvider() *mockProvider {
	return &mockProvider{
		name: model.ProviderGitHub,
		fetchProfileFn: func(context.Context, *oauth2.Token) (RawProfile, error) {
			return GitHubProfile{ID: "42", Login: "jsingh"}, nil
		},
	}
}

func TestService_LoginURL(t *testing.T) {
	f := newServiceFixture(githubJSinghProvider())

	got, err := f.svc.LoginURL("github", "abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "https://idp.example.com/authorize?state=abc" {
		t.Errorf("LoginURL = %q", got)
	}

	if _, err := f.svc.LoginURL("twitter", "abc"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestService_CompleteLogin_GitHubFirstAndSecondLogin(t *testing.T) {
	f := newServiceFixture(githubJSinghProvider())
	ctx := context.Background()

	first, err := f.svc.CompleteLogin(ctx, "github", "code-1")
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	if first.User.Provider != model.ProviderGitHub {
		t.Errorf("Provider = %q, want %q", first.User.Provider, model.ProviderGitHub)
	}
	if first.User.ProviderID != "42" {
		t.Errorf("ProviderID = %q, want %q", first.User.ProviderID, "42")
	}
	if first.User.DisplayName != "jsingh" {
		t.Errorf("DisplayName = %q, want %q", first.User.DisplayName, "jsingh")
	}
	if first.User.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", first.User.Role, model.RoleUser)
	}
	if first.Session == nil || first.Session.UserID != first.User.ID {
		t.Errorf("Session = %+v", first.Session)
	}

	second, err := f.svc.CompleteLogin(ctx, "github", "code-2")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("second login ID = %q, want %q", second.User.ID, first.User.ID)
	}
	if f.users.count() != 1 {
		t.Errorf("user count = %d, want 1", f.users.count())
	}

	current, ok := f.svc.CurrentUser(ctx, second.Session.ID)
	if !ok || current.ID != first.User.ID {
		t.Errorf("CurrentUser = %+v, %v", current, ok)
	}
	if len(f.metrics.logins) != 2 || f.metrics.logins[0] != "github:success" {
		t.Errorf("login metrics = %v", f.metrics.logins)
	}
}

func TestService_CompleteLogin_TokenExchangeFailure(t *testing.T) {
	fetched := false
	provider := &mockProvider{
		name: model.ProviderGoogle,
		exchangeFn: func(context.Context, string) (*oauth2.Token, error) {
			return nil, errors.New("invalid_grant")
		},
		fetchProfileFn: func(context.Context, *oauth2.Token) (RawProfile, error) {
			fetched = true
			return GoogleProfile{Subject: "g"}, nil
		},
	}
	f := newServiceFixture(provider)

	result, err := f.svc.CompleteLogin(context.Background(), "google", "bad")
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}

	var cbErr *CallbackError
	if !errors.As(err, &cbErr) {
		t.Fatalf("expected *CallbackError, got %v", err)
	}
	if cbErr.Code != CodeTokenExchangeFailed || cbErr.Stage != StageExchangingToken {
		t.Errorf("CallbackError = %+v", cbErr)
	}
	if !errors.Is(err, model.ErrTokenExchangeFailed) {
		t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
	}
	if fetched {
		t.Error("profile should not be fetched after exchange failure")
	}
	if f.users.count() != 0 {
		t.Errorf("user count = %d, want 0", f.users.count())
	}
	if f.sessions.count() != 0 {
		t.Errorf("session count = %d, want 0", f.sessions.count())
	}
	if len(f.metrics.logins) != 1 || f.metrics.logins[0] != "google:token_exchange_failed" {
		t.Errorf("login metrics = %v", f.metrics.logins)
	}
}

func TestService_CompleteLogin_FailureCodes(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		fetch     func(context.Context, *oauth2.Token) (RawProfile, error)
		wantCode  string
		wantStage Stage
		wantErr   error
	}{
		{
			name:      "unknown provider",
			provider:  "twitter",
			wantCode:  CodeUnknownProvider,
			wantStage: StageReceived,
		},
		{
			name:     "profile fetch failure",
			provider: "github",
			fetch: func(context.Context, *oauth2.Token) (RawProfile, error) {
				return nil, errors.New("503")
			},
			wantCode:  CodeProfileFetchFailed,
			wantStage: StageProfileFetched,
			wantErr:   model.ErrProfileFetchFailed,
		},
		{
			name:     "malformed profile",
			provider: "github",
			fetch: func(context.Context, *oauth2.Token) (RawProfile, error) {
				return GitHubProfile{Login: "noid"}, nil
			},
			wantCode:  CodeMalformedProfile,
			wantStage: StageNormalized,
			wantErr:   model.ErrMalformedProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(&mockProvider{name: model.ProviderGitHub, fetchProfileFn: tt.fetch})

			_, err := f.svc.CompleteLogin(context.Background(), tt.provider, "code")
			var cbErr *CallbackError
			if !errors.As(err, &cbErr) {
				t.Fatalf("expected *CallbackError, got %v", err)
			}
			if cbErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", cbErr.Code, tt.wantCode)
			}
			if cbErr.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", cbErr.Stage, tt.wantStage)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if f.users.count() != 0 || f.sessions.count() != 0 {
				t.Errorf("no user or session should be created: users=%d sessions=%d", f.users.count(), f.sessions.count())
			}
		})
	}
}

func TestService_CompleteLogin_StoreUnavailable(t *testing.T) {
	users := &mockUserRepo{
		findByProviderFn: func(context.Context, model.Provider, string) (*model.User, error) {
			return nil, errors.New("db down")
		},
	}
	sessionCreated := false
	sessions := &mockSessionRepo{
		createFn: func(context.Context, *model.Session) error {
			sessionCreated = true
			return nil
		},
	}
	svc := NewService(
		NewRegistry(githubJSinghProvider()),
		NewResolver(users, nil),
		NewSessionCodec(sessions, users, time.Hour),
		nil,
	)

	_, err := svc.CompleteLogin(context.Background(), "github", "code")
	var cbErr *CallbackError
	if !errors.As(err, &cbErr) || cbErr.Code != CodeStoreUnavailable {
		t.Fatalf("expected store_unavailable CallbackError, got %v", err)
	}
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if sessionCreated {
		t.Error("session should not be created")
	}
}

func TestService_CompleteLogin_SessionFailure(t *testing.T) {
	users := newMemUserRepo()
	svc := NewService(
		NewRegistry(githubJSinghProvider()),
		NewResolver(users, nil),
		NewSessionCodec(&mockSessionRepo{
			createFn: func(context.Context, *model.Session) error { return errors.New("db down") },
		}, users, time.Hour),
		nil,
	)

	_, err := svc.CompleteLogin(context.Background(), "github", "code")
	var cbErr *CallbackError
	if !errors.As(err, &cbErr) || cbErr.Code != CodeSessionFailed {
		t.Fatalf("expected session_failed CallbackError, got %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	f := newServiceFixture(githubJSinghProvider())
	ctx := context.Background()

	result, err := f.svc.CompleteLogin(ctx, "github", "code")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := f.svc.Logout(ctx, result.Session.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, ok := f.svc.CurrentUser(ctx, result.Session.ID); ok {
		t.Error("session should be gone after logout")
	}
}
