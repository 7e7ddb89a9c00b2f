// Package auth はOAuthログイン、ユーザーの検索・作成、セッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/cricketstats/internal/model"
)

// Stage はコールバック処理の段階を表す。
type Stage string

const (
	StageReceived           Stage = "received"
	StageExchangingToken    Stage = "exchanging_token"
	StageProfileFetched     Stage = "profile_fetched"
	StageNormalized         Stage = "normalized"
	StageResolved           Stage = "resolved"
	StageSessionEstablished Stage = "session_established"
	StageRedirected         Stage = "redirected"
)

// コールバック失敗の分類コード。ログとメトリクスに使う。
const (
	CodeUnknownProvider     = "unknown_provider"
	CodeTokenExchangeFailed = "token_exchange_failed"
	CodeProfileFetchFailed  = "profile_fetch_failed"
	CodeMalformedProfile    = "malformed_profile"
	CodeStoreUnavailable    = "store_unavailable"
	CodeSessionFailed       = "session_failed"
)

// OutcomeSuccess はログイン成功時のメトリクス上の結果名。
const OutcomeSuccess = "success"

// CallbackError はコールバック処理の失敗を表す。
// 利用者への見え方はすべて同じで、Codeは観測用に区別する。
type CallbackError struct {
	Stage Stage
	Code  string
	Err   error
}

// Error はerrorインターフェースを実装する。
func (e *CallbackError) Error() string {
	return fmt.Sprintf("oauth callback failed at %s (%s): %v", e.Stage, e.Code, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *CallbackError) Unwrap() error { return e.Err }

// Metrics はログインフローの計測に使うインターフェース。
type Metrics interface {
	RecordLogin(provider, outcome string)
	ObserveCallbackDuration(provider string, d time.Duration)
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	User    *model.User
	Session *model.Session
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	providers *Registry
	resolver  *Resolver
	sessions  *SessionCodec
	metrics   Metrics
	now       func() time.Time
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(providers *Registry, resolver *Resolver, sessions *SessionCodec, metrics Metrics) *Service {
	return &Service{
		providers: providers,
		resolver:  resolver,
		sessions:  sessions,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Providers は有効なプロバイダー名を表示順に返す。
func (s *Service) Providers() []model.Provider {
	return s.providers.Names()
}

// LoginURL はプロバイダーの同意画面URLを生成する。
func (s *Service) LoginURL(provider, state string) (string, error) {
	p, ok := s.providers.Get(provider)
	if !ok {
		return "", &CallbackError{Stage: StageReceived, Code: CodeUnknownProvider, Err: fmt.Errorf("provider %q is not enabled", provider)}
	}
	return p.AuthCodeURL(state), nil
}

// CompleteLogin は認可コードからユーザーを解決し、セッションを発行する。
// 失敗時は *CallbackError を返す。ユーザー解決より前の失敗ではユーザーを作成・更新しない。
func (s *Service) CompleteLogin(ctx context.Context, provider, code string) (*LoginResult, error) {
	start := s.now()
	result, err := s.completeLogin(ctx, provider, code)

	outcome := OutcomeSuccess
	var cbErr *CallbackError
	if errors.As(err, &cbErr) {
		outcome = cbErr.Code
		slog.Warn("oauth callback failed",
			slog.String("provider", provider),
			slog.String("stage", string(cbErr.Stage)),
			slog.String("code", cbErr.Code),
			slog.String("error", cbErr.Err.Error()),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordLogin(provider, outcome)
		s.metrics.ObserveCallbackDuration(provider, s.now().Sub(start))
	}

	return result, err
}

func (s *Service) completeLogin(ctx context.Context, provider, code string) (*LoginResult, error) {
	p, ok := s.providers.Get(provider)
	if !ok {
		return nil, &CallbackError{Stage: StageReceived, Code: CodeUnknownProvider, Err: fmt.Errorf("provider %q is not enabled", provider)}
	}

	token, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, &CallbackError{Stage: StageExchangingToken, Code: CodeTokenExchangeFailed, Err: fmt.Errorf("%w: %w", model.ErrTokenExchangeFailed, err)}
	}
	// トークンの値はログに残さない
	slog.Info("oauth token received",
		slog.String("provider", provider),
		slog.Bool("access_token_present", token.AccessToken != ""),
		slog.Bool("refresh_token_present", token.RefreshToken != ""),
	)

	raw, err := p.FetchProfile(ctx, token)
	if err != nil {
		return nil, &CallbackError{Stage: StageProfileFetched, Code: CodeProfileFetchFailed, Err: fmt.Errorf("%w: %w", model.ErrProfileFetchFailed, err)}
	}

	profile, err := Normalize(raw)
	if err != nil {
		return nil, &CallbackError{Stage: StageNormalized, Code: CodeMalformedProfile, Err: err}
	}

	user, err := s.resolver.Resolve(ctx, profile)
	if err != nil {
		return nil, &CallbackError{Stage: StageResolved, Code: CodeStoreUnavailable, Err: err}
	}

	session, err := s.sessions.Establish(ctx, user)
	if err != nil {
		return nil, &CallbackError{Stage: StageSessionEstablished, Code: CodeSessionFailed, Err: err}
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider", provider),
	)

	return &LoginResult{User: user, Session: session}, nil
}

// CurrentUser はセッショントークンからユーザーを復元する。未ログインは (nil, false)。
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, bool) {
	return s.sessions.Resolve(ctx, token)
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return err
	}
	slog.Info("user logged out")
	return nil
}
