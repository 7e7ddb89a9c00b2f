package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/hitoshi/cricketstats/internal/model"
)

// Provider はログインプロバイダー（外部IdPまたはデモ）のインターフェース。
type Provider interface {
	// Name はプロバイダー名を返す。URLの {provider} に対応する。
	Name() model.Provider
	// AuthCodeURL は同意画面へのURLを生成する。
	AuthCodeURL(state string) string
	// Exchange は認可コードをトークンに交換する。
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// FetchProfile はトークンでプロフィールを取得する。
	FetchProfile(ctx context.Context, token *oauth2.Token) (RawProfile, error)
}

// ProviderOptions はOAuthプロバイダーの設定。
type ProviderOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
	APIURL   string
}

// oauthProvider はx/oauth2を使うプロバイダーの共通部分。
type oauthProvider struct {
	config *oauth2.Config
}

func newOAuthProvider(opts ProviderOptions, endpoint oauth2.Endpoint, scopes []string) oauthProvider {
	if opts.AuthURL != "" {
		endpoint.AuthURL = opts.AuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	return oauthProvider{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
	}
}

// AuthCodeURL は同意画面へのURLを生成する。
func (p oauthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange は認可コードをトークンに交換する。
func (p oauthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return token, nil
}

// getJSON はトークン付きでGETし、JSONレスポンスをdstにデコードする。
func (p oauthProvider) getJSON(ctx context.Context, token *oauth2.Token, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
