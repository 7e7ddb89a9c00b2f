package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hitoshi/cricketstats/internal/model"
)

const defaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProvider はGoogle OAuth 2.0によるログインを提供する。
type GoogleProvider struct {
	oauthProvider
	userInfoURL string
}

// NewGoogleProvider はGoogleProviderを生成する。
// スコープにはopenid, email, profileを含む。
func NewGoogleProvider(opts ProviderOptions) *GoogleProvider {
	userInfoURL := opts.APIURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}
	return &GoogleProvider{
		oauthProvider: newOAuthProvider(opts, google.Endpoint, []string{"openid", "email", "profile"}),
		userInfoURL:   userInfoURL,
	}
}

// Name はプロバイダー名を返す。
func (p *GoogleProvider) Name() model.Provider { return model.ProviderGoogle }

// FetchProfile はuserinfoエンドポイントからプロフィールを取得する。
func (p *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (RawProfile, error) {
	var profile GoogleProfile
	if err := p.getJSON(ctx, token, p.userInfoURL, &profile); err != nil {
		return nil, fmt.Errorf("failed to fetch google user info: %w", err)
	}
	return profile, nil
}

// compile-time interface check
var _ Provider = (*GoogleProvider)(nil)
