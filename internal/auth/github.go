package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/hitoshi/cricketstats/internal/model"
)

const defaultGitHubAPIURL = "https://api.github.com"

// GitHubProvider はGitHub OAuthによるログインを提供する。
type GitHubProvider struct {
	oauthProvider
	apiURL string
}

// NewGitHubProvider はGitHubProviderを生成する。
func NewGitHubProvider(opts ProviderOptions) *GitHubProvider {
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultGitHubAPIURL
	}
	return &GitHubProvider{
		oauthProvider: newOAuthProvider(opts, github.Endpoint, []string{"read:user", "user:email"}),
		apiURL:        apiURL,
	}
}

// Name はプロバイダー名を返す。
func (p *GitHubProvider) Name() model.Provider { return model.ProviderGitHub }

// githubUser は /user のレスポンス。idは数値で返る。
type githubUser struct {
	ID        json.Number `json:"id"`
	Login     string      `json:"login"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	AvatarURL string      `json:"avatar_url"`
}

// githubEmail は /user/emails のレスポンス要素。
type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// FetchProfile は /user からプロフィールを取得する。
// 公開メールアドレスが無い場合は /user/emails の検証済みアドレスを補う。
func (p *GitHubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (RawProfile, error) {
	var u githubUser
	if err := p.getJSON(ctx, token, p.apiURL+"/user", &u); err != nil {
		return nil, fmt.Errorf("failed to fetch github user: %w", err)
	}

	profile := GitHubProfile{
		ID:        u.ID.String(),
		Login:     u.Login,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}

	if profile.Email == "" {
		var emails []githubEmail
		if err := p.getJSON(ctx, token, p.apiURL+"/user/emails", &emails); err != nil {
			// メールアドレスは任意項目なので取得失敗はログインを止めない
			slog.Warn("github email lookup failed", slog.String("error", err.Error()))
		} else {
			profile.Emails = verifiedEmails(emails)
		}
	}

	return profile, nil
}

// verifiedEmails は検証済みアドレスをプライマリを先頭にして返す。
func verifiedEmails(emails []githubEmail) []string {
	var primary, others []string
	for _, e := range emails {
		if !e.Verified || e.Email == "" {
			continue
		}
		if e.Primary {
			primary = append(primary, e.Email)
		} else {
			others = append(others, e.Email)
		}
	}
	return append(primary, others...)
}

// compile-time interface check
var _ Provider = (*GitHubProvider)(nil)
