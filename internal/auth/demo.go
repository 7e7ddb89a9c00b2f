package auth

import (
	"context"
	"errors"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/hitoshi/cricketstats/internal/model"
)

const (
	demoCode        = "demo"
	demoProviderID  = "demo-user"
	demoDisplayName = "Demo User"
)

// DemoProvider は外部IdPを使わないローカル検証用のログイン。
// 同意画面を経由せず、固定の認可コードで直接コールバックへ戻る。
type DemoProvider struct {
	redirectURL string
}

// NewDemoProvider はDemoProviderを生成する。
func NewDemoProvider(redirectURL string) *DemoProvider {
	return &DemoProvider{redirectURL: redirectURL}
}

// Name はプロバイダー名を返す。
func (p *DemoProvider) Name() model.Provider { return model.ProviderDemo }

// AuthCodeURL はコールバックURLに固定の認可コードを付けて返す。
func (p *DemoProvider) AuthCodeURL(state string) string {
	q := url.Values{"code": {demoCode}, "state": {state}}
	return p.redirectURL + "?" + q.Encode()
}

// Exchange は固定の認可コードだけを受け付ける。
func (p *DemoProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code != demoCode {
		return nil, errors.New("unknown demo authorization code")
	}
	return &oauth2.Token{AccessToken: "demo", TokenType: "Bearer"}, nil
}

// FetchProfile は固定のデモユーザーを返す。
func (p *DemoProvider) FetchProfile(_ context.Context, _ *oauth2.Token) (RawProfile, error) {
	return DemoProfile{ID: demoProviderID, DisplayName: demoDisplayName}, nil
}

// compile-time interface check
var _ Provider = (*DemoProvider)(nil)
