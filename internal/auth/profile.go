package auth

import (
	"fmt"
	"strings"

	"github.com/hitoshi/cricketstats/internal/model"
)

// defaultDisplayName は表示名もユーザー名も取得できない場合に使う表示名。
const defaultDisplayName = "User"

// RawProfile はIdPから取得したプロフィール。プロバイダーごとに形が異なる。
// 実装は GoogleProfile, GitHubProfile, DemoProfile のいずれか。
type RawProfile interface {
	Provider() model.Provider
}

// GoogleProfile はGoogleのuserinfoエンドポイントのレスポンス。
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}

// Provider はRawProfileを実装する。
func (GoogleProfile) Provider() model.Provider { return model.ProviderGoogle }

// GitHubProfile はGitHubの /user レスポンスに /user/emails の結果を加えたもの。
type GitHubProfile struct {
	ID        string
	Login     string
	Name      string
	Email     string
	Emails    []string // プライマリを先頭に並べたメールアドレス
	AvatarURL string
}

// Provider はRawProfileを実装する。
func (GitHubProfile) Provider() model.Provider { return model.ProviderGitHub }

// DemoProfile はデモログイン用の固定プロフィール。
type DemoProfile struct {
	ID          string
	DisplayName string
}

// Provider はRawProfileを実装する。
func (DemoProfile) Provider() model.Provider { return model.ProviderDemo }

// NormalizedProfile はプロバイダー非依存のプロフィール。
type NormalizedProfile struct {
	Provider    model.Provider
	ProviderID  string
	DisplayName string  // 空にならない
	Email       *string // 取得できない場合はnil
	AvatarURL   *string // 取得できない場合はnil
}

// Normalize はRawProfileをNormalizedProfileに変換する。
// provider側IDが無い場合は model.ErrMalformedProfile を返す。I/Oは行わない。
func Normalize(raw RawProfile) (*NormalizedProfile, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no profile", model.ErrMalformedProfile)
	}

	var (
		id          string
		displayName string
		username    string
		emails      []string
		avatars     []string
	)

	switch p := raw.(type) {
	case GoogleProfile:
		id = p.Subject
		displayName = p.Name
		username = p.GivenName
		emails = []string{p.Email}
		avatars = []string{p.Picture}
	case *GoogleProfile:
		if p == nil {
			return nil, fmt.Errorf("%w: empty google profile", model.ErrMalformedProfile)
		}
		return Normalize(*p)
	case GitHubProfile:
		id = p.ID
		displayName = p.Name
		username = p.Login
		emails = append([]string{p.Email}, p.Emails...)
		avatars = []string{p.AvatarURL}
	case *GitHubProfile:
		if p == nil {
			return nil, fmt.Errorf("%w: empty github profile", model.ErrMalformedProfile)
		}
		return Normalize(*p)
	case DemoProfile:
		id = p.ID
		displayName = p.DisplayName
	case *DemoProfile:
		if p == nil {
			return nil, fmt.Errorf("%w: empty demo profile", model.ErrMalformedProfile)
		}
		return Normalize(*p)
	default:
		return nil, fmt.Errorf("%w: unsupported profile type %T", model.ErrMalformedProfile, raw)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: %s profile has no id", model.ErrMalformedProfile, raw.Provider())
	}

	return &NormalizedProfile{
		Provider:    raw.Provider(),
		ProviderID:  id,
		DisplayName: firstNonEmpty(displayName, username, defaultDisplayName),
		Email:       firstPresent(emails),
		AvatarURL:   firstPresent(avatars),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// firstPresent は最初の空でない値へのポインタを返す。無ければnil。
func firstPresent(values []string) *string {
	if v := firstNonEmpty(values...); v != "" {
		return &v
	}
	return nil
}
