package auth

import (
	"fmt"

	"github.com/hitoshi/cricketstats/internal/config"
	"github.com/hitoshi/cricketstats/internal/model"
)

// Registry は起動時に有効化されたプロバイダーを保持する。実行中は変更しない。
type Registry struct {
	providers map[model.Provider]Provider
	order     []model.Provider
}

// NewRegistry は与えられたプロバイダーでRegistryを生成する。並び順は表示順になる。
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[model.Provider]Provider, len(providers))}
	for _, p := range providers {
		if _, dup := r.providers[p.Name()]; dup {
			continue
		}
		r.providers[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// NewRegistryFromConfig は設定から各プロバイダーを生成する。
func NewRegistryFromConfig(cfgs []config.ProviderConfig) (*Registry, error) {
	providers := make([]Provider, 0, len(cfgs))
	for _, c := range cfgs {
		opts := ProviderOptions{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
		}
		switch model.Provider(c.Name) {
		case model.ProviderGoogle:
			providers = append(providers, NewGoogleProvider(opts))
		case model.ProviderGitHub:
			providers = append(providers, NewGitHubProvider(opts))
		case model.ProviderDemo:
			providers = append(providers, NewDemoProvider(c.RedirectURL))
		default:
			return nil, fmt.Errorf("unsupported login provider: %q", c.Name)
		}
	}
	return NewRegistry(providers...), nil
}

// Get は名前に対応するプロバイダーを返す。
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[model.Provider(name)]
	return p, ok
}

// Names は有効なプロバイダー名を表示順に返す。
func (r *Registry) Names() []model.Provider {
	names := make([]model.Provider, len(r.order))
	copy(names, r.order)
	return names
}
