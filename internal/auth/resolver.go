package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/cricketstats/internal/model"
	"github.com/hitoshi/cricketstats/internal/repository"
)

// ResolverMetrics はリゾルバーの計測に使うインターフェース。
type ResolverMetrics interface {
	RecordUserCreated(provider string)
	RecordDuplicateRecovered(provider string)
}

// Resolver は (provider, provider_id) をキーにユーザーを検索または作成する。
// 同時作成の競合はDBの一意制約で検出し、作成失敗後の再検索で解決する。
type Resolver struct {
	users   repository.UserRepository
	metrics ResolverMetrics
	now     func() time.Time
}

// NewResolver はResolverを生成する。metricsはnilでもよい。
func NewResolver(users repository.UserRepository, metrics ResolverMetrics) *Resolver {
	return &Resolver{
		users:   users,
		metrics: metrics,
		now:     time.Now,
	}
}

// Resolve は正規化済みプロフィールに対応するユーザーを返す。
// 既存ユーザーの場合は表示項目を更新する。roleは変更しない。
// ストアへのアクセス失敗は model.ErrStoreUnavailable でラップして返し、ここではリトライしない。
func (r *Resolver) Resolve(ctx context.Context, profile *NormalizedProfile) (*model.User, error) {
	existing, err := r.users.FindByProvider(ctx, profile.Provider, profile.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %w", model.ErrStoreUnavailable, err)
	}
	if existing != nil {
		return r.refresh(ctx, existing, profile)
	}

	now := r.now()
	user := &model.User{
		ID:          uuid.New().String(),
		Provider:    profile.Provider,
		ProviderID:  profile.ProviderID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		AvatarURL:   profile.AvatarURL,
		Role:        model.RoleUser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = r.users.Create(ctx, user)
	if err == nil {
		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("provider", string(user.Provider)),
		)
		if r.metrics != nil {
			r.metrics.RecordUserCreated(string(user.Provider))
		}
		return user, nil
	}
	if !errors.Is(err, model.ErrDuplicateOnCreate) {
		return nil, fmt.Errorf("%w: create user: %w", model.ErrStoreUnavailable, err)
	}

	// 同じ外部IDで先に作成されたレコードを採用する
	winner, err := r.users.FindByProvider(ctx, profile.Provider, profile.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user after conflict: %w", model.ErrStoreUnavailable, err)
	}
	if winner == nil {
		return nil, fmt.Errorf("%w: user vanished after duplicate insert", model.ErrStoreUnavailable)
	}

	slog.Info("duplicate first login recovered",
		slog.String("user_id", winner.ID),
		slog.String("provider", string(winner.Provider)),
	)
	if r.metrics != nil {
		r.metrics.RecordDuplicateRecovered(string(winner.Provider))
	}
	return winner, nil
}

// refresh は再ログイン時に表示名・メールアドレス・アバターを更新する。
// 新しいプロフィールに無い項目は既存の値を残す。変更が無ければ書き込まない。
func (r *Resolver) refresh(ctx context.Context, user *model.User, profile *NormalizedProfile) (*model.User, error) {
	updated := *user
	updated.DisplayName = profile.DisplayName
	if profile.Email != nil {
		updated.Email = profile.Email
	}
	if profile.AvatarURL != nil {
		updated.AvatarURL = profile.AvatarURL
	}

	if sameProfile(user, &updated) {
		return user, nil
	}

	updated.UpdatedAt = r.now()
	if err := r.users.UpdateProfile(ctx, &updated); err != nil {
		return nil, fmt.Errorf("%w: update user: %w", model.ErrStoreUnavailable, err)
	}
	return &updated, nil
}

func sameProfile(a, b *model.User) bool {
	return a.DisplayName == b.DisplayName &&
		equalPtr(a.Email, b.Email) &&
		equalPtr(a.AvatarURL, b.AvatarURL)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
