// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/cricketstats/internal/model"
)

// UserRepository はユーザーデータ（Identity Store）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByProvider はproviderとprovider_idでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByProvider(ctx context.Context, provider model.Provider, providerID string) (*model.User, error)

	// Create はユーザーを作成する。
	// (provider, provider_id) が既に存在する場合は model.ErrDuplicateOnCreate をラップして返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は表示名・メールアドレス・アバターURLを更新する。
	// roleは更新しない。
	UpdateProfile(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// PlayerRepository は選手データの永続化インターフェース。
type PlayerRepository interface {
	// List は選手一覧を指定の並び順で返す。
	List(ctx context.Context, sort model.PlayerSort) ([]*model.Player, error)

	// FindByID は指定IDの選手を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Player, error)

	// Create は選手を作成する。
	Create(ctx context.Context, player *model.Player) error

	// Update は選手情報を上書き更新する。対象が無い場合はfalseを返す。
	Update(ctx context.Context, player *model.Player) (bool, error)

	// Delete は指定IDの選手を削除する。対象が無い場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}
