// Package model はドメインモデルを定義する。
package model

import "time"

// Provider は外部IdPの識別子を表す。
type Provider string

const (
	// ProviderGoogle はGoogle OAuth。
	ProviderGoogle Provider = "google"
	// ProviderGitHub はGitHub OAuth。
	ProviderGitHub Provider = "github"
	// ProviderDemo は外部IdPを使わないローカル検証用のログイン。
	ProviderDemo Provider = "demo"
)

// Role はユーザーの権限を表す。
type Role string

const (
	// RoleUser は一般ユーザー。新規作成時のデフォルト。
	RoleUser Role = "user"
	// RoleAdmin は管理者。OAuthフローからは設定されない。
	RoleAdmin Role = "admin"
)

// User はサービス利用ユーザーを表す。
// (Provider, ProviderID) の組はユーザー全体で一意。Emailは一意キーではない。
type User struct {
	ID          string
	Provider    Provider
	ProviderID  string
	DisplayName string
	Email       *string // IdPが返さない場合はnil
	AvatarURL   *string // IdPが返さない場合はnil
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAdmin は管理者権限を持つかを返す。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Session はユーザーのログインセッションを表す。
// ユーザーIDのみを保持し、ユーザー情報はリクエストごとに再取得する。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
