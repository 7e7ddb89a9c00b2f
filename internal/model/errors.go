// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"strings"
)

// 認証フローのエラー分類。
// 呼び出し側はerrors.Isで判定する。
var (
	// ErrMalformedProfile はIdPのプロフィールに必須項目（provider側ID）が無いことを表す。
	ErrMalformedProfile = errors.New("malformed provider profile")
	// ErrStoreUnavailable はユーザーストアまたはセッションストアへのアクセス失敗を表す。
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDuplicateOnCreate は (provider, provider_id) の一意制約違反を表す。
	// リゾルバー内部で再検索に置き換えられ、呼び出し元には返らない。
	ErrDuplicateOnCreate = errors.New("duplicate identity on create")
	// ErrTokenExchangeFailed は認可コードからトークンへの交換失敗を表す。
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	// ErrProfileFetchFailed はアクセストークンでのプロフィール取得失敗を表す。
	ErrProfileFetchFailed = errors.New("profile fetch failed")
	// ErrSessionInvalid はセッションが存在しない・期限切れ・参照先ユーザーが消えたことを表す。
	// 未ログインと同じに扱い、エラーとして呼び出し元に返さない。
	ErrSessionInvalid = errors.New("session invalid")
)

// APIError は利用者に表示するエラーを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, player, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePlayerNotFound   = "PLAYER_NOT_FOUND"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// NewPlayerNotFoundError は選手未検出エラーを生成する。
func NewPlayerNotFoundError(playerID string) *APIError {
	return &APIError{
		Code:     ErrCodePlayerNotFound,
		Message:  fmt.Sprintf("The requested player could not be found in the team squad: %s", playerID),
		Category: "player",
		Action:   "Go back to the squad list and pick a player from there.",
	}
}

// NewValidationError は入力検証エラーを生成する。
// 複数のメッセージはカンマ区切りで1つのメッセージにまとめる。
func NewValidationError(messages []string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  strings.Join(messages, ", "),
		Category: "validation",
		Action:   "Correct the highlighted fields and submit the form again.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Admin privileges required",
		Category: "auth",
		Action:   "Ask an administrator to perform this operation.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Please log in again.",
	}
}
