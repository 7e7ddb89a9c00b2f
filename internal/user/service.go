// Package user はユーザーの権限管理を提供する。
// OAuthのログインフローは権限を変更しないため、管理者の付与と剥奪は運用コマンドから行う。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cricketstats/internal/model"
)

// RoleStore はユーザー権限の取得と更新のインターフェース。
type RoleStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role) (bool, error)
}

// Service はユーザー権限管理のサービス層。
type Service struct {
	users RoleStore
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users RoleStore) *Service {
	return &Service{users: users}
}

// SetRole はユーザーの権限を変更し、変更後のユーザーを返す。
// セッションはユーザーIDのみを保持するため、変更は次のリクエストから反映される。
func (s *Service) SetRole(ctx context.Context, userID string, role model.Role) (*model.User, error) {
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if user.Role == role {
		slog.Info("user role unchanged",
			slog.String("user_id", userID),
			slog.String("role", string(role)),
		)
		return user, nil
	}

	ok, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	if !ok {
		// 検索と更新の間に削除された
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user role changed",
		slog.String("user_id", userID),
		slog.String("from", string(user.Role)),
		slog.String("to", string(role)),
	)

	user.Role = role
	return user, nil
}
