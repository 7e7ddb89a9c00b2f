package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/cricketstats/internal/model"
	"github.com/hitoshi/cricketstats/internal/repository"
)

// SessionCodec はログインユーザーとセッショントークンを相互に変換する。
// セッションにはユーザーIDだけを保存し、ユーザー情報はリクエストごとに再取得する。
type SessionCodec struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionCodec はSessionCodecを生成する。
func NewSessionCodec(sessions repository.SessionRepository, users repository.UserRepository, ttl time.Duration) *SessionCodec {
	return &SessionCodec{
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Establish はユーザーのセッションを発行する。有効期限は発行時刻から固定。
func (c *SessionCodec) Establish(ctx context.Context, user *model.User) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := c.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: now.Add(c.ttl),
		CreatedAt: now,
	}

	if err := c.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: save session: %w", model.ErrStoreUnavailable, err)
	}

	return session, nil
}

// Resolve はセッショントークンからユーザーを復元する。
// セッションが無い・期限切れ・ユーザーが削除済み・ストア障害のいずれも (nil, false) を返し、
// エラーにはしない。
func (c *SessionCodec) Resolve(ctx context.Context, token string) (*model.User, bool) {
	if token == "" {
		return nil, false
	}

	session, err := c.sessions.FindByID(ctx, token)
	if err != nil {
		slog.Warn("session lookup failed, treating as anonymous",
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if session == nil || !session.ExpiresAt.After(c.now()) {
		return nil, false
	}

	user, err := c.users.FindByID(ctx, session.UserID)
	if err != nil {
		slog.Warn("session user lookup failed, treating as anonymous",
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if user == nil {
		return nil, false
	}

	return user, true
}

// Destroy はセッションを破棄する。
func (c *SessionCodec) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := c.sessions.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
