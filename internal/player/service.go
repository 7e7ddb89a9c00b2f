// Package player は選手データ管理のドメインロジックを提供する。
package player

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/cricketstats/internal/model"
	"github.com/hitoshi/cricketstats/internal/repository"
	"github.com/hitoshi/cricketstats/internal/security"
)

const (
	minJerseyNumber = 1
	maxJerseyNumber = 99
)

// Service は選手データのサービス層。
// 入力の無害化と検証を行い、検証エラーは model.APIError で返す。
type Service struct {
	repo      repository.PlayerRepository
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.PlayerRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// List は選手一覧を指定の並び順で返す。
func (s *Service) List(ctx context.Context, sort model.PlayerSort) ([]*model.Player, error) {
	players, err := s.repo.List(ctx, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// Get は選手を1件返す。存在しない場合は PLAYER_NOT_FOUND を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Player, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}
	if p == nil {
		return nil, model.NewPlayerNotFoundError(id)
	}
	return p, nil
}

// Create は入力を検証して選手を登録する。
func (s *Service) Create(ctx context.Context, fields model.PlayerFields) (*model.Player, error) {
	p, messages := s.build(fields)
	if len(messages) > 0 {
		return nil, model.NewValidationError(messages)
	}

	now := s.now()
	p.ID = uuid.New().String()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	slog.Info("player created",
		slog.String("player_id", p.ID),
		slog.String("role", string(p.Role)),
	)
	return p, nil
}

// Update は入力を検証して選手を更新する。
// 画像が未入力の場合は既存の画像を引き継ぐ。
func (s *Service) Update(ctx context.Context, id string, fields model.PlayerFields) (*model.Player, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p, messages := s.build(fields)
	if len(messages) > 0 {
		return nil, model.NewValidationError(messages)
	}

	p.ID = current.ID
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = s.now()
	if strings.TrimSpace(fields.Image) == "" {
		p.Image = current.Image
	}

	found, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	if !found {
		return nil, model.NewPlayerNotFoundError(id)
	}

	slog.Info("player updated", slog.String("player_id", p.ID))
	return p, nil
}

// Delete は選手を削除する。存在しない場合は PLAYER_NOT_FOUND を返す。
func (s *Service) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if !found {
		return model.NewPlayerNotFoundError(id)
	}

	slog.Info("player deleted", slog.String("player_id", id))
	return nil
}

// build は入力値を無害化・変換し、検証エラーのメッセージを項目順に集める。
func (s *Service) build(f model.PlayerFields) (*model.Player, []string) {
	var messages []string
	p := &model.Player{}

	p.Name = s.sanitizer.Clean(f.Name)
	if p.Name == "" {
		messages = append(messages, "Player name is required")
	}

	role := strings.TrimSpace(f.Role)
	p.Role = model.PlayerRole(role)
	switch {
	case role == "":
		messages = append(messages, "Player role is required")
	case !p.Role.Valid():
		messages = append(messages, fmt.Sprintf("%q is not a valid player role", s.sanitizer.Clean(role)))
	}

	if strings.TrimSpace(f.Matches) == "" {
		messages = append(messages, "Matches played is required")
	} else {
		p.Matches = parseCount(f.Matches, "Matches", &messages)
	}

	p.Runs = parseCount(f.Runs, "Runs", &messages)
	p.Wickets = parseCount(f.Wickets, "Wickets", &messages)
	p.Average = parseDecimal(f.Average, "Average", &messages)
	p.StrikeRate = parseDecimal(f.StrikeRate, "Strike rate", &messages)

	p.Image = model.DefaultPlayerImage
	if image, ok := s.sanitizer.CleanImageURL(f.Image); !ok {
		messages = append(messages, "Image must be a site path or an http(s) URL")
	} else if image != "" {
		p.Image = image
	}

	if v := strings.TrimSpace(f.JerseyNumber); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			messages = append(messages, "Jersey number must be a whole number")
		case n < minJerseyNumber:
			messages = append(messages, "Jersey number must be at least 1")
		case n > maxJerseyNumber:
			messages = append(messages, "Jersey number cannot exceed 99")
		default:
			p.JerseyNumber = &n
		}
	}

	return p, messages
}

// parseCount は0以上の整数項目を変換する。未入力は0。
func parseCount(raw, label string, messages *[]string) int {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*messages = append(*messages, label+" must be a whole number")
		return 0
	}
	if n < 0 {
		*messages = append(*messages, label+" cannot be negative")
		return 0
	}
	return n
}

// parseDecimal は小数項目を変換する。未入力は0。
func parseDecimal(raw, label string, messages *[]string) float64 {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*messages = append(*messages, label+" must be a number")
		return 0
	}
	return f
}
