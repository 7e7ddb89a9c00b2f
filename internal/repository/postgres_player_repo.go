package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/cricketstats/internal/model"
)

// PostgresPlayerRepo はPostgreSQLを使用した選手リポジトリ。
type PostgresPlayerRepo struct {
	db *sql.DB
}

// NewPostgresPlayerRepo はPostgresPlayerRepoを生成する。
func NewPostgresPlayerRepo(db *sql.DB) *PostgresPlayerRepo {
	return &PostgresPlayerRepo{db: db}
}

const playerColumns = `id, name, role, matches, runs, wickets, average, strike_rate, image, jersey_number, created_at, updated_at`

// rowScanner は *sql.Row と *sql.Rows の共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(s rowScanner) (*model.Player, error) {
	p := &model.Player{}
	var jersey sql.NullInt64
	err := s.Scan(
		&p.ID, &p.Name, &p.Role, &p.Matches, &p.Runs, &p.Wickets,
		&p.Average, &p.StrikeRate, &p.Image, &jersey, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if jersey.Valid {
		n := int(jersey.Int64)
		p.JerseyNumber = &n
	}
	return p, nil
}

// orderClause は並び順に対応するORDER BY句を返す。
func orderClause(sort model.PlayerSort) string {
	switch sort {
	case model.PlayerSortByRole:
		return `ORDER BY role ASC, name ASC`
	default:
		return `ORDER BY name ASC`
	}
}

// List は選手一覧を指定の並び順で返す。
func (r *PostgresPlayerRepo) List(ctx context.Context, sort model.PlayerSort) ([]*model.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players `+orderClause(sort),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}

	return players, nil
}

// FindByID は指定IDの選手を取得する。見つからない場合はnilを返す。
// UUIDとして不正なIDも見つからない扱いにする。
func (r *PostgresPlayerRepo) FindByID(ctx context.Context, id string) (*model.Player, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	p, err := scanPlayer(r.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player: %w", err)
	}

	return p, nil
}

// Create は選手を作成する。
func (r *PostgresPlayerRepo) Create(ctx context.Context, p *model.Player) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO players (`+playerColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Name, string(p.Role), p.Matches, p.Runs, p.Wickets,
		p.Average, p.StrikeRate, p.Image, jerseyValue(p.JerseyNumber), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

// Update は選手情報を上書き更新する。対象が無い場合はfalseを返す。
func (r *PostgresPlayerRepo) Update(ctx context.Context, p *model.Player) (bool, error) {
	if _, err := uuid.Parse(p.ID); err != nil {
		return false, nil
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE players
		 SET name = $2, role = $3, matches = $4, runs = $5, wickets = $6,
		     average = $7, strike_rate = $8, image = $9, jersey_number = $10, updated_at = $11
		 WHERE id = $1`,
		p.ID, p.Name, string(p.Role), p.Matches, p.Runs, p.Wickets,
		p.Average, p.StrikeRate, p.Image, jerseyValue(p.JerseyNumber), p.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update player: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は指定IDの選手を削除する。対象が無い場合はfalseを返す。
func (r *PostgresPlayerRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM players WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete player: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func jerseyValue(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// compile-time interface check
var _ PlayerRepository = (*PostgresPlayerRepo)(nil)
