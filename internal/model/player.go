package model

import (
	"strconv"
	"time"
)

// PlayerRole は選手のポジションを表す。
type PlayerRole string

const (
	PlayerRoleBatsman      PlayerRole = "Batsman"
	PlayerRoleBowler       PlayerRole = "Bowler"
	PlayerRoleAllRounder   PlayerRole = "All-Rounder"
	PlayerRoleWicketKeeper PlayerRole = "Wicket-Keeper"
)

// PlayerRoles は選択可能なポジションの一覧。フォームの表示順でもある。
var PlayerRoles = []PlayerRole{
	PlayerRoleBatsman,
	PlayerRoleBowler,
	PlayerRoleAllRounder,
	PlayerRoleWicketKeeper,
}

// Valid は定義済みのポジションかを返す。
func (r PlayerRole) Valid() bool {
	for _, v := range PlayerRoles {
		if r == v {
			return true
		}
	}
	return false
}

// DefaultPlayerImage は画像未指定時に使う選手画像のパス。
const DefaultPlayerImage = "/images/default-player.jpg"

// Player はクリケット選手の成績レコードを表す。
type Player struct {
	ID           string
	Name         string
	Role         PlayerRole
	Matches      int
	Runs         int
	Wickets      int
	Average      float64
	StrikeRate   float64
	Image        string
	JerseyNumber *int // 未設定の場合はnil
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlayerFields は選手の作成・更新フォームの入力値。
// 数値項目も送信された文字列のまま保持し、検証時に変換する。
// 検証エラー時はこの値でフォームを再表示する。
type PlayerFields struct {
	Name         string
	Role         string
	Matches      string
	Runs         string
	Wickets      string
	Average      string
	StrikeRate   string
	Image        string
	JerseyNumber string
}

// FieldsFromPlayer は既存の選手から編集フォームの初期値を作る。
func FieldsFromPlayer(p *Player) PlayerFields {
	f := PlayerFields{
		Name:       p.Name,
		Role:       string(p.Role),
		Matches:    strconv.Itoa(p.Matches),
		Runs:       strconv.Itoa(p.Runs),
		Wickets:    strconv.Itoa(p.Wickets),
		Average:    strconv.FormatFloat(p.Average, 'f', -1, 64),
		StrikeRate: strconv.FormatFloat(p.StrikeRate, 'f', -1, 64),
		Image:      p.Image,
	}
	if p.JerseyNumber != nil {
		f.JerseyNumber = strconv.Itoa(*p.JerseyNumber)
	}
	return f
}

// PlayerSort は選手一覧の並び順を表す。
type PlayerSort string

const (
	// PlayerSortByName は名前の昇順。
	PlayerSortByName PlayerSort = "name"
	// PlayerSortByRole はポジション、名前の昇順。
	PlayerSortByRole PlayerSort = "role"
)
