package model

import "testing"

func TestPlayerRole_Valid(t *testing.T) {
	tests := []struct {
		role PlayerRole
		want bool
	}{
		{PlayerRoleBatsman, true},
		{PlayerRoleBowler, true},
		{PlayerRoleAllRounder, true},
		{PlayerRoleWicketKeeper, true},
		{PlayerRole("Captain"), false},
		{PlayerRole(""), false},
		{PlayerRole("batsman"), false},
	}

	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("PlayerRole(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestNewValidationError_JoinsMessages(t *testing.T) {
	err := NewValidationError([]string{"Player name is required", "Matches cannot be negative"})

	if err.Code != ErrCodeValidationFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeValidationFailed)
	}
	want := "Player name is required, Matches cannot be negative"
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
	if err.Category != "validation" {
		t.Errorf("Category = %q, want %q", err.Category, "validation")
	}
}

func TestUser_IsAdmin(t *testing.T) {
	var nilUser *User
	if nilUser.IsAdmin() {
		t.Error("nil user should not be admin")
	}
	if (&User{Role: RoleUser}).IsAdmin() {
		t.Error("user role should not be admin")
	}
	if !(&User{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin role should be admin")
	}
}

func TestFieldsFromPlayer(t *testing.T) {
	jersey := 18
	p := &Player{
		Name:         "Virat Kohli",
		Role:         PlayerRoleBatsman,
		Matches:      113,
		Runs:         8848,
		Wickets:      0,
		Average:      49.15,
		StrikeRate:   55.6,
		Image:        DefaultPlayerImage,
		JerseyNumber: &jersey,
	}

	f := FieldsFromPlayer(p)

	if f.Matches != "113" || f.Runs != "8848" || f.Wickets != "0" {
		t.Errorf("integer fields = %+v", f)
	}
	if f.Average != "49.15" || f.StrikeRate != "55.6" {
		t.Errorf("float fields = %q, %q", f.Average, f.StrikeRate)
	}
	if f.JerseyNumber != "18" {
		t.Errorf("JerseyNumber = %q, want %q", f.JerseyNumber, "18")
	}

	p.JerseyNumber = nil
	if got := FieldsFromPlayer(p).JerseyNumber; got != "" {
		t.Errorf("JerseyNumber = %q, want empty", got)
	}
}
