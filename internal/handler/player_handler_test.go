package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/cricketstats/internal/model"
)

func TestPlayerHandler_Show_AdminSeesDeleteForm(t *testing.T) {
	svc := &mockPlayerService{
		getFn: func(ctx context.Context, id string) (*model.Player, error) {
			if id != testPlayerID {
				t.Errorf("id = %q, want %q", id, testPlayerID)
			}
			return samplePlayer(), nil
		},
	}
	h := NewPlayerHandler(svc, testRenderer(t))

	tests := []struct {
		name       string
		user       *model.User
		wantEdit   bool
		wantDelete bool
	}{
		{"anonymous", nil, false, false},
		{"user", testUser, true, false},
		{"admin", testAdmin, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/players/"+testPlayerID, nil), "id", testPlayerID)
			if tt.user != nil {
				req = withUser(req, tt.user)
			}
			w := httptest.NewRecorder()
			h.Show(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			b := w.Body.String()
			if got := strings.Contains(b, "/edit"); got != tt.wantEdit {
				t.Errorf("edit link shown = %v, want %v", got, tt.wantEdit)
			}
			if got := strings.Contains(b, "/delete"); got != tt.wantDelete {
				t.Errorf("delete form shown = %v, want %v", got, tt.wantDelete)
			}
			if !strings.Contains(b, "#93") {
				t.Error("jersey number should be shown")
			}
		})
	}
}

func TestPlayerHandler_Delete_NotFound(t *testing.T) {
	svc := &mockPlayerService{
		deleteFn: func(ctx context.Context, id string) error {
			return model.NewPlayerNotFoundError(id)
		},
	}
	h := NewPlayerHandler(svc, testRenderer(t))

	req := withChiURLParam(httptest.NewRequest(http.MethodPost, "/players/gone/delete", nil), "id", "gone")
	w := httptest.NewRecorder()
	h.Delete(w, withUser(req, testAdmin))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if !strings.Contains(w.Body.String(), "does not exist") {
		t.Error("expected not found message")
	}
}

func TestPlayerHandler_Delete_StoreFailure(t *testing.T) {
	svc := &mockPlayerService{
		deleteFn: func(ctx context.Context, id string) error {
			return errors.New("store unavailable")
		},
	}
	h := NewPlayerHandler(svc, testRenderer(t))

	req := withChiURLParam(httptest.NewRequest(http.MethodPost, "/players/p/delete", nil), "id", "p")
	w := httptest.NewRecorder()
	h.Delete(w, withUser(req, testAdmin))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestFieldsFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/players",
		strings.NewReader("name=Rishabh+Pant&role=Wicket-Keeper&matches=33&runs=2271&wickets=0&average=43.67&strikeRate=73.63&image=%2Fimg%2Fpant.jpg&jerseyNumber=17"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	got := fieldsFromRequest(req)
	want := model.PlayerFields{
		Name: "Rishabh Pant", Role: "Wicket-Keeper", Matches: "33", Runs: "2271", Wickets: "0",
		Average: "43.67", StrikeRate: "73.63", Image: "/img/pant.jpg", JerseyNumber: "17",
	}
	if got != want {
		t.Errorf("fieldsFromRequest() = %+v, want %+v", got, want)
	}
}
