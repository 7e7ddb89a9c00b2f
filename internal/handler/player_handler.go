package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cricketstats/internal/model"
)

// PlayerServiceInterface は選手ハンドラーが必要とするサービスインターフェース。
type PlayerServiceInterface interface {
	List(ctx context.Context, sort model.PlayerSort) ([]*model.Player, error)
	Get(ctx context.Context, id string) (*model.Player, error)
	Create(ctx context.Context, fields model.PlayerFields) (*model.Player, error)
	Update(ctx context.Context, id string, fields model.PlayerFields) (*model.Player, error)
	Delete(ctx context.Context, id string) error
}

// PlayerHandler は選手ページのHTTPハンドラー。
type PlayerHandler struct {
	service PlayerServiceInterface
	render  *Renderer
}

// NewPlayerHandler はPlayerHandlerを生成する。
func NewPlayerHandler(service PlayerServiceInterface, render *Renderer) *PlayerHandler {
	return &PlayerHandler{service: service, render: render}
}

// List はポジション、名前順の選手一覧を表示する。
// GET /players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.List(r.Context(), model.PlayerSortByRole)
	if err != nil {
		h.serverError(w, r, err, "Error - Player Data", "Failed to load player statistics. Please try again later.")
		return
	}

	h.render.Render(w, r, http.StatusOK, pagePlayers, viewData{
		Title:   "Team Squad - Player Statistics",
		Page:    "players",
		Players: players,
	})
}

// New は選手追加フォームを表示する。
// GET /players/new
func (h *PlayerHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "", model.PlayerFields{}, "")
}

// Create は選手追加フォームの送信を処理する。
// POST /players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields := fieldsFromRequest(r)

	if _, err := h.service.Create(r.Context(), fields); err != nil {
		if apiErr, ok := validationError(err); ok {
			h.renderForm(w, r, http.StatusUnprocessableEntity, "", fields, apiErr.Message)
			return
		}
		h.serverError(w, r, err, "Error - Add Player", "Failed to add new player. Please try again.")
		return
	}

	http.Redirect(w, r, "/players", http.StatusSeeOther)
}

// Show は選手の詳細を表示する。
// GET /players/{id}
func (h *PlayerHandler) Show(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.lookupError(w, r, err, "The requested player could not be found in the team squad.",
			"Error - Player Profile", "Failed to load player profile. Please try again.")
		return
	}

	h.render.Render(w, r, http.StatusOK, pagePlayer, viewData{
		Title:  "Player Profile - " + p.Name,
		Page:   "player-details",
		Player: p,
	})
}

// Edit は選手編集フォームを表示する。
// GET /players/{id}/edit
func (h *PlayerHandler) Edit(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.lookupError(w, r, err, "The player you are trying to edit does not exist.",
			"Error - Edit Player", "Failed to load player for editing. Please try again.")
		return
	}

	h.renderForm(w, r, http.StatusOK, p.ID, model.FieldsFromPlayer(p), "")
}

// Update は選手編集フォームの送信を処理する。
// POST /players/{id}, PUT /players/{id}
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fields := fieldsFromRequest(r)

	p, err := h.service.Update(r.Context(), id, fields)
	if err != nil {
		if apiErr, ok := validationError(err); ok {
			h.renderForm(w, r, http.StatusUnprocessableEntity, id, fields, apiErr.Message)
			return
		}
		h.lookupError(w, r, err, "The player you are trying to update does not exist.",
			"Error - Update Player", "Failed to update player. Please try again.")
		return
	}

	http.Redirect(w, r, "/players/"+p.ID, http.StatusSeeOther)
}

// Delete は選手を削除する。管理者のみ。
// POST /players/{id}/delete, DELETE /players/{id}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.lookupError(w, r, err, "The player you are trying to delete does not exist.",
			"Error - Delete Player", "Failed to delete player. Please try again.")
		return
	}

	http.Redirect(w, r, "/players", http.StatusSeeOther)
}

// Forbidden は権限不足の403ページを表示する。
func (h *PlayerHandler) Forbidden(w http.ResponseWriter, r *http.Request) {
	apiErr := model.NewForbiddenError()
	h.render.RenderError(w, r, http.StatusForbidden, "Access Denied", apiErr.Message)
}

// renderForm は追加（idが空）または編集のフォームを描画する。
func (h *PlayerHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, id string, fields model.PlayerFields, errMsg string) {
	data := viewData{
		Title:      "Add New Player - Team Management",
		Page:       "add-player",
		Heading:    "Add New Player",
		Form:       fields,
		FormAction: "/players",
		CancelPath: "/players",
		Roles:      model.PlayerRoles,
		Error:      errMsg,
	}
	if id != "" {
		data.Title = "Edit Player - " + fields.Name
		data.Page = "edit-player"
		data.Heading = "Edit Player"
		data.FormAction = "/players/" + id
		data.CancelPath = "/players/" + id
	}
	h.render.Render(w, r, status, pagePlayerForm, data)
}

// lookupError は未検出を404ページ、それ以外を500ページとして描画する。
func (h *PlayerHandler) lookupError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg, title, msg string) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodePlayerNotFound {
		h.render.RenderError(w, r, http.StatusNotFound, "Player Not Found", notFoundMsg)
		return
	}
	h.serverError(w, r, err, title, msg)
}

func (h *PlayerHandler) serverError(w http.ResponseWriter, r *http.Request, err error, title, msg string) {
	slog.Error("player request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	h.render.RenderError(w, r, http.StatusInternalServerError, title, msg)
}

// validationError は入力検証エラーの場合にAPIErrorを返す。
func validationError(err error) (*model.APIError, bool) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeValidationFailed {
		return apiErr, true
	}
	return nil, false
}

// fieldsFromRequest はフォームの入力値を取り出す。
func fieldsFromRequest(r *http.Request) model.PlayerFields {
	return model.PlayerFields{
		Name:         r.PostFormValue("name"),
		Role:         r.PostFormValue("role"),
		Matches:      r.PostFormValue("matches"),
		Runs:         r.PostFormValue("runs"),
		Wickets:      r.PostFormValue("wickets"),
		Average:      r.PostFormValue("average"),
		StrikeRate:   r.PostFormValue("strikeRate"),
		Image:        r.PostFormValue("image"),
		JerseyNumber: r.PostFormValue("jerseyNumber"),
	}
}
