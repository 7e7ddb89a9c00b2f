package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/cricketstats/internal/middleware"
	"github.com/hitoshi/cricketstats/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ページテンプレート名。templates/ 配下のファイル名に対応する。
const (
	pageIndex      = "index.html"
	pagePlayers    = "players.html"
	pagePlayer     = "player.html"
	pagePlayerForm = "player_form.html"
	pageLogin      = "login.html"
	pageError      = "error.html"
)

// viewData はテンプレートに渡す値。
// User、IsAuthenticated、IsAdmin、CSRFTokenはRendererがリクエストから埋める。
type viewData struct {
	Title string
	Page  string

	User            *model.User
	IsAuthenticated bool
	IsAdmin         bool
	CSRFToken       string

	Players []*model.Player
	Player  *model.Player

	Heading    string
	Form       model.PlayerFields
	FormAction string
	CancelPath string
	Roles      []model.PlayerRole

	Providers []providerLink
	Error     string
	Message   string
}

// providerLink はログインページに並べるプロバイダーのリンク。
type providerLink struct {
	Name  string
	Label string
}

var templateFuncs = template.FuncMap{
	"jersey": func(n *int) string {
		if n == nil {
			return "-"
		}
		return strconv.Itoa(*n)
	},
	"decimal": func(f float64) string {
		return strconv.FormatFloat(f, 'f', 2, 64)
	},
}

// Renderer は埋め込みテンプレートからHTMLページを描画する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は全ページのテンプレートを解析する。
func NewRenderer() (*Renderer, error) {
	names := []string{pageIndex, pagePlayers, pagePlayer, pagePlayerForm, pageLogin, pageError}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/cards.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// MustNewRenderer はNewRendererの失敗時にpanicする。埋め込みテンプレートのみを扱うため起動時に使う。
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render はページを描画する。描画に失敗した場合は500を返す。
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data viewData) {
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		data.User = user
		data.IsAuthenticated = true
		data.IsAdmin = user.IsAdmin()
	}
	data.CSRFToken = middleware.CSRFTokenFromContext(r.Context())

	t, ok := rd.pages[page]
	if !ok {
		slog.Error("unknown template", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// RenderError はエラーページを描画する。
func (rd *Renderer) RenderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	rd.Render(w, r, status, pageError, viewData{
		Title:   title,
		Page:    "error",
		Message: message,
	})
}

// NotFound は未定義ルートの404ページを返す。
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.RenderError(w, r, http.StatusNotFound, "Page Not Found", "The page you are looking for does not exist.")
}

// InternalError はpanic復旧時などに使う500ページを返す。
func (rd *Renderer) InternalError(w http.ResponseWriter, r *http.Request) {
	rd.RenderError(w, r, http.StatusInternalServerError, "Something Went Wrong", "An unexpected error occurred. Please try again later.")
}

// staticHandler は埋め込みの静的ファイルを配信する。
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// defaultPlayerImage は選手画像の既定パスに埋め込みのシルエット画像を返す。
func defaultPlayerImage(w http.ResponseWriter, r *http.Request) {
	body, err := staticFS.ReadFile("static/default-player.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(body)
}
