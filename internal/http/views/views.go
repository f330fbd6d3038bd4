package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coursehub/internal/models"
	"coursehub/internal/security"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

type FlashSource interface {
	Flashes(w http.ResponseWriter, r *http.Request) []security.Flash
}

// Page is the data every template receives. Data holds the page-specific part.
type Page struct {
	Title   string
	User    *models.User
	Flashes []security.Flash
	Error   string
	Data    any
}

type Renderer struct {
	pages   map[string]*template.Template
	flashes FlashSource
	log     zerolog.Logger
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"megabytes": func(n int64) string {
		return fmt.Sprintf("%d MB", n/(1024*1024))
	},
	"join": strings.Join,
}

// New parses every page against the shared layout.
func New(flashes FlashSource, log zerolog.Logger) (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, flashes: flashes, log: log}, nil
}

// Render writes the named page with status. Flashes are consumed before the
// header is written because popping them updates the session cookie.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := v.pages[name]
	if !ok {
		v.log.Error().Str("template", name).Msg("unknown template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if user, ok := security.UserFromContext(r.Context()); ok {
		page.User = user
	}
	if v.flashes != nil {
		page.Flashes = v.flashes.Flashes(w, r)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		v.log.Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	Status  int
	Message string
}

var errorMessages = map[int]string{
	http.StatusBadRequest:       "The request could not be understood.",
	http.StatusForbidden:        "You do not have permission to access this page.",
	http.StatusNotFound:         "The page you are looking for does not exist.",
	http.StatusMethodNotAllowed: "This method is not allowed for the requested page.",
}

// Error renders the error page for status. 403 and 404 get their own
// templates.
func (v *Renderer) Error(w http.ResponseWriter, r *http.Request, status int) {
	message, ok := errorMessages[status]
	if !ok {
		message = "Something went wrong on our side. Please try again later."
	}

	name := "error"
	switch status {
	case http.StatusForbidden:
		name = "403"
	case http.StatusNotFound:
		name = "404"
	}

	v.Render(w, r, status, name, Page{
		Title: http.StatusText(status),
		Data:  errorPage{Status: status, Message: message},
	})
}

func (v *Renderer) Forbidden() http.Handler {
	return v.statusHandler(http.StatusForbidden)
}

func (v *Renderer) NotFound() http.Handler {
	return v.statusHandler(http.StatusNotFound)
}

func (v *Renderer) MethodNotAllowed() http.Handler {
	return v.statusHandler(http.StatusMethodNotAllowed)
}

func (v *Renderer) InternalError() http.Handler {
	return v.statusHandler(http.StatusInternalServerError)
}

func (v *Renderer) statusHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.Error(w, r, status)
	})
}
