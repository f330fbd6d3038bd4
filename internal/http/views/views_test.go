package views

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/models"
	"coursehub/internal/security"
)

type fakeFlashes struct {
	pending []security.Flash
}

func (f *fakeFlashes) Flashes(http.ResponseWriter, *http.Request) []security.Flash {
	out := f.pending
	f.pending = nil
	return out
}

func newRenderer(t *testing.T, flashes ...security.Flash) *Renderer {
	t.Helper()
	r, err := New(&fakeFlashes{pending: flashes}, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func TestAllPagesParse(t *testing.T) {
	r := newRenderer(t)
	for _, name := range []string{
		"index", "register", "login", "users", "admin", "create_course",
		"course", "about", "more", "upload", "upload_video", "uploaded_files", "403", "404", "error",
	} {
		assert.Contains(t, r.pages, name)
	}
	assert.NotContains(t, r.pages, "layout")
}

func TestRenderIncludesFlashesAndUser(t *testing.T) {
	r := newRenderer(t, security.Flash{Category: security.FlashSuccess, Message: "Welcome back <b>!"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(security.WithUser(req.Context(), &models.User{Username: "alice", Role: models.RoleAdmin}))
	rec := httptest.NewRecorder()

	r.Render(rec, req, http.StatusOK, "index", Page{Title: "Home", Data: struct{ Courses []models.Course }{
		Courses: []models.Course{{ID: 3, Name: "Go basics"}},
	}})

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "flash-success")
	assert.Contains(t, body, "Welcome back &lt;b&gt;!")
	assert.Contains(t, body, "Logout (alice)")
	assert.Contains(t, body, `href="/admin"`)
	assert.Contains(t, body, `<a href="/course/3">Go basics</a>`)
}

func TestRenderAnonymousNav(t *testing.T) {
	r := newRenderer(t)
	rec := httptest.NewRecorder()

	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "login", Page{
		Data: struct{ Email, Next string }{Next: "/users"},
	})

	body := rec.Body.String()
	assert.Contains(t, body, `href="/register"`)
	assert.NotContains(t, body, "Logout")
	assert.Contains(t, body, `value="/users"`)
}

func TestErrorPages(t *testing.T) {
	r := newRenderer(t)

	tests := []struct {
		handler http.Handler
		status  int
		text    string
	}{
		{r.Forbidden(), http.StatusForbidden, "403 Forbidden"},
		{r.NotFound(), http.StatusNotFound, "404 Not Found"},
		{r.MethodNotAllowed(), http.StatusMethodNotAllowed, "405 Method Not Allowed"},
		{r.InternalError(), http.StatusInternalServerError, "500 Internal Server Error"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		tt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, tt.status, rec.Code)
		assert.Contains(t, rec.Body.String(), tt.text)
	}
}

func TestUnknownTemplate(t *testing.T) {
	r := newRenderer(t)
	rec := httptest.NewRecorder()

	r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "missing", Page{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
