package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"coursehub/internal/db"
	"coursehub/internal/http/views"
	"coursehub/internal/models"
	"coursehub/internal/security"
	"coursehub/internal/service"
)

type PageHandler struct {
	catalog  *service.CatalogService
	sessions *security.SessionStore
	views    *views.Renderer
	log      zerolog.Logger
}

func NewPageHandler(catalog *service.CatalogService, sessions *security.SessionStore, v *views.Renderer, log zerolog.Logger) *PageHandler {
	return &PageHandler{
		catalog:  catalog,
		sessions: sessions,
		views:    v,
		log:      log,
	}
}

type homeData struct {
	Courses []models.Course
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	courses, err := h.catalog.ListCourses(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list courses failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	h.views.Render(w, r, http.StatusOK, "index", views.Page{
		Title: "Home",
		Data:  homeData{Courses: courses},
	})
}

func (h *PageHandler) About(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "about", views.Page{Title: "About"})
}

func (h *PageHandler) More(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "more", views.Page{Title: "More"})
}

// Submit handles the greeting form on the home page.
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		_ = h.sessions.AddFlash(w, r, security.FlashError, "Name is required.")
	} else {
		_ = h.sessions.AddFlash(w, r, security.FlashSuccess, fmt.Sprintf("Hello, %s!", name))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type courseData struct {
	Course *models.Course
}

func (h *PageHandler) Course(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.views.Error(w, r, http.StatusNotFound)
		return
	}

	course, err := h.catalog.GetCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.views.Error(w, r, http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Uint("course_id", id).Msg("get course failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	h.views.Render(w, r, http.StatusOK, "course", views.Page{
		Title: course.Name,
		Data:  courseData{Course: course},
	})
}
