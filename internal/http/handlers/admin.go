package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"coursehub/internal/db"
	"coursehub/internal/http/views"
	"coursehub/internal/models"
	"coursehub/internal/security"
	"coursehub/internal/service"
	"coursehub/internal/storage"
)

type AdminHandler struct {
	auth     *service.AuthService
	catalog  *service.CatalogService
	files    *storage.Store
	sessions *security.SessionStore
	views    *views.Renderer
	log      zerolog.Logger
}

func NewAdminHandler(auth *service.AuthService, catalog *service.CatalogService, files *storage.Store, sessions *security.SessionStore, v *views.Renderer, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		auth:     auth,
		catalog:  catalog,
		files:    files,
		sessions: sessions,
		views:    v,
		log:      log,
	}
}

type usersData struct {
	Users []models.User
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list users failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	h.views.Render(w, r, http.StatusOK, "users", views.Page{
		Title: "Users",
		Data:  usersData{Users: users},
	})
}

type dashboardData struct {
	UserCount   int64
	CourseCount int64
	FileCount   int
	Courses     []models.Course
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data dashboardData
	var err error

	if data.UserCount, err = h.auth.CountUsers(ctx); err != nil {
		h.serverError(w, r, err, "count users failed")
		return
	}
	if data.CourseCount, err = h.catalog.CountCourses(ctx); err != nil {
		h.serverError(w, r, err, "count courses failed")
		return
	}
	if data.Courses, err = h.catalog.ListCourses(ctx); err != nil {
		h.serverError(w, r, err, "list courses failed")
		return
	}
	files, err := h.files.List()
	if err != nil {
		h.serverError(w, r, err, "list files failed")
		return
	}
	data.FileCount = len(files)

	h.views.Render(w, r, http.StatusOK, "admin", views.Page{Title: "Admin", Data: data})
}

func (h *AdminHandler) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.log.Error().Err(err).Msg(msg)
	h.views.Error(w, r, http.StatusInternalServerError)
}

func (h *AdminHandler) CreateCourseForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "create_course", views.Page{
		Title: "Create course",
		Data:  service.CourseInput{},
	})
}

func (h *AdminHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	input := service.CourseInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}

	course, err := h.catalog.CreateCourse(r.Context(), input)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			h.views.Render(w, r, http.StatusBadRequest, "create_course", views.Page{
				Title: "Create course",
				Error: vErr.Message,
				Data:  input,
			})
			return
		}
		h.log.Error().Err(err).Msg("create course failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	h.log.Info().Uint("course_id", course.ID).Msg("course created")
	_ = h.sessions.AddFlash(w, r, security.FlashSuccess, fmt.Sprintf("Course %q created.", course.Name))
	http.Redirect(w, r, fmt.Sprintf("/course/%d", course.ID), http.StatusSeeOther)
}

func (h *AdminHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.views.Error(w, r, http.StatusNotFound)
		return
	}

	if err := h.catalog.DeleteCourse(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.views.Error(w, r, http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Uint("course_id", id).Msg("delete course failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	h.log.Info().Uint("course_id", id).Msg("course deleted")
	_ = h.sessions.AddFlash(w, r, security.FlashSuccess, "Course deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
