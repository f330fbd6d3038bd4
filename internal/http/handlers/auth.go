package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"coursehub/internal/db"
	"coursehub/internal/http/views"
	"coursehub/internal/metrics"
	"coursehub/internal/security"
	"coursehub/internal/service"
)

type AuthHandler struct {
	auth     *service.AuthService
	sessions *security.SessionStore
	views    *views.Renderer
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewAuthHandler(auth *service.AuthService, sessions *security.SessionStore, v *views.Renderer, m *metrics.Metrics, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		views:    v,
		metrics:  m,
		log:      log,
	}
}

type registerForm struct {
	Username string
	Email    string
}

type loginForm struct {
	Email string
	Next  string
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "register", views.Page{
		Title: "Register",
		Data:  registerForm{},
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.views.Error(w, r, http.StatusBadRequest)
		return
	}

	input := service.RegisterInput{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	form := registerForm{Username: strings.TrimSpace(input.Username), Email: strings.TrimSpace(input.Email)}

	renderErr := func(status int, message string) {
		h.views.Render(w, r, status, "register", views.Page{Title: "Register", Error: message, Data: form})
	}

	if input.Password != r.PostFormValue("confirm_password") {
		renderErr(http.StatusBadRequest, "Passwords must match.")
		return
	}

	user, err := h.auth.Register(r.Context(), input)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			renderErr(http.StatusBadRequest, vErr.Message)
		case errors.Is(err, db.ErrDuplicateKey):
			renderErr(http.StatusConflict, "That username or email is already registered.")
		default:
			h.log.Error().Err(err).Msg("register failed")
			h.views.Error(w, r, http.StatusInternalServerError)
		}
		return
	}

	_ = h.sessions.AddFlash(w, r, security.FlashSuccess,
		fmt.Sprintf("Account created for %s. You can now log in.", user.Username))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := security.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.views.Render(w, r, http.StatusOK, "login", views.Page{
		Title: "Log in",
		Data:  loginForm{Next: safeNext(r.URL.Query().Get("next"))},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.views.Error(w, r, http.StatusBadRequest)
		return
	}

	next := safeNext(r.PostFormValue("next"))
	user, err := h.auth.Authenticate(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.metrics.Login(false)
			_ = h.sessions.AddFlash(w, r, security.FlashError, "Login unsuccessful. Please check email and password.")
			target := "/login"
			if next != "" {
				target += "?next=" + url.QueryEscape(next)
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		h.log.Error().Err(err).Msg("authenticate failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Login(w, r, user); err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("create session failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}
	h.metrics.Login(true)
	h.log.Info().Uint("user_id", user.ID).Msg("user logged in")

	_ = h.sessions.AddFlash(w, r, security.FlashSuccess, "You have been logged in.")
	if next == "" {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	_ = h.sessions.AddFlash(w, r, security.FlashInfo, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
