package router

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"coursehub/internal/config"
	"coursehub/internal/db"
	"coursehub/internal/http/handlers"
	"coursehub/internal/http/middleware"
	"coursehub/internal/http/views"
	"coursehub/internal/metrics"
	"coursehub/internal/models"
	"coursehub/internal/security"
	"coursehub/internal/service"
	"coursehub/internal/storage"
)

// Deps is everything the routes need. Metrics may be nil.
type Deps struct {
	Config   *config.Config
	DB       *db.DB
	Sessions *security.SessionStore
	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Files    *storage.Store
	Views    *views.Renderer
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

// NewDeps builds the services and views on top of an open database. cache
// may be nil.
func NewDeps(cfg *config.Config, database *db.DB, cache service.CourseCache, m *metrics.Metrics, log zerolog.Logger) (Deps, error) {
	files, err := storage.New(cfg.UploadDir, cfg.MaxUploadBytes, cfg.StreamChunkSize)
	if err != nil {
		return Deps{}, err
	}

	sessions := security.NewSessionStore(database, cfg.Secret, cfg.SessionTTL, cfg.SecureCookies)
	renderer, err := views.New(sessions, log)
	if err != nil {
		return Deps{}, fmt.Errorf("load templates: %w", err)
	}

	return Deps{
		Config:   cfg,
		DB:       database,
		Sessions: sessions,
		Auth:     service.NewAuthService(database, log),
		Catalog:  service.NewCatalogService(database, files, cache, log),
		Files:    files,
		Views:    renderer,
		Metrics:  m,
		Log:      log,
	}, nil
}

func Setup(d Deps) http.Handler {
	r := mux.NewRouter()

	identify := middleware.Identify(d.Sessions, d.Log)
	r.Use(identify)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.NotFoundHandler = identify(d.Views.NotFound())
	r.MethodNotAllowedHandler = identify(d.Views.MethodNotAllowed())

	loginRequired := middleware.RequireLogin(d.Sessions)
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return loginRequired(middleware.RequireRole(models.RoleAdmin, d.Views.Forbidden())(h))
	}
	authenticated := func(h http.HandlerFunc) http.Handler {
		return loginRequired(h)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.Auth, d.Sessions, d.Views, d.Metrics, d.Log)
	pageHandler := handlers.NewPageHandler(d.Catalog, d.Sessions, d.Views, d.Log)
	adminHandler := handlers.NewAdminHandler(d.Auth, d.Catalog, d.Files, d.Sessions, d.Views, d.Log)
	fileHandler := handlers.NewFileHandler(d.Files, d.Catalog, d.Sessions, d.Views, d.Metrics,
		config.Extensions(d.Config.AllowedExtensions), config.Extensions(d.Config.VideoExtensions), d.Log)
	healthHandler := handlers.NewHealthHandler(d.DB)

	r.HandleFunc("/", pageHandler.Home).Methods(http.MethodGet)
	r.HandleFunc("/about", pageHandler.About).Methods(http.MethodGet)
	r.HandleFunc("/more", pageHandler.More).Methods(http.MethodGet)
	r.HandleFunc("/submit", pageHandler.Submit).Methods(http.MethodPost)
	r.HandleFunc("/healthz", healthHandler.Health).Methods(http.MethodGet)
	if d.Metrics != nil && d.Config.MetricsEnabled {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/register", authHandler.RegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", authHandler.LoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodGet)

	r.Handle("/users", authenticated(adminHandler.Users)).Methods(http.MethodGet)
	r.Handle("/admin", adminOnly(adminHandler.Dashboard)).Methods(http.MethodGet)
	r.Handle("/create_course", adminOnly(adminHandler.CreateCourseForm)).Methods(http.MethodGet)
	r.Handle("/create_course", adminOnly(adminHandler.CreateCourse)).Methods(http.MethodPost)
	r.Handle("/course/{id:[0-9]+}", authenticated(pageHandler.Course)).Methods(http.MethodGet)
	r.Handle("/course/{id:[0-9]+}/delete", adminOnly(adminHandler.DeleteCourse)).Methods(http.MethodPost)

	r.Handle("/upload", authenticated(fileHandler.UploadForm)).Methods(http.MethodGet)
	r.Handle("/upload", authenticated(fileHandler.Upload)).Methods(http.MethodPost)
	r.Handle("/upload_video", adminOnly(fileHandler.UploadVideoForm)).Methods(http.MethodGet)
	r.Handle("/upload_video", adminOnly(fileHandler.UploadVideo)).Methods(http.MethodPost)
	r.Handle("/uploads/{filename}", authenticated(fileHandler.Serve)).Methods(http.MethodGet)
	r.Handle("/uploaded_files", authenticated(fileHandler.List)).Methods(http.MethodGet)
	r.Handle("/stream/{filename}", authenticated(fileHandler.Stream)).Methods(http.MethodGet)

	var h http.Handler = r
	h = middleware.Logger(d.Log)(h)
	h = middleware.Recovery(d.Log, d.Views.InternalError())(h)
	h = middleware.RequestID(h)
	return h
}
