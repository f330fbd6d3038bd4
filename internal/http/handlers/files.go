package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"coursehub/internal/db"
	"coursehub/internal/http/views"
	"coursehub/internal/metrics"
	"coursehub/internal/models"
	"coursehub/internal/security"
	"coursehub/internal/service"
	"coursehub/internal/storage"
)

// parseMemory is how much of a multipart body is buffered in memory before
// spilling to temp files.
const parseMemory = 8 << 20

type FileHandler struct {
	files    *storage.Store
	catalog  *service.CatalogService
	sessions *security.SessionStore
	views    *views.Renderer
	metrics  *metrics.Metrics
	allowed  []string
	videos   []string
	log      zerolog.Logger
}

func NewFileHandler(files *storage.Store, catalog *service.CatalogService, sessions *security.SessionStore, v *views.Renderer, m *metrics.Metrics, allowed, videos []string, log zerolog.Logger) *FileHandler {
	return &FileHandler{
		files:    files,
		catalog:  catalog,
		sessions: sessions,
		views:    v,
		metrics:  m,
		allowed:  allowed,
		videos:   videos,
		log:      log,
	}
}

type uploadData struct {
	Allowed []string
	MaxSize int64
}

func (h *FileHandler) UploadForm(w http.ResponseWriter, r *http.Request) {
	h.renderUpload(w, r, http.StatusOK, "")
}

func (h *FileHandler) renderUpload(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.views.Render(w, r, status, "upload", views.Page{
		Title: "Upload",
		Error: message,
		Data:  uploadData{Allowed: h.allowed, MaxSize: h.files.MaxSize()},
	})
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxSize()+multipartOverhead)

	if err := r.ParseMultipartForm(parseMemory); err != nil {
		if isTooLarge(err) {
			h.metrics.Upload("file", "too_large")
			h.renderUpload(w, r, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		h.renderUpload(w, r, http.StatusBadRequest, "The upload could not be read.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderUpload(w, r, http.StatusBadRequest, "No file selected.")
		return
	}
	defer file.Close()

	name, err := h.files.Save(header.Filename, file, h.allowed)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidFile):
			h.metrics.Upload("file", "rejected")
			h.renderUpload(w, r, http.StatusBadRequest,
				fmt.Sprintf("File type not allowed. Allowed types: %s.", strings.Join(h.allowed, ", ")))
		case errors.Is(err, storage.ErrPayloadTooLarge):
			h.metrics.Upload("file", "too_large")
			h.renderUpload(w, r, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		default:
			h.log.Error().Err(err).Msg("save upload failed")
			h.views.Error(w, r, http.StatusInternalServerError)
		}
		return
	}

	h.metrics.Upload("file", "stored")
	h.log.Info().Str("filename", name).Msg("file uploaded")
	_ = h.sessions.AddFlash(w, r, security.FlashSuccess, "File uploaded successfully.")
	http.Redirect(w, r, "/uploads/"+url.PathEscape(name), http.StatusSeeOther)
}

func (h *FileHandler) tooLargeMessage() string {
	return fmt.Sprintf("File is larger than the %d MB limit.", h.files.MaxSize()/(1024*1024))
}

// Serve returns a stored file as is, with range and conditional request
// support.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	f, info, err := h.files.Open(mux.Vars(r)["filename"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.views.Error(w, r, http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("open upload failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

type filesData struct {
	Files []string
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.files.List()
	if err != nil {
		h.log.Error().Err(err).Msg("list uploads failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	h.views.Render(w, r, http.StatusOK, "uploaded_files", views.Page{
		Title: "Uploaded files",
		Data:  filesData{Files: names},
	})
}

// Stream sends the file as video/mp4 in fixed-size chunks, flushing after
// each one. Headers are only written once the first chunk is read, so a
// missing file still gets a 404 page.
func (h *FileHandler) Stream(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	flusher, _ := w.(http.Flusher)

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
	}

	sent := 0
	err := h.files.Stream(r.Context(), name, func(chunk []byte) error {
		start()
		n, err := w.Write(chunk)
		sent += n
		if err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	h.metrics.Streamed(sent)

	if err == nil {
		start()
		return
	}
	if started {
		h.log.Warn().Err(err).Str("filename", name).Int("bytes", sent).Msg("stream interrupted")
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		h.views.Error(w, r, http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Str("filename", name).Msg("stream failed")
	h.views.Error(w, r, http.StatusInternalServerError)
}

type uploadVideoData struct {
	Allowed  []string
	MaxSize  int64
	Courses  []models.Course
	CourseID uint
	Title    string
}

func (h *FileHandler) UploadVideoForm(w http.ResponseWriter, r *http.Request) {
	courseID, _ := strconv.ParseUint(r.URL.Query().Get("course_id"), 10, 32)
	h.renderUploadVideo(w, r, http.StatusOK, "", uint(courseID), "")
}

func (h *FileHandler) renderUploadVideo(w http.ResponseWriter, r *http.Request, status int, message string, courseID uint, title string) {
	courses, err := h.catalog.ListCourses(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list courses failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	h.views.Render(w, r, status, "upload_video", views.Page{
		Title: "Upload video",
		Error: message,
		Data: uploadVideoData{
			Allowed:  h.videos,
			MaxSize:  h.files.MaxSize(),
			Courses:  courses,
			CourseID: courseID,
			Title:    title,
		},
	})
}

func (h *FileHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxSize()+multipartOverhead)

	if err := r.ParseMultipartForm(parseMemory); err != nil {
		if isTooLarge(err) {
			h.metrics.Upload("video", "too_large")
			h.renderUploadVideo(w, r, http.StatusRequestEntityTooLarge, h.tooLargeMessage(), 0, "")
			return
		}
		h.renderUploadVideo(w, r, http.StatusBadRequest, "The upload could not be read.", 0, "")
		return
	}

	parsed, _ := strconv.ParseUint(r.PostFormValue("course_id"), 10, 32)
	courseID := uint(parsed)
	title := strings.TrimSpace(r.PostFormValue("title"))

	if err := h.catalog.ValidateVideo(courseID, title); err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			h.renderUploadVideo(w, r, http.StatusBadRequest, vErr.Message, courseID, title)
			return
		}
		h.log.Error().Err(err).Msg("validate video failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	if _, err := h.catalog.GetCourse(ctx, courseID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.views.Error(w, r, http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Uint("course_id", courseID).Msg("get course failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		h.renderUploadVideo(w, r, http.StatusBadRequest, "No video selected.", courseID, title)
		return
	}
	defer file.Close()

	name, err := h.files.Save(header.Filename, file, h.videos)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidFile):
			h.metrics.Upload("video", "rejected")
			h.renderUploadVideo(w, r, http.StatusBadRequest,
				fmt.Sprintf("File type not allowed. Allowed types: %s.", strings.Join(h.videos, ", ")), courseID, title)
		case errors.Is(err, storage.ErrPayloadTooLarge):
			h.metrics.Upload("video", "too_large")
			h.renderUploadVideo(w, r, http.StatusRequestEntityTooLarge, h.tooLargeMessage(), courseID, title)
		default:
			h.log.Error().Err(err).Msg("save video failed")
			h.views.Error(w, r, http.StatusInternalServerError)
		}
		return
	}

	video, err := h.catalog.AddVideo(ctx, service.VideoInput{CourseID: courseID, Title: title, Filename: name})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.views.Error(w, r, http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Uint("course_id", courseID).Msg("add video failed")
		h.views.Error(w, r, http.StatusInternalServerError)
		return
	}

	h.metrics.Upload("video", "stored")
	h.log.Info().Uint("course_id", courseID).Uint("video_id", video.ID).Str("filename", name).Msg("video uploaded")
	_ = h.sessions.AddFlash(w, r, security.FlashSuccess, fmt.Sprintf("Video %q uploaded.", video.Title))
	http.Redirect(w, r, fmt.Sprintf("/course/%d", courseID), http.StatusSeeOther)
}
