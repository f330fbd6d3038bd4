package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursehub/internal/db"
	"coursehub/internal/models"
	"coursehub/internal/storage"

	"github.com/rs/zerolog"
)

// CourseCache is implemented by cache.CourseCache.
type CourseCache interface {
	GetCourses(ctx context.Context) ([]models.Course, bool)
	SetCourses(ctx context.Context, courses []models.Course)
	GetCourse(ctx context.Context, id uint) (*models.Course, bool)
	SetCourse(ctx context.Context, course *models.Course)
	Invalidate(ctx context.Context, ids ...uint)
}

type noCache struct{}

func (noCache) GetCourses(context.Context) ([]models.Course, bool)     { return nil, false }
func (noCache) SetCourses(context.Context, []models.Course)            {}
func (noCache) GetCourse(context.Context, uint) (*models.Course, bool) { return nil, false }
func (noCache) SetCourse(context.Context, *models.Course)              {}
func (noCache) Invalidate(context.Context, ...uint)                    {}

type CatalogService struct {
	db    *db.DB
	files *storage.Store
	cache CourseCache
	log   zerolog.Logger
}

// NewCatalogService accepts a nil cache.
func NewCatalogService(database *db.DB, files *storage.Store, cache CourseCache, log zerolog.Logger) *CatalogService {
	if cache == nil {
		cache = noCache{}
	}
	return &CatalogService{db: database, files: files, cache: cache, log: log}
}

type CourseInput struct {
	Name        string `validate:"required,max=120"`
	Description string `validate:"max=5000"`
}

func (s *CatalogService) CreateCourse(ctx context.Context, input CourseInput) (*models.Course, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	course := &models.Course{Name: input.Name, Description: input.Description}
	if err := s.db.CreateCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.cache.Invalidate(ctx)

	return course, nil
}

func (s *CatalogService) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	if course, ok := s.cache.GetCourse(ctx, id); ok {
		return course, nil
	}

	course, err := s.db.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetCourse(ctx, course)

	return course, nil
}

func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	if courses, ok := s.cache.GetCourses(ctx); ok {
		return courses, nil
	}

	courses, err := s.db.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetCourses(ctx, courses)

	return courses, nil
}

type VideoInput struct {
	CourseID uint   `validate:"required"`
	Title    string `validate:"required,max=200"`
	Filename string `validate:"required,max=255"`
}

type videoForm struct {
	CourseID uint   `validate:"required"`
	Title    string `validate:"required,max=200"`
}

// ValidateVideo checks the form fields before the file is written.
func (s *CatalogService) ValidateVideo(courseID uint, title string) error {
	return validateStruct(videoForm{CourseID: courseID, Title: strings.TrimSpace(title)})
}

// AddVideo records an already stored file as a video of the course.
func (s *CatalogService) AddVideo(ctx context.Context, input VideoInput) (*models.Video, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	video := &models.Video{
		CourseID: input.CourseID,
		Title:    input.Title,
		Filename: input.Filename,
	}
	if err := s.db.CreateVideo(ctx, video); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create video: %w", err)
	}
	s.cache.Invalidate(ctx, input.CourseID)

	return video, nil
}

// DeleteCourse removes the course and its videos. Video files are removed
// only when no other course still uses them.
func (s *CatalogService) DeleteCourse(ctx context.Context, id uint) error {
	orphaned, err := s.db.DeleteCourse(ctx, id)
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)

	if s.files == nil {
		return nil
	}
	for _, name := range orphaned {
		if err := s.files.Remove(name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Str("filename", name).Msg("remove video file failed")
		}
	}
	return nil
}

func (s *CatalogService) CountCourses(ctx context.Context) (int64, error) {
	return s.db.CountCourses(ctx)
}
