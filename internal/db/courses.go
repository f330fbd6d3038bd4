package db

import (
	"context"

	"coursehub/internal/models"

	"gorm.io/gorm"
)

func (db *DB) CreateCourse(ctx context.Context, course *models.Course) error {
	return translate(db.WithContext(ctx).Create(course).Error)
}

// GetCourse loads a course together with its videos.
func (db *DB) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	err := db.WithContext(ctx).
		Preload("Videos", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id")
		}).
		First(&course, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &course, nil
}

func (db *DB) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := db.WithContext(ctx).Order("id").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (db *DB) CountCourses(ctx context.Context) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.Course{}).Count(&count).Error
	return count, err
}

// CreateVideo fails with ErrNotFound when the owning course does not exist.
func (db *DB) CreateVideo(ctx context.Context, video *models.Video) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Select("id").First(&course, video.CourseID).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Create(video).Error)
	})
}

// DeleteCourse removes the course and its videos. It returns the filenames
// that no remaining video references, so their files can be cleaned up.
func (db *DB) DeleteCourse(ctx context.Context, id uint) ([]string, error) {
	var orphaned []string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Preload("Videos").First(&course, id).Error; err != nil {
			return translate(err)
		}

		if err := tx.Where("course_id = ?", id).Delete(&models.Video{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&course).Error; err != nil {
			return err
		}

		seen := make(map[string]bool, len(course.Videos))
		for _, v := range course.Videos {
			if seen[v.Filename] {
				continue
			}
			seen[v.Filename] = true

			var refs int64
			if err := tx.Model(&models.Video{}).Where("filename = ?", v.Filename).Count(&refs).Error; err != nil {
				return err
			}
			if refs == 0 {
				orphaned = append(orphaned, v.Filename)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphaned, nil
}
