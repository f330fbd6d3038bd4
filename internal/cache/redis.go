package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coursehub/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

const courseListKey = "courses:list"

func courseKey(id uint) string {
	return fmt.Sprintf("course:detail:%d", id)
}

// CourseCache is a read-through cache for the catalog. Failures are logged
// and treated as misses; the database stays the source of truth.
type CourseCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewCourseCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *CourseCache {
	return &CourseCache{client: client, ttl: ttl, log: log}
}

func (c *CourseCache) GetCourses(ctx context.Context) ([]models.Course, bool) {
	var courses []models.Course
	if !c.get(ctx, courseListKey, &courses) {
		return nil, false
	}
	return courses, true
}

func (c *CourseCache) SetCourses(ctx context.Context, courses []models.Course) {
	c.set(ctx, courseListKey, courses)
}

func (c *CourseCache) GetCourse(ctx context.Context, id uint) (*models.Course, bool) {
	var course models.Course
	if !c.get(ctx, courseKey(id), &course) {
		return nil, false
	}
	return &course, true
}

func (c *CourseCache) SetCourse(ctx context.Context, course *models.Course) {
	c.set(ctx, courseKey(course.ID), course)
}

// Invalidate drops the course list and the given course details.
func (c *CourseCache) Invalidate(ctx context.Context, ids ...uint) {
	keys := []string{courseListKey}
	for _, id := range ids {
		keys = append(keys, courseKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidate failed")
	}
}

func (c *CourseCache) get(ctx context.Context, key string, dst any) bool {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(val, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache decode failed")
		return false
	}
	return true
}

func (c *CourseCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
