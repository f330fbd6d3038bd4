package cache

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/models"
)

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), closedAddr(t), "", 0)
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "course:detail:42", courseKey(42))
	assert.Equal(t, "courses:list", courseListKey)
}

func TestUnavailableRedisBehavesAsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        closedAddr(t),
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	var logs bytes.Buffer
	c := NewCourseCache(client, time.Minute, zerolog.New(&logs))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		c.SetCourses(ctx, []models.Course{{ID: 1, Name: "Go"}})
		c.SetCourse(ctx, &models.Course{ID: 1, Name: "Go"})
		c.Invalidate(ctx, 1)
	})

	_, ok := c.GetCourses(ctx)
	assert.False(t, ok)
	_, ok = c.GetCourse(ctx, 1)
	assert.False(t, ok)

	assert.Contains(t, logs.String(), "cache write failed")
	assert.Contains(t, logs.String(), "cache read failed")
}
