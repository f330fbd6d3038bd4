package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevelsByEnvironment(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, NewWithWriter("development", &bytes.Buffer{}).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewWithWriter("production", &bytes.Buffer{}).GetLevel())
}

func TestWritesEnvironmentField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("production", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("user", "alice").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "env=production")
	assert.Contains(t, out, "user=alice")
}
