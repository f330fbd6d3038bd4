package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var textTypes = []string{"txt", "pdf"}

func newStore(t *testing.T, maxSize int64) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"), maxSize, 4)
	require.NoError(t, err)
	return s
}

func TestSaveAndOpen(t *testing.T) {
	s := newStore(t, 1024)

	name, err := s.Save("my notes.txt", strings.NewReader("hello"), textTypes)
	require.NoError(t, err)
	assert.Equal(t, "my_notes.txt", name)

	f, info, err := s.Open(name)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), info.Size())
}

func TestSaveRejectsDisallowedExtension(t *testing.T) {
	s := newStore(t, 1024)

	_, err := s.Save("payload.exe", strings.NewReader("MZ"), textTypes)
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = s.Save("../", strings.NewReader("x"), textTypes)
	assert.ErrorIs(t, err, ErrInvalidFile)

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSaveEnforcesMaxSize(t *testing.T) {
	s := newStore(t, 8)

	_, err := s.Save("exact.txt", bytes.NewReader(make([]byte, 8)), textTypes)
	require.NoError(t, err)

	_, err = s.Save("big.txt", bytes.NewReader(make([]byte, 9)), textTypes)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, _, err = s.Open("big.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	// no temp files left behind
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveOverwritesExistingName(t *testing.T) {
	s := newStore(t, 1024)

	_, err := s.Save("a.txt", strings.NewReader("first"), textTypes)
	require.NoError(t, err)
	_, err = s.Save("a.txt", strings.NewReader("second"), textTypes)
	require.NoError(t, err)

	f, _, err := s.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()
	data, _ := io.ReadAll(f)
	assert.Equal(t, "second", string(data))
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := newStore(t, 1024)
	outside := filepath.Join(filepath.Dir(s.Dir()), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))

	for _, name := range []string{"../secret.txt", "", ".", "..", "sub/../../secret.txt"} {
		_, _, err := s.Open(name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

func TestStreamChunks(t *testing.T) {
	s := newStore(t, 1024)
	content := []byte("0123456789")
	_, err := s.Save("clip.txt", bytes.NewReader(content), textTypes)
	require.NoError(t, err)

	var got bytes.Buffer
	var sizes []int
	err = s.Stream(context.Background(), "clip.txt", func(chunk []byte) error {
		sizes = append(sizes, len(chunk))
		got.Write(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, content, got.Bytes())
	assert.Equal(t, []int{4, 4, 2}, sizes)
}

func TestStreamMissingFile(t *testing.T) {
	s := newStore(t, 1024)

	called := false
	err := s.Stream(context.Background(), "nope.mp4", func([]byte) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
}

func TestStreamStopsOnYieldError(t *testing.T) {
	s := newStore(t, 1024)
	_, err := s.Save("clip.txt", strings.NewReader("0123456789"), textTypes)
	require.NoError(t, err)

	stop := errors.New("client gone")
	calls := 0
	err = s.Stream(context.Background(), "clip.txt", func([]byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestStreamHonoursCancellation(t *testing.T) {
	s := newStore(t, 1024)
	_, err := s.Save("clip.txt", strings.NewReader("0123456789"), textTypes)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Stream(ctx, "clip.txt", func([]byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListAndRemove(t *testing.T) {
	s := newStore(t, 1024)
	for _, name := range []string{"b.txt", "a.txt"} {
		_, err := s.Save(name, strings.NewReader(name), textTypes)
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "nested"), 0o755))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)

	require.NoError(t, s.Remove("a.txt"))
	assert.ErrorIs(t, s.Remove("a.txt"), ErrNotFound)
	assert.ErrorIs(t, s.Remove("../b.txt"), ErrNotFound)

	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, names)
}
