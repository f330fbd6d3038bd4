package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidFile     = errors.New("invalid file")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrNotFound        = errors.New("file not found")
)

// Store keeps uploads as flat files in a single directory. A file saved under
// an existing name replaces the earlier one.
type Store struct {
	dir       string
	maxSize   int64
	chunkSize int
}

func New(dir string, maxSize int64, chunkSize int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{
		dir:       dir,
		maxSize:   maxSize,
		chunkSize: chunkSize,
	}, nil
}

func (s *Store) Dir() string    { return s.dir }
func (s *Store) MaxSize() int64 { return s.maxSize }
func (s *Store) ChunkSize() int { return s.chunkSize }

// Save copies src into the store under the sanitized form of name and
// returns that stored name.
func (s *Store) Save(name string, src io.Reader, allowed []string) (string, error) {
	filename := SecureFilename(name)
	if filename == "" {
		return "", fmt.Errorf("%w: empty filename", ErrInvalidFile)
	}
	if !AllowedFile(filename, allowed) {
		return "", fmt.Errorf("%w: %q is not an allowed file type", ErrInvalidFile, filename)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, io.LimitReader(src, s.maxSize+1))
	if err != nil {
		cleanup()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", ErrPayloadTooLarge
		}
		return "", fmt.Errorf("write upload: %w", err)
	}
	if n > s.maxSize {
		cleanup()
		return "", ErrPayloadTooLarge
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, filename)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}

	return filename, nil
}

// Open returns the stored file. Names that are not already sanitized never
// resolve, which keeps lookups inside the directory.
func (s *Store) Open(name string) (*os.File, os.FileInfo, error) {
	if name == "" || SecureFilename(name) != name {
		return nil, nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrNotFound
	}

	return f, info, nil
}

// Stream reads name in chunks of ChunkSize bytes and hands each one to yield.
// The chunk slice is reused between calls. ErrNotFound is returned before
// yield is ever called.
func (s *Store) Stream(ctx context.Context, name string, yield func(chunk []byte) error) error {
	f, _, err := s.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, s.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := f.Read(buf)
		if n > 0 {
			if err := yield(buf[:n]); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// List returns the stored filenames in lexical order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *Store) Remove(name string) error {
	if name == "" || SecureFilename(name) != name {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
