package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// localStore implements Store on the local file system. Files are served
// back by the API under baseURL.
type localStore struct {
	dir     string
	baseURL string
	logger  zerolog.Logger
}

// NewLocalStore creates a store that writes files below dir.
func NewLocalStore(dir, baseURL string, logger zerolog.Logger) Store {
	return &localStore{
		dir:     dir,
		baseURL: baseURL,
		logger:  logger.With().Str("component", "local-store").Logger(),
	}
}

func (s *localStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	dest := filepath.Join(s.dir, clean)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", dest).Msg("failed to create upload directory")
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		s.logger.Error().Err(err).Str("path", dest).Msg("failed to create temp file")
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, io.LimitReader(body, size+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.logger.Error().Err(err).Str("path", dest).Msg("failed to write file")
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if written != size {
		return "", fmt.Errorf("short write for %s: expected %d bytes, got %d", key, size, written)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		s.logger.Error().Err(err).Str("path", dest).Msg("failed to move file into place")
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	s.logger.Info().
		Str("path", dest).
		Str("content_type", contentType).
		Int64("size", size).
		Msg("file stored locally")

	return joinURL(s.baseURL, filepath.ToSlash(clean)), nil
}
