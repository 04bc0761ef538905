package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// fallbackStore writes to the primary store first and falls back to the
// secondary one when the primary is disabled or fails.
type fallbackStore struct {
	primary   Store
	secondary Store
	enabled   bool
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that tries primary first, then secondary.
// If primary is nil or not enabled, only the secondary store is used.
func NewFallbackStore(primary, secondary Store, enabled bool, logger zerolog.Logger) Store {
	return &fallbackStore{
		primary:   primary,
		secondary: secondary,
		enabled:   enabled,
		logger:    logger.With().Str("component", "fallback-store").Logger(),
	}
}

// Put buffers the body so the secondary store can replay it after a
// primary failure.
func (s *fallbackStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if !s.enabled || s.primary == nil {
		s.logger.Debug().
			Bool("primary_enabled", s.enabled).
			Bool("has_primary", s.primary != nil).
			Msg("primary store disabled or not configured, using fallback")
		return s.secondary.Put(ctx, key, contentType, body, size)
	}

	data, err := io.ReadAll(io.LimitReader(body, size+1))
	if err != nil {
		return "", fmt.Errorf("failed to buffer upload: %w", err)
	}

	url, err := s.primary.Put(ctx, key, contentType, bytes.NewReader(data), size)
	if err == nil {
		return url, nil
	}

	s.logger.Warn().
		Err(err).
		Str("key", key).
		Msg("primary store failed, falling back")

	return s.secondary.Put(ctx, key, contentType, bytes.NewReader(data), size)
}
