package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for persisting uploaded files.
type Store interface {
	// Put writes size bytes from body under key and returns the URL the
	// stored object can be fetched from.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// ProofKey builds the object key for a payment proof of an order. Every
// upload gets a fresh key so a re-upload never overwrites the previous file.
func ProofKey(orderID uuid.UUID, ext string, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return path.Join(orderID.String(), fmt.Sprintf("%d-%s.%s", now.UTC().Unix(), uuid.NewString()[:8], ext))
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
