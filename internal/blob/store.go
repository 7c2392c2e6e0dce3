// Package blob holds uploaded statements while they are being parsed.
// Nothing stored here outlives a single import request.
package blob

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store keeps an upload under an opaque key until it is deleted.
type Store interface {
	// Put stores the content of r and returns the key to read it back.
	// The extension of filename is preserved in the stored name.
	Put(ctx context.Context, filename string, r io.Reader) (string, error)

	// Get returns the bytes stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ObjectName returns a unique, date-partitioned name for an upload,
// e.g. "uploads/2024/03/05/<uuid>.pdf".
func ObjectName(filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("uploads", now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}
