// Package backend defines the storage backend contract shared by the
// remote filesystem and repository mirror variants.
package backend

import (
	"context"
	"time"

	"github.com/lensview/lensview/internal/domain"
	"github.com/lensview/lensview/internal/logger"
)

// Backend is one live, authenticated storage source. Implementations are
// not safe for unsynchronized concurrent use; the session manager
// serializes all calls onto a single backend instance.
type Backend interface {
	// Kind identifies the backend variant
	Kind() domain.BackendKind

	// Root returns the resolved root path for browsing
	// (home directory for remote filesystems, the working-tree top
	// for repository mirrors)
	Root() string

	// List returns the entries directly under path, which must be a
	// canonical absolute path produced by the resolver.
	// Returns domain.ErrNotFound if path doesn't exist.
	List(ctx context.Context, path string) ([]domain.FileEntry, error)

	// Read returns the full content of the file at path, bounded by the
	// configured max transfer size.
	// Returns domain.ErrFileTooLarge beyond that threshold.
	Read(ctx context.Context, path string) ([]byte, error)

	// Close releases the transport. The backend must not be used
	// afterwards.
	Close() error
}

// DefaultMaxTransferBytes bounds in-memory buffering of file content.
const DefaultMaxTransferBytes = 50 << 20 // 50 MB

// DefaultDialTimeout bounds transport establishment.
const DefaultDialTimeout = 30 * time.Second

// Options carries engine limits and ambient dependencies into backend
// constructors.
type Options struct {
	// MaxTransferBytes caps a single Read (0 means DefaultMaxTransferBytes)
	MaxTransferBytes int64

	// DialTimeout caps transport establishment (0 means DefaultDialTimeout)
	DialTimeout time.Duration

	// Log receives backend lifecycle events; nil means silent
	Log logger.Logger
}

// Normalize fills zero fields with defaults.
func (o Options) Normalize() Options {
	if o.MaxTransferBytes <= 0 {
		o.MaxTransferBytes = DefaultMaxTransferBytes
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.Log == nil {
		o.Log = logger.Null()
	}
	return o
}
