// Package session owns the single live browsing session. The manager
// mediates every backend call: at most one session exists at a time, and
// backend access is serialized so the underlying transport never sees
// concurrent operations.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/lensview/lensview/internal/backend"
	"github.com/lensview/lensview/internal/backend/gitmirror"
	"github.com/lensview/lensview/internal/backend/sftpfs"
	"github.com/lensview/lensview/internal/classifier"
	"github.com/lensview/lensview/internal/credential"
	"github.com/lensview/lensview/internal/domain"
	"github.com/lensview/lensview/internal/logger"
	"github.com/lensview/lensview/internal/resolver"
	"github.com/lensview/lensview/internal/state"
	"github.com/lensview/lensview/internal/thumbcache"
	"github.com/lensview/lensview/internal/thumbnail"
)

// DefaultThumbnailDim is the longest edge of derived thumbnails.
const DefaultThumbnailDim = 256

// DefaultCacheBudget bounds the in-memory thumbnail cache.
const DefaultCacheBudget = 64 << 20 // 64 MB

// Options configures a Manager.
type Options struct {
	// MaxTransferBytes caps a single file read (0 means the backend default)
	MaxTransferBytes int64

	// DialTimeout caps transport establishment (0 means the backend default)
	DialTimeout time.Duration

	// ThumbnailDim is the longest thumbnail edge (0 means DefaultThumbnailDim)
	ThumbnailDim int

	// CacheBudget bounds the thumbnail cache in bytes (0 means DefaultCacheBudget)
	CacheBudget int64

	// History receives connection outcomes; nil disables persistence
	History *state.Manager

	// Log receives session lifecycle events; nil means silent
	Log logger.Logger
}

// dialFunc opens a backend for a descriptor. Swappable in tests.
type dialFunc func(ctx context.Context, desc domain.ConnectionDescriptor, cred *credential.Credential, opts backend.Options) (backend.Backend, error)

type liveSession struct {
	backend  backend.Backend
	cred     *credential.Credential
	resolver *resolver.Resolver
	desc     domain.ConnectionDescriptor
}

// Manager owns the single live session.
type Manager struct {
	mu   sync.RWMutex
	sess *liveSession

	// slot serializes backend access; cache hits bypass it entirely.
	slot chan struct{}

	cache   *thumbcache.Cache
	opts    Options
	log     logger.Logger
	history *state.Manager

	dialSFTP   dialFunc
	dialMirror dialFunc
}

// NewManager creates a manager with no active session.
func NewManager(opts Options) *Manager {
	if opts.ThumbnailDim <= 0 {
		opts.ThumbnailDim = DefaultThumbnailDim
	}
	if opts.CacheBudget <= 0 {
		opts.CacheBudget = DefaultCacheBudget
	}
	if opts.Log == nil {
		opts.Log = logger.Null()
	}

	return &Manager{
		slot:    make(chan struct{}, 1),
		cache:   thumbcache.New(opts.CacheBudget),
		opts:    opts,
		log:     opts.Log,
		history: opts.History,
		dialSFTP: func(ctx context.Context, desc domain.ConnectionDescriptor, cred *credential.Credential, o backend.Options) (backend.Backend, error) {
			return sftpfs.Connect(ctx, desc, cred, o)
		},
		dialMirror: func(ctx context.Context, desc domain.ConnectionDescriptor, cred *credential.Credential, o backend.Options) (backend.Backend, error) {
			return gitmirror.Connect(ctx, desc, cred, o)
		},
	}
}

// Connect establishes a new session. Any prior session is torn down
// first, so after a failed connect no session exists at all: the
// credential is zeroed, the transport is closed and the cache is empty.
func (m *Manager) Connect(ctx context.Context, desc domain.ConnectionDescriptor, keyMaterial []byte, passphrase string) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	var cred *credential.Credential
	if len(keyMaterial) > 0 {
		var err error
		cred, err = credential.Parse(keyMaterial, passphrase)
		if err != nil {
			return err
		}
	}

	// The old session goes away regardless of how the new dial ends.
	if err := m.Disconnect(); err != nil {
		m.log.Warn("teardown of previous session failed", "error", err)
	}

	err := m.dial(ctx, desc, cred)
	m.recordOutcome(desc, err)
	if err != nil {
		if cred != nil {
			cred.Zero()
		}
		return err
	}

	m.log.Info("session established", "kind", string(desc.Kind), "target", desc.Target())
	return nil
}

func (m *Manager) dial(ctx context.Context, desc domain.ConnectionDescriptor, cred *credential.Credential) error {
	opts := backend.Options{
		MaxTransferBytes: m.opts.MaxTransferBytes,
		DialTimeout:      m.opts.DialTimeout,
		Log:              m.log,
	}

	var dialer dialFunc
	switch desc.Kind {
	case domain.BackendRemoteFS:
		dialer = m.dialSFTP
	case domain.BackendRepoMirror:
		dialer = m.dialMirror
	default:
		return fmt.Errorf("%w: unknown backend kind: %s", domain.ErrInvalidDescriptor, desc.Kind)
	}

	b, err := dialer(ctx, desc, cred, opts)
	if err != nil {
		return err
	}

	res, err := resolver.New(b.Root())
	if err != nil {
		b.Close()
		return err
	}

	m.mu.Lock()
	m.sess = &liveSession{backend: b, cred: cred, resolver: res, desc: desc}
	m.mu.Unlock()
	return nil
}

func (m *Manager) recordOutcome(desc domain.ConnectionDescriptor, connectErr error) {
	if m.history == nil {
		return
	}

	record := state.ProfileRecord{
		Descriptor:  desc,
		ConnectedAt: time.Now(),
		Status:      "success",
	}
	if connectErr != nil {
		record.Status = "failed"
		record.Error = domain.Kind(connectErr)
	}
	if err := m.history.SaveProfile(record); err != nil {
		m.log.Warn("failed to record connection profile", "error", err)
	}
}

// Disconnect tears down the live session: the transport is closed, the
// credential is zeroed and the thumbnail cache is dropped. Idempotent.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	sess := m.sess
	m.sess = nil
	m.mu.Unlock()

	if sess == nil {
		return nil
	}

	// Wait for any in-flight backend operation before closing under it.
	m.slot <- struct{}{}
	err := sess.backend.Close()
	<-m.slot

	if sess.cred != nil {
		sess.cred.Zero()
	}
	m.cache.Clear()

	m.log.Info("session closed", "target", sess.desc.Target())
	return err
}

// Active returns the descriptor of the live session, if any.
func (m *Manager) Active() (domain.ConnectionDescriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.sess == nil {
		return domain.ConnectionDescriptor{}, false
	}
	return m.sess.desc, true
}

func (m *Manager) current() (*liveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.sess == nil {
		return nil, domain.ErrNoActiveSession
	}
	return m.sess, nil
}

// acquire claims the backend slot, honoring ctx cancellation while
// queued.
func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release() {
	<-m.slot
}

// teardownIfFatal force-closes the session after a transport-class
// failure: a backend that reports itself unreachable cannot serve any
// further call, so the session is destroyed rather than left erroring.
// Must be called without holding the slot. No-op when sess is no longer
// the live session or when the error is scoped to one operation.
func (m *Manager) teardownIfFatal(sess *liveSession, err error) {
	if !errors.Is(err, domain.ErrUnreachable) && !errors.Is(err, domain.ErrHandshakeFailed) {
		return
	}

	m.mu.Lock()
	if m.sess != sess {
		m.mu.Unlock()
		return
	}
	m.sess = nil
	m.mu.Unlock()

	m.slot <- struct{}{}
	sess.backend.Close()
	<-m.slot

	if sess.cred != nil {
		sess.cred.Zero()
	}
	m.cache.Clear()

	m.log.Warn("session torn down after transport failure",
		"target", sess.desc.Target(), "error", err)
}

// List returns the entries under p, which may be "" or "/" for the
// session root.
func (m *Manager) List(ctx context.Context, p string) ([]domain.FileEntry, error) {
	sess, err := m.current()
	if err != nil {
		return nil, err
	}
	resolved, err := sess.resolver.Resolve(p)
	if err != nil {
		return nil, err
	}

	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	entries, err := sess.backend.List(ctx, resolved)
	m.release()
	if err != nil {
		m.teardownIfFatal(sess, err)
		return nil, err
	}
	return entries, nil
}

// Read returns the full content of the file at p.
func (m *Manager) Read(ctx context.Context, p string) ([]byte, error) {
	sess, err := m.current()
	if err != nil {
		return nil, err
	}
	resolved, err := sess.resolver.Resolve(p)
	if err != nil {
		return nil, err
	}

	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	data, err := sess.backend.Read(ctx, resolved)
	m.release()
	if err != nil {
		m.teardownIfFatal(sess, err)
		return nil, err
	}
	return data, nil
}

// Stat returns the entry for p. The session root is synthesized; anything
// else is looked up in its parent listing.
func (m *Manager) Stat(ctx context.Context, p string) (domain.FileEntry, error) {
	sess, err := m.current()
	if err != nil {
		return domain.FileEntry{}, err
	}
	resolved, err := sess.resolver.Resolve(p)
	if err != nil {
		return domain.FileEntry{}, err
	}

	if resolved == sess.resolver.Root() {
		return domain.FileEntry{Name: "/", Path: resolved, IsDir: true}, nil
	}

	if err := m.acquire(ctx); err != nil {
		return domain.FileEntry{}, err
	}
	entries, err := sess.backend.List(ctx, path.Dir(resolved))
	m.release()
	if err != nil {
		m.teardownIfFatal(sess, err)
		return domain.FileEntry{}, err
	}
	for _, e := range entries {
		if e.Path == resolved {
			return e, nil
		}
	}
	return domain.FileEntry{}, fmt.Errorf("%w: %s", domain.ErrNotFound, p)
}

// Thumbnail returns a cached or freshly derived thumbnail for the image
// at p, with maxDim bounding the longest edge (0 uses the configured
// default). Concurrent requests for the same path share one read and one
// decode; cache hits never touch the backend, so the cached dimension
// wins for a path until the entry is evicted.
func (m *Manager) Thumbnail(ctx context.Context, p string, maxDim int) (thumbcache.Entry, error) {
	if maxDim <= 0 {
		maxDim = m.opts.ThumbnailDim
	}

	sess, err := m.current()
	if err != nil {
		return thumbcache.Entry{}, err
	}
	resolved, err := sess.resolver.Resolve(p)
	if err != nil {
		return thumbcache.Entry{}, err
	}

	if entry, ok := m.cache.Get(resolved); ok {
		return entry, nil
	}

	// Cheap gate before any transfer: the name must look like an image.
	if !classifier.IsImage(classifier.ByName(path.Base(resolved))) {
		return thumbcache.Entry{}, fmt.Errorf("%w: %s", domain.ErrNotThumbnailable, p)
	}

	return m.cache.GetOrCreate(resolved, func() (thumbcache.Entry, error) {
		if err := m.acquire(ctx); err != nil {
			return thumbcache.Entry{}, err
		}
		data, err := sess.backend.Read(ctx, resolved)
		m.release()
		if err != nil {
			m.teardownIfFatal(sess, err)
			return thumbcache.Entry{}, err
		}

		// The extension can lie; the content has the final word.
		if kind := classifier.ByContent(path.Base(resolved), data); !classifier.IsImage(kind) {
			return thumbcache.Entry{}, fmt.Errorf("%w: %s is %s", domain.ErrNotThumbnailable, p, kind)
		}

		res, err := thumbnail.Generate(data, maxDim)
		if err != nil {
			return thumbcache.Entry{}, err
		}
		return thumbcache.Entry{Data: res.Data, MIME: res.MIME}, nil
	})
}

// ThumbnailDataURI returns the thumbnail as a base64 data URI, ready for
// embedding.
func (m *Manager) ThumbnailDataURI(ctx context.Context, p string, maxDim int) (string, error) {
	entry, err := m.Thumbnail(ctx, p, maxDim)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", entry.MIME, base64.StdEncoding.EncodeToString(entry.Data)), nil
}

// CacheStats exposes thumbnail cache occupancy.
func (m *Manager) CacheStats() (size, budget int64, count int) {
	return m.cache.Stats()
}

// Close tears down the session and the manager.
func (m *Manager) Close() error {
	return m.Disconnect()
}
