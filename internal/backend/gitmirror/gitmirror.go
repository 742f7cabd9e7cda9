// Package gitmirror implements the repository-mirror backend: a local
// clone of a remote git repository browsed through its working tree.
// Large-file pointers are listed with their declared size and the real
// content is fetched only when the file is read.
package gitmirror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gogitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	cryptossh "golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"

	"github.com/lensview/lensview/internal/backend"
	"github.com/lensview/lensview/internal/classifier"
	"github.com/lensview/lensview/internal/credential"
	"github.com/lensview/lensview/internal/domain"
	"github.com/lensview/lensview/internal/lock"
	"github.com/lensview/lensview/internal/logger"
)

// mirrorDirName is the subdirectory of the staging path holding the
// working copy. The lock file lives beside it at the staging root.
const mirrorDirName = "mirror"

// hidden names never surfaced in listings.
var hiddenNames = map[string]bool{
	".git":           true,
	".gitattributes": true,
	lock.LockFileName: true,
}

// Backend is a live repository mirror. Not safe for unsynchronized
// concurrent use; the session manager serializes access.
type Backend struct {
	desc     domain.ConnectionDescriptor
	cred     *credential.Credential
	repoDir  string
	maxBytes int64
	dialTO   time.Duration
	log      logger.Logger

	fileLock *lock.FileLock

	// lfs is built lazily on the first pointer read; materialize
	// collapses concurrent fetches of the same object.
	lfs         *lfsClient
	materialize singleflight.Group
}

// Connect brings the staging copy up to date with the remote branch,
// cloning from scratch when the staging copy is missing or damaged.
func Connect(ctx context.Context, desc domain.ConnectionDescriptor, cred *credential.Credential, opts backend.Options) (*Backend, error) {
	opts = opts.Normalize()

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	fileLock, err := lock.NewFileLock(desc.StagingPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCloneFailed, err)
	}
	if err := fileLock.Acquire(desc.Target()); err != nil {
		return nil, fmt.Errorf("%w: staging busy: %v", domain.ErrCloneFailed, err)
	}

	b := &Backend{
		desc:     desc,
		cred:     cred,
		repoDir:  filepath.Join(desc.StagingPath, mirrorDirName),
		maxBytes: opts.MaxTransferBytes,
		dialTO:   opts.DialTimeout,
		log:      opts.Log,
		fileLock: fileLock,
	}

	if err := b.sync(ctx); err != nil {
		fileLock.Release()
		return nil, err
	}
	return b, nil
}

// sync refreshes the staging copy: update an existing clone, or wipe it
// and clone fresh when it cannot be opened.
func (b *Backend) sync(ctx context.Context) error {
	repo, err := gogit.PlainOpen(b.repoDir)
	if err == nil {
		if err := b.update(ctx, repo); err == nil {
			return nil
		} else if isConnectError(err) {
			return err
		}
		// The staging copy exists but cannot be brought up to date.
		// Treat it as damaged and start over.
		b.log.Warn("staging copy unusable, recloning", "staging", b.repoDir)
	}

	if err := os.RemoveAll(b.repoDir); err != nil {
		return fmt.Errorf("%w: reset staging: %v", domain.ErrCloneFailed, err)
	}
	return b.clone(ctx)
}

// clone transfers the full branch. The dial timeout bounds transport
// establishment elsewhere; the transfer itself runs under the caller's
// deadline alone, so a large repository is not cut off mid-clone.
func (b *Backend) clone(ctx context.Context) error {
	b.log.Info("cloning repository", "target", b.desc.Target())

	_, err := gogit.PlainCloneContext(ctx, b.repoDir, false, &gogit.CloneOptions{
		URL:           b.desc.RepoURL,
		Auth:          b.auth(),
		ReferenceName: plumbing.NewBranchReferenceName(b.desc.Branch),
		SingleBranch:  true,
	})
	if err != nil {
		return mapGitError(b.desc.RepoURL, err)
	}
	return nil
}

// update fetches the remote branch and fast-forwards the working tree to
// its head, discarding any local divergence.
func (b *Backend) update(ctx context.Context, repo *gogit.Repository) error {
	err := repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: gogit.DefaultRemoteName,
		Auth:       b.auth(),
		Force:      true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return mapGitError(b.desc.RepoURL, err)
	}

	remoteRef, err := repo.Reference(
		plumbing.NewRemoteReferenceName(gogit.DefaultRemoteName, b.desc.Branch), true)
	if err != nil {
		return fmt.Errorf("%w: branch %s not found on remote: %v", domain.ErrCloneFailed, b.desc.Branch, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCloneFailed, err)
	}

	branchRef := plumbing.NewBranchReferenceName(b.desc.Branch)
	err = wt.Checkout(&gogit.CheckoutOptions{Branch: branchRef, Force: true})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		err = wt.Checkout(&gogit.CheckoutOptions{
			Branch: branchRef,
			Hash:   remoteRef.Hash(),
			Create: true,
			Force:  true,
		})
	}
	if err != nil {
		return fmt.Errorf("%w: checkout %s: %v", domain.ErrCloneFailed, b.desc.Branch, err)
	}

	if err := wt.Reset(&gogit.ResetOptions{Mode: gogit.HardReset, Commit: remoteRef.Hash()}); err != nil {
		return fmt.Errorf("%w: reset to %s: %v", domain.ErrCloneFailed, remoteRef.Hash(), err)
	}
	return nil
}

// auth returns transport credentials for the remote, or nil for local and
// anonymous HTTP remotes.
func (b *Backend) auth() transport.AuthMethod {
	if b.cred == nil {
		return nil
	}
	user, _, _, _, ok := splitSSHURL(b.desc.RepoURL)
	if !ok {
		return nil
	}
	return &gogitssh.PublicKeys{
		User:   user,
		Signer: b.cred.Signer(),
		HostKeyCallbackHelper: gogitssh.HostKeyCallbackHelper{
			HostKeyCallback: cryptossh.InsecureIgnoreHostKey(), //nolint:gosec // parity with the remote-filesystem backend
		},
	}
}

func mapGitError(repoURL string, err error) error {
	if errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) {
		return fmt.Errorf("%w: %s: %v", domain.ErrAuthFailed, repoURL, err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %s: %v", domain.ErrUnreachable, repoURL, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") {
		return fmt.Errorf("%w: %s: %v", domain.ErrAuthFailed, repoURL, err)
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "no such host") {
		return fmt.Errorf("%w: %s: %v", domain.ErrUnreachable, repoURL, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrCloneFailed, repoURL, err)
}

// isConnectError reports whether err already carries a connection-stage
// kind that should surface as-is instead of triggering a reclone.
func isConnectError(err error) bool {
	return errors.Is(err, domain.ErrAuthFailed) ||
		errors.Is(err, domain.ErrUnreachable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Kind identifies the backend variant.
func (b *Backend) Kind() domain.BackendKind {
	return domain.BackendRepoMirror
}

// Root returns the working-tree top in slash form.
func (b *Backend) Root() string {
	return filepath.ToSlash(b.repoDir)
}

// localPath maps a resolver-produced slash path back onto the local
// filesystem.
func (b *Backend) localPath(p string) string {
	return filepath.FromSlash(p)
}

func (b *Backend) List(ctx context.Context, dirPath string) ([]domain.FileEntry, error) {
	dirents, err := os.ReadDir(b.localPath(dirPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, dirPath)
		}
		return nil, fmt.Errorf("%w: readdir %s: %v", domain.ErrRemoteListFailed, dirPath, err)
	}

	entries := make([]domain.FileEntry, 0, len(dirents))
	for _, de := range dirents {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if hiddenNames[de.Name()] {
			continue
		}
		entry, err := b.entryFor(dirPath, de)
		if err != nil {
			continue // vanished between readdir and stat
		}
		entries = append(entries, entry)
	}

	domain.SortEntries(entries)
	return entries, nil
}

func (b *Backend) entryFor(dirPath string, de os.DirEntry) (domain.FileEntry, error) {
	full := path.Join(dirPath, de.Name())

	fi, err := de.Info()
	if err != nil {
		return domain.FileEntry{}, err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		if target, statErr := os.Stat(b.localPath(full)); statErr == nil {
			fi = target
		}
	}

	entry := domain.FileEntry{
		Name:    de.Name(),
		Path:    full,
		Size:    fi.Size(),
		IsDir:   fi.IsDir(),
		ModTime: fi.ModTime(),
	}

	if entry.IsDir {
		entry.Size = 0
		return entry, nil
	}

	entry.MediaType = classifier.ByName(entry.Name)

	// A pointer file reports the size of the content it stands for, not
	// its own few bytes.
	if ptr, ok := b.pointerAt(full, fi.Size()); ok {
		entry.Size = ptr.Size
	}
	return entry, nil
}

// pointerAt reads the file when it is small enough to be a pointer and
// parses it.
func (b *Backend) pointerAt(p string, size int64) (Pointer, bool) {
	if size == 0 || size > maxPointerSize {
		return Pointer{}, false
	}
	data, err := os.ReadFile(b.localPath(p))
	if err != nil {
		return Pointer{}, false
	}
	return ParsePointer(data)
}

func (b *Backend) Read(ctx context.Context, filePath string) ([]byte, error) {
	local := b.localPath(filePath)

	fi, err := os.Stat(local)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrTransferFailed, filePath, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrNotFound, filePath)
	}

	if ptr, ok := b.pointerAt(filePath, fi.Size()); ok {
		return b.materializePointer(ctx, filePath, ptr)
	}

	if fi.Size() > b.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrFileTooLarge, filePath, fi.Size(), b.maxBytes)
	}

	data, err := os.ReadFile(local)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrTransferFailed, filePath, err)
	}
	return data, nil
}

// materializePointer downloads the content behind ptr, writes it back
// into the working tree and returns it. Concurrent reads of the same
// object share one download; a materialized file is never fetched again
// because the pointer check no longer matches.
func (b *Backend) materializePointer(ctx context.Context, filePath string, ptr Pointer) ([]byte, error) {
	if ptr.Size > b.maxBytes {
		return nil, fmt.Errorf("%w: %s declares %d bytes, limit %d", domain.ErrFileTooLarge, filePath, ptr.Size, b.maxBytes)
	}

	v, err, _ := b.materialize.Do(ptr.Oid, func() (interface{}, error) {
		if b.lfs == nil {
			client, err := newLFSClient(ctx, b.desc.RepoURL, b.cred, b.dialTO)
			if err != nil {
				return nil, err
			}
			b.lfs = client
		}

		data, err := b.lfs.Fetch(ctx, ptr)
		if err != nil {
			return nil, err
		}

		if err := b.writeBack(filePath, data); err != nil {
			return nil, err
		}
		b.log.Debug("materialized large file", "path", filePath, "bytes", len(data))
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// writeBack atomically replaces the pointer file with the real content.
func (b *Backend) writeBack(filePath string, data []byte) error {
	local := b.localPath(filePath)
	tmp := local + ".partial"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrTransferFailed, filePath, err)
	}
	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replace %s: %v", domain.ErrTransferFailed, filePath, err)
	}
	return nil
}

// Close releases the staging lock. The staging copy stays on disk so the
// next connect can update instead of reclone.
func (b *Backend) Close() error {
	return b.fileLock.Release()
}

var _ backend.Backend = (*Backend)(nil)
