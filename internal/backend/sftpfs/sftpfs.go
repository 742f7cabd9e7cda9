// Package sftpfs implements the remote filesystem backend: a single SSH
// connection to one host with an SFTP subsystem channel on top.
package sftpfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"

	"github.com/pkg/sftp"
	cryptossh "golang.org/x/crypto/ssh"

	"github.com/lensview/lensview/internal/backend"
	"github.com/lensview/lensview/internal/classifier"
	"github.com/lensview/lensview/internal/credential"
	"github.com/lensview/lensview/internal/domain"
)

const readChunkSize = 32 * 1024

// client is the slice of *sftp.Client this backend needs. Narrowed to an
// interface so tests can stand in a fake without a live server.
type client interface {
	ReadDir(p string) ([]os.FileInfo, error)
	Stat(p string) (os.FileInfo, error)
	Open(p string) (io.ReadCloser, error)
	Getwd() (string, error)
	Close() error
}

// realClient adapts *sftp.Client to the client interface (Open narrows
// *sftp.File to io.ReadCloser).
type realClient struct {
	*sftp.Client
}

func (r realClient) Open(p string) (io.ReadCloser, error) {
	f, err := r.Client.Open(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Backend is a live SFTP session. Not safe for unsynchronized concurrent
// use; the session manager serializes access.
type Backend struct {
	sshClient *cryptossh.Client
	client    client
	root      string
	maxBytes  int64
}

// Connect dials the host, authenticates with the supplied key, opens the
// SFTP channel and resolves the browsing root. The three failure stages
// are surfaced as distinct error kinds: ErrUnreachable, ErrAuthFailed and
// ErrHandshakeFailed.
func Connect(ctx context.Context, desc domain.ConnectionDescriptor, cred *credential.Credential, opts backend.Options) (*Backend, error) {
	opts = opts.Normalize()

	if cred == nil {
		return nil, fmt.Errorf("%w: no key material supplied for %s", domain.ErrAuthFailed, desc.Target())
	}

	port := desc.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(desc.Host, fmt.Sprintf("%d", port))

	clientCfg := &cryptossh.ClientConfig{
		User:            desc.Username,
		Auth:            []cryptossh.AuthMethod{cryptossh.PublicKeys(cred.Signer())},
		HostKeyCallback: cryptossh.InsecureIgnoreHostKey(), //nolint:gosec // host identity is the caller's trust decision
		Timeout:         opts.DialTimeout,
	}

	// Respect context cancellation during dial
	type dialResult struct {
		client *cryptossh.Client
		err    error
	}
	ch := make(chan dialResult, 1)
	go func() {
		cl, err := cryptossh.Dial("tcp", addr, clientCfg)
		ch <- dialResult{cl, err}
	}()

	var sshClient *cryptossh.Client
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, mapDialError(addr, r.err)
		}
		sshClient = r.client
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("%w: sftp subsystem: %v", domain.ErrHandshakeFailed, err)
	}

	b := &Backend{
		sshClient: sshClient,
		client:    realClient{sftpClient},
		maxBytes:  opts.MaxTransferBytes,
	}
	b.root = resolveRoot(b.client, desc.Username)

	opts.Log.Info("sftp session established", "target", desc.Target(), "root", b.root)
	return b, nil
}

// mapDialError distinguishes network-unreachable, authentication-rejected
// and negotiation failures. ssh.Dial collapses all of them into one error
// value, so classification is structural where possible and textual where
// the ssh package leaves no alternative.
func mapDialError(addr string, err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: dial %s: %v", domain.ErrUnreachable, addr, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: dial %s: %v", domain.ErrUnreachable, addr, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") {
		return fmt.Errorf("%w: %s: %v", domain.ErrAuthFailed, addr, err)
	}
	if strings.Contains(msg, "i/o timeout") || strings.Contains(msg, "connection refused") {
		return fmt.Errorf("%w: dial %s: %v", domain.ErrUnreachable, addr, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrHandshakeFailed, addr, err)
}

// resolveRoot asks the server for the authenticated user's home directory
// and falls back to the conventional location when the server does not
// report one.
func resolveRoot(c client, username string) string {
	if wd, err := c.Getwd(); err == nil && wd != "" {
		return path.Clean(wd)
	}
	if username == "root" {
		return "/root"
	}
	return "/home/" + username
}

// Kind identifies the backend variant.
func (b *Backend) Kind() domain.BackendKind {
	return domain.BackendRemoteFS
}

// Root returns the resolved home directory.
func (b *Backend) Root() string {
	return b.root
}

// List reads the remote directory and maps each entry to a FileEntry.
// Symbolic links are resolved to their target's file-vs-directory nature;
// unresolvable links become non-directory entries of unknown size.
func (b *Backend) List(ctx context.Context, dirPath string) ([]domain.FileEntry, error) {
	infos, err := b.client.ReadDir(dirPath)
	if err != nil {
		return nil, b.mapPathError("readdir", dirPath, err, domain.ErrRemoteListFailed)
	}

	entries := make([]domain.FileEntry, 0, len(infos))
	for _, fi := range infos {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entries = append(entries, b.entryFor(dirPath, fi))
	}

	domain.SortEntries(entries)
	return entries, nil
}

// entryFor maps one remote FileInfo, chasing symlinks via Stat.
func (b *Backend) entryFor(dirPath string, fi os.FileInfo) domain.FileEntry {
	full := path.Join(dirPath, fi.Name())
	entry := domain.FileEntry{
		Name:    fi.Name(),
		Path:    full,
		Size:    fi.Size(),
		IsDir:   fi.IsDir(),
		ModTime: fi.ModTime(),
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		if target, err := b.client.Stat(full); err == nil {
			entry.IsDir = target.IsDir()
			entry.Size = target.Size()
		} else {
			// Dangling link: report as a file of unknown size.
			entry.IsDir = false
			entry.Size = 0
		}
	}

	if !entry.IsDir {
		entry.MediaType = classifier.ByName(entry.Name)
	} else {
		entry.Size = 0
	}
	return entry
}

// Read streams the remote file into memory, bounded by the configured max
// transfer size. The copy loop checks ctx so an abandoned read releases
// the transport promptly.
func (b *Backend) Read(ctx context.Context, filePath string) ([]byte, error) {
	if fi, err := b.client.Stat(filePath); err == nil && fi.Size() > b.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrFileTooLarge, filePath, fi.Size(), b.maxBytes)
	}

	f, err := b.client.Open(filePath)
	if err != nil {
		return nil, b.mapPathError("open", filePath, err, domain.ErrTransferFailed)
	}
	defer f.Close()

	// The Stat guard can be raced by a growing file; the limit holds
	// regardless.
	limited := io.LimitReader(f, b.maxBytes+1)

	var buf []byte
	chunk := make([]byte, readChunkSize)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, readErr := limited.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if int64(len(buf)) > b.maxBytes {
				return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrFileTooLarge, filePath, b.maxBytes)
			}
		}
		if readErr == io.EOF {
			return buf, nil
		}
		if readErr != nil {
			if isConnectionLost(readErr) {
				return nil, fmt.Errorf("%w: read %s: %v", domain.ErrUnreachable, filePath, readErr)
			}
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrTransferFailed, filePath, readErr)
		}
	}
}

// Close releases the SFTP channel and the SSH connection.
func (b *Backend) Close() error {
	cerr := b.client.Close()
	if b.sshClient != nil {
		if err := b.sshClient.Close(); err != nil && cerr == nil {
			cerr = err
		}
	}
	return cerr
}

// mapPathError converts sftp failures to domain errors, distinguishing
// missing paths and a collapsed transport from per-file trouble.
func (b *Backend) mapPathError(op, p string, err error, fallbackKind error) error {
	if isNotExist(err) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, p)
	}
	if isConnectionLost(err) {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrUnreachable, op, p, err)
	}
	return fmt.Errorf("%w: %s %s: %v", fallbackKind, op, p, err)
}

// isConnectionLost matches the sftp status codes a dead SSH connection
// produces. Operations failing this way cannot succeed again on the same
// session.
func isConnectionLost(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection lost") ||
		strings.Contains(msg, "no connection") ||
		strings.Contains(msg, "use of closed network connection")
}

func isNotExist(err error) bool {
	if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "no such file") || strings.Contains(msg, "does not exist")
}

var _ backend.Backend = (*Backend)(nil)
