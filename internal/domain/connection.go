package domain

import "fmt"

// BackendKind identifies the storage backend variant of a connection
type BackendKind string

const (
	// BackendRemoteFS is a direct SFTP session to a single host
	BackendRemoteFS BackendKind = "remote-filesystem"
	// BackendRepoMirror is a local working copy of a remote git repository
	BackendRepoMirror BackendKind = "repository-mirror"
)

// IsValid checks if the backend kind is recognized
func (k BackendKind) IsValid() bool {
	switch k {
	case BackendRemoteFS, BackendRepoMirror:
		return true
	default:
		return false
	}
}

// ParseBackendKind parses a string into a BackendKind
func ParseBackendKind(s string) (BackendKind, error) {
	k := BackendKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown backend kind: %s", ErrInvalidDescriptor, s)
	}
	return k, nil
}

// ConnectionDescriptor addresses one storage backend. Exactly one of the
// kind-specific field groups is meaningful, selected by Kind. Key material
// is never part of the descriptor so that it can be persisted and replayed
// safely.
type ConnectionDescriptor struct {
	Kind BackendKind

	// Remote filesystem fields
	Host     string
	Port     int
	Username string

	// Repository mirror fields
	RepoURL     string
	Branch      string
	StagingPath string
}

// Validate checks if the descriptor is complete for its kind
func (d ConnectionDescriptor) Validate() error {
	switch d.Kind {
	case BackendRemoteFS:
		if d.Host == "" {
			return fmt.Errorf("%w: host cannot be empty", ErrInvalidDescriptor)
		}
		if d.Username == "" {
			return fmt.Errorf("%w: username cannot be empty", ErrInvalidDescriptor)
		}
		if d.Port < 0 || d.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidDescriptor, d.Port)
		}
		return nil
	case BackendRepoMirror:
		if d.RepoURL == "" {
			return fmt.Errorf("%w: repository URL cannot be empty", ErrInvalidDescriptor)
		}
		if d.Branch == "" {
			return fmt.Errorf("%w: branch cannot be empty", ErrInvalidDescriptor)
		}
		if d.StagingPath == "" {
			return fmt.Errorf("%w: staging path cannot be empty", ErrInvalidDescriptor)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown backend kind: %s", ErrInvalidDescriptor, d.Kind)
	}
}

// Target returns a short human-readable description of the connection
// target, suitable for logs and the profile history. Never includes
// credential material.
func (d ConnectionDescriptor) Target() string {
	switch d.Kind {
	case BackendRemoteFS:
		return fmt.Sprintf("%s@%s:%d", d.Username, d.Host, d.Port)
	case BackendRepoMirror:
		return fmt.Sprintf("%s#%s", d.RepoURL, d.Branch)
	default:
		return string(d.Kind)
	}
}
