package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSortEntries(t *testing.T) {
	entries := []FileEntry{
		{Name: "zeta.txt"},
		{Name: "Alpha.txt"},
		{Name: "alpha.txt"},
		{Name: "Pictures", IsDir: true},
		{Name: "archive", IsDir: true},
	}
	SortEntries(entries)

	want := []string{"archive", "Pictures", "Alpha.txt", "alpha.txt", "zeta.txt"}
	for i, name := range want {
		if entries[i].Name != name {
			t.Fatalf("order = %v, want %v", entryNames(entries), want)
		}
	}
}

func entryNames(entries []FileEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestFileEntry_MediaHelpers(t *testing.T) {
	img := FileEntry{MediaType: "image/png"}
	vid := FileEntry{MediaType: "video/mp4"}
	dir := FileEntry{IsDir: true}

	if !img.IsImage() || img.IsVideo() {
		t.Error("image entry misclassified")
	}
	if !vid.IsVideo() || vid.IsImage() {
		t.Error("video entry misclassified")
	}
	if dir.IsImage() || dir.IsVideo() {
		t.Error("directory misclassified")
	}
}

func TestParseBackendKind(t *testing.T) {
	if k, err := ParseBackendKind("remote-filesystem"); err != nil || k != BackendRemoteFS {
		t.Errorf("ParseBackendKind = %v, %v", k, err)
	}
	if k, err := ParseBackendKind("repository-mirror"); err != nil || k != BackendRepoMirror {
		t.Errorf("ParseBackendKind = %v, %v", k, err)
	}
	if _, err := ParseBackendKind("ftp"); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("ParseBackendKind(ftp) = %v, want ErrInvalidDescriptor", err)
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name string
		desc ConnectionDescriptor
		ok   bool
	}{
		{"valid sftp", ConnectionDescriptor{Kind: BackendRemoteFS, Host: "h", Username: "u", Port: 22}, true},
		{"sftp no host", ConnectionDescriptor{Kind: BackendRemoteFS, Username: "u"}, false},
		{"sftp no user", ConnectionDescriptor{Kind: BackendRemoteFS, Host: "h"}, false},
		{"sftp bad port", ConnectionDescriptor{Kind: BackendRemoteFS, Host: "h", Username: "u", Port: 70000}, false},
		{"valid mirror", ConnectionDescriptor{Kind: BackendRepoMirror, RepoURL: "r", Branch: "main", StagingPath: "/s"}, true},
		{"mirror no url", ConnectionDescriptor{Kind: BackendRepoMirror, Branch: "main", StagingPath: "/s"}, false},
		{"mirror no branch", ConnectionDescriptor{Kind: BackendRepoMirror, RepoURL: "r", StagingPath: "/s"}, false},
		{"unknown kind", ConnectionDescriptor{Kind: "ftp"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("Validate = %v, want ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestDescriptorTarget(t *testing.T) {
	sftp := ConnectionDescriptor{Kind: BackendRemoteFS, Host: "example.com", Port: 22, Username: "u"}
	if got := sftp.Target(); got != "u@example.com:22" {
		t.Errorf("Target = %q", got)
	}

	mirror := ConnectionDescriptor{Kind: BackendRepoMirror, RepoURL: "ssh://git@h/r.git", Branch: "main"}
	if got := mirror.Target(); got != "ssh://git@h/r.git#main" {
		t.Errorf("Target = %q", got)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrAuthFailed, "AuthFailed"},
		{fmt.Errorf("%w: dial example.com", ErrUnreachable), "Unreachable"},
		{fmt.Errorf("outer: %w", fmt.Errorf("%w: inner", ErrNotFound)), "NotFound"},
		{ErrNoActiveSession, "NoActiveSession"},
		{errors.New("something else"), "Internal"},
	}

	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
