package domain

import (
	"sort"
	"strings"
	"time"
)

// FileEntry represents a single file or directory as reported by a storage
// backend. Entries are produced fresh on every List call and are never
// mutated in place; identity across calls is path equality only.
type FileEntry struct {
	// Name is the base name of the entry
	Name string

	// Path is the canonical absolute path within the session root
	Path string

	// Size in bytes (0 for directories and entries of unknown size)
	Size int64

	// IsDir indicates a directory (symlinks are resolved to their
	// target's nature where the backend protocol allows)
	IsDir bool

	// ModTime is the last modification time; zero when the backend does
	// not supply one
	ModTime time.Time

	// MediaType is the detected media kind as a full MIME string
	// (e.g. "image/jpeg", "video/mp4"); empty for directories and when
	// detection produced nothing useful
	MediaType string
}

// IsImage reports whether the entry was classified as an image.
func (e FileEntry) IsImage() bool {
	return strings.HasPrefix(e.MediaType, "image/")
}

// IsVideo reports whether the entry was classified as a video.
func (e FileEntry) IsVideo() bool {
	return strings.HasPrefix(e.MediaType, "video/")
}

// SortEntries orders entries for deterministic presentation: directories
// first, then case-insensitive name order, ties broken by raw byte order.
func SortEntries(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}
