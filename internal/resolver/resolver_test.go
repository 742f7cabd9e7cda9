package resolver

import (
	"errors"
	"testing"

	"github.com/lensview/lensview/internal/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		wantErr bool
	}{
		{"absolute root", "/home/ubuntu", false},
		{"slash root", "/", false},
		{"trailing slash collapsed", "/home/ubuntu/", false},
		{"relative root", "pictures", true},
		{"empty root", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.root)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.root, err, tt.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	r, err := New("/home/ubuntu")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty resolves to root", "", "/home/ubuntu", false},
		{"slash resolves to root", "/", "/home/ubuntu", false},
		{"dot resolves to root", ".", "/home/ubuntu", false},
		{"root itself", "/home/ubuntu", "/home/ubuntu", false},
		{"absolute under root", "/home/ubuntu/Pictures/a.jpg", "/home/ubuntu/Pictures/a.jpg", false},
		{"relative joined to root", "Pictures/a.jpg", "/home/ubuntu/Pictures/a.jpg", false},
		{"redundant separators collapsed", "/home/ubuntu//Pictures///a.jpg", "/home/ubuntu/Pictures/a.jpg", false},
		{"trailing slash collapsed", "/home/ubuntu/Pictures/", "/home/ubuntu/Pictures", false},
		{"dot segments collapsed", "/home/ubuntu/./Pictures", "/home/ubuntu/Pictures", false},
		{"traversal escaping root", "/home/ubuntu/../root", "", true},
		{"traversal inside root", "Pictures/../notes.txt", "", true},
		{"cancelling traversal still rejected", "a/../b", "", true},
		{"bare parent", "..", "", true},
		{"absolute outside root", "/etc/passwd", "", true},
		{"sibling prefix not under root", "/home/ubuntu2/a.jpg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidPath) {
					t.Errorf("Resolve(%q) error = %v, want ErrInvalidPath", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolve_NulByte(t *testing.T) {
	r, _ := New("/data")
	if _, err := r.Resolve("a\x00b"); !errors.Is(err, domain.ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath for NUL byte, got %v", err)
	}
}

func TestRelative(t *testing.T) {
	r, _ := New("/srv/mirror")

	tests := []struct {
		resolved string
		want     string
	}{
		{"/srv/mirror", ""},
		{"/srv/mirror/video.mp4", "video.mp4"},
		{"/srv/mirror/photos/a.jpg", "photos/a.jpg"},
	}

	for _, tt := range tests {
		if got := r.Relative(tt.resolved); got != tt.want {
			t.Errorf("Relative(%q) = %q, want %q", tt.resolved, got, tt.want)
		}
	}
}

func TestRootSlash(t *testing.T) {
	r, err := New("/")
	if err != nil {
		t.Fatalf("New(/) failed: %v", err)
	}
	got, err := r.Resolve("/anything/below")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "/anything/below" {
		t.Errorf("Resolve = %q", got)
	}
}
