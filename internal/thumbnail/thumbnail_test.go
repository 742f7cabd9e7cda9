package thumbnail

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/lensview/lensview/internal/domain"
)

// encodeTestImage renders a w x h gradient in the given format.
func encodeTestImage(t *testing.T, w, h int, format string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		t.Fatalf("unsupported test format %s", format)
	}
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode generated thumbnail: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestGenerate_FitsLongEdge(t *testing.T) {
	src := encodeTestImage(t, 800, 400, "jpeg")

	res, err := Generate(src, 200)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.MIME != "image/jpeg" {
		t.Errorf("MIME = %s, want image/jpeg", res.MIME)
	}

	w, h := decodeDims(t, res.Data)
	if w != 200 || h != 100 {
		t.Errorf("thumbnail = %dx%d, want 200x100 (aspect preserved)", w, h)
	}
}

func TestGenerate_PortraitAspect(t *testing.T) {
	src := encodeTestImage(t, 300, 600, "jpeg")

	res, err := Generate(src, 200)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	w, h := decodeDims(t, res.Data)
	if w != 100 || h != 200 {
		t.Errorf("thumbnail = %dx%d, want 100x200", w, h)
	}
}

func TestGenerate_NoUpscale(t *testing.T) {
	src := encodeTestImage(t, 50, 40, "jpeg")

	res, err := Generate(src, 200)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	w, h := decodeDims(t, res.Data)
	if w != 50 || h != 40 {
		t.Errorf("thumbnail = %dx%d, want 50x40 (no upscaling)", w, h)
	}
}

func TestGenerate_KeepsLosslessFormats(t *testing.T) {
	tests := []struct {
		format   string
		wantMIME string
	}{
		{"png", "image/png"},
		{"gif", "image/gif"},
		{"jpeg", "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			src := encodeTestImage(t, 256, 256, tt.format)
			res, err := Generate(src, 64)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if res.MIME != tt.wantMIME {
				t.Errorf("MIME = %s, want %s", res.MIME, tt.wantMIME)
			}
		})
	}
}

func TestGenerate_NotAnImage(t *testing.T) {
	_, err := Generate([]byte("definitely not image bytes"), 200)
	if !errors.Is(err, domain.ErrDecodeFailed) {
		t.Errorf("Generate = %v, want ErrDecodeFailed", err)
	}
}

func TestGenerate_BadDimension(t *testing.T) {
	src := encodeTestImage(t, 10, 10, "png")
	if _, err := Generate(src, 0); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Errorf("Generate with maxDim 0 = %v, want ErrDecodeFailed", err)
	}
}
