// Package thumbnail decodes source images and produces small, compactly
// encoded previews.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/lensview/lensview/internal/domain"

	// Register decoders for formats imaging does not handle natively.
	_ "golang.org/x/image/webp"
)

// Result is an encoded thumbnail plus its output MIME type.
type Result struct {
	Data []byte
	MIME string
}

const jpegQuality = 85

// Generate decodes src, resizes it to fit within maxDim on the long edge
// preserving aspect ratio, and re-encodes it. Lossless source formats with
// an encoder (png, gif) keep their format; everything else becomes jpeg.
// Images already within bounds are re-encoded without upscaling.
func Generate(src []byte, maxDim int) (Result, error) {
	if maxDim <= 0 {
		return Result{}, fmt.Errorf("%w: max dimension %d", domain.ErrDecodeFailed, maxDim)
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}

	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	outFormat, mime := encodingFor(format)
	switch outFormat {
	case imaging.JPEG:
		err = imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	default:
		err = imaging.Encode(&buf, resized, outFormat)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: encode: %v", domain.ErrDecodeFailed, err)
	}

	return Result{Data: buf.Bytes(), MIME: mime}, nil
}

// encodingFor picks the output encoding for a source format name as
// registered with the image package ("jpeg", "png", "gif", "webp", ...).
func encodingFor(format string) (imaging.Format, string) {
	switch format {
	case "png":
		return imaging.PNG, "image/png"
	case "gif":
		return imaging.GIF, "image/gif"
	default:
		return imaging.JPEG, "image/jpeg"
	}
}
