// Package classifier derives a media kind (a full MIME string) for file
// entries. Extension lookup comes first; a byte-signature probe refines
// the answer when content bytes are already in hand, overriding a
// misleading extension.
package classifier

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extTable maps lowercase file extensions to MIME types. Video entries are
// always full MIME strings, never bare markers.
var extTable = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"svg":  "image/svg+xml",
	"heic": "image/heic",
	"heif": "image/heic",

	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"m4v":  "video/x-m4v",

	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",

	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",

	"txt":  "text/plain",
	"log":  "text/plain",
	"md":   "text/markdown",
	"json": "application/json",
	"xml":  "application/xml",
	"csv":  "text/csv",

	"zip": "application/zip",
	"tar": "application/x-tar",
	"gz":  "application/gzip",
	"rar": "application/vnd.rar",
	"7z":  "application/x-7z-compressed",
}

const fallback = "application/octet-stream"

// ByName returns the media kind derived from the file extension alone.
// Unknown or missing extensions map to application/octet-stream.
func ByName(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return fallback
	}
	if mime, ok := extTable[ext]; ok {
		return mime
	}
	return fallback
}

// ByContent refines classification with a byte-signature probe. The probe
// wins whenever it is decisive; the extension answer is kept only when
// sniffing came back with the generic fallback. data may be a prefix of
// the file (the signature lives in the first bytes).
func ByContent(name string, data []byte) string {
	if len(data) == 0 {
		return ByName(name)
	}
	sniffed := mimetype.Detect(data)
	mime := baseMIME(sniffed.String())
	if mime == "" || mime == fallback || mime == "text/plain" {
		// Indecisive probe: plain text and octet-stream match almost
		// anything, so the extension remains the better signal.
		return ByName(name)
	}
	return mime
}

// IsImage reports whether kind names an image type.
func IsImage(kind string) bool {
	return strings.HasPrefix(kind, "image/")
}

// IsVideo reports whether kind names a video type.
func IsVideo(kind string) bool {
	return strings.HasPrefix(kind, "video/")
}

// baseMIME strips any parameters ("text/plain; charset=utf-8" -> "text/plain")
func baseMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}
