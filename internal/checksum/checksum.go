// Package checksum computes and verifies SHA-256 content digests. The
// repository mirror backend uses it to check materialized large objects
// against the oid declared in their pointer file.
package checksum

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
)

const bufferSize = 32 * 1024

// Sum streams reader through SHA-256 and returns the hex-encoded digest.
// The read is abandoned when ctx is cancelled.
func Sum(ctx context.Context, reader io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, bufferSize)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			if _, hashErr := h.Write(buf[:n]); hashErr != nil {
				return "", fmt.Errorf("hash write error: %w", hashErr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumBytes returns the hex-encoded SHA-256 digest of data.
func SumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether data hashes to the expected hex digest. The
// comparison is constant-time.
func Verify(data []byte, expected string) bool {
	got := SumBytes(data)
	if len(got) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
