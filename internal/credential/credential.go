// Package credential parses and validates SSH private-key material.
//
// Key material is held only in process memory. Callers must Zero a
// credential on session teardown; nothing in this package ever writes key
// bytes to disk or into log output.
package credential

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/lensview/lensview/internal/domain"
)

// Format identifies the on-disk encoding of a private key. It is detected
// from the key material itself, never declared by the user.
type Format string

const (
	FormatOpenSSH Format = "openssh"
	FormatRSA     Format = "rsa"
	FormatEC      Format = "ec"
	FormatPKCS8   Format = "pkcs8"
	FormatUnknown Format = "unknown"
)

// Credential is parsed, validated private-key material. Immutable once
// parsed, except for Zero which wipes it.
type Credential struct {
	pemBytes   []byte
	passphrase []byte
	format     Format
	signer     ssh.Signer
}

// Parse validates raw key material and returns a Credential. The material
// may be a PEM-encoded private key or a base64 wrapping of one (mobile
// callers historically sent base64). passphrase may be empty for
// unencrypted keys.
func Parse(material []byte, passphrase string) (*Credential, error) {
	pemBytes := normalize(material)

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", domain.ErrMalformedKey)
	}

	var (
		signer ssh.Signer
		err    error
	)
	if passphrase == "" {
		signer, err = ssh.ParsePrivateKey(pemBytes)
	} else {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: key is encrypted", domain.ErrPassphraseRequired)
		}
		if passphrase != "" && isWrongPassphrase(err) {
			return nil, fmt.Errorf("%w: wrong passphrase", domain.ErrPassphraseRequired)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedKey, err)
	}

	return &Credential{
		pemBytes:   pemBytes,
		passphrase: []byte(passphrase),
		format:     detectFormat(block.Type),
		signer:     signer,
	}, nil
}

// isWrongPassphrase detects decryption failures for both openssh and
// PEM-encrypted keys. The ssh package does not export a stable sentinel
// for either, so match on the known error texts.
func isWrongPassphrase(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "decryption password incorrect") ||
		strings.Contains(msg, "passphrase")
}

// Signer returns the ssh.Signer for public-key authentication.
func (c *Credential) Signer() ssh.Signer {
	return c.signer
}

// Format returns the detected key format.
func (c *Credential) Format() Format {
	return c.format
}

// PEM exposes the raw PEM bytes for transports that parse key material
// themselves (the git transport does). The returned slice aliases the
// credential's memory; it becomes unusable after Zero.
func (c *Credential) PEM() []byte {
	return c.pemBytes
}

// Passphrase returns the passphrase supplied at parse time ("" when none).
func (c *Credential) Passphrase() string {
	return string(c.passphrase)
}

// Zero overwrites the key material and passphrase in place. The credential
// must not be used afterwards.
func (c *Credential) Zero() {
	for i := range c.pemBytes {
		c.pemBytes[i] = 0
	}
	for i := range c.passphrase {
		c.passphrase[i] = 0
	}
	c.signer = nil
}

// normalize strips whitespace and unwraps base64-encoded PEM material.
func normalize(material []byte) []byte {
	trimmed := bytes.TrimSpace(material)
	if bytes.HasPrefix(trimmed, []byte("-----BEGIN")) {
		return trimmed
	}
	decoded, err := base64.StdEncoding.DecodeString(string(trimmed))
	if err != nil {
		return trimmed
	}
	if bytes.HasPrefix(bytes.TrimSpace(decoded), []byte("-----BEGIN")) {
		return bytes.TrimSpace(decoded)
	}
	return trimmed
}

// detectFormat maps a PEM block type to a key format tag
func detectFormat(blockType string) Format {
	switch blockType {
	case "OPENSSH PRIVATE KEY":
		return FormatOpenSSH
	case "RSA PRIVATE KEY":
		return FormatRSA
	case "EC PRIVATE KEY":
		return FormatEC
	case "PRIVATE KEY":
		return FormatPKCS8
	default:
		return FormatUnknown
	}
}
