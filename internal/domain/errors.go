package domain

import "errors"

// Credential errors - surfaced verbatim to the caller, never retried
var (
	// ErrMalformedKey indicates the private key could not be parsed
	ErrMalformedKey = errors.New("malformed private key")

	// ErrPassphraseRequired indicates the key is encrypted and no (or a
	// wrong) passphrase was supplied
	ErrPassphraseRequired = errors.New("passphrase required")

	// ErrAuthFailed indicates the remote rejected the credential
	ErrAuthFailed = errors.New("authentication failed")
)

// Transport errors - the session is left either fully connected or fully
// torn down, never half-open; retry policy belongs to the caller
var (
	// ErrUnreachable indicates the remote host could not be reached
	ErrUnreachable = errors.New("host unreachable")

	// ErrHandshakeFailed indicates transport or channel negotiation failed
	// after the host was reached
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrCloneFailed indicates the repository mirror could not be cloned
	// or brought up to date
	ErrCloneFailed = errors.New("clone failed")

	// ErrTransferFailed indicates a transfer broke mid-flight
	ErrTransferFailed = errors.New("transfer failed")

	// ErrRemoteListFailed indicates a remote directory read failed
	ErrRemoteListFailed = errors.New("remote list failed")

	// ErrMaterializeFailed indicates a large-object pointer could not be
	// resolved to real content
	ErrMaterializeFailed = errors.New("materialization failed")
)

// Path errors - always local and synchronous, never touch the network
var (
	// ErrInvalidPath indicates a traversal attempt or malformed input
	ErrInvalidPath = errors.New("invalid path")

	// ErrNotFound indicates the requested path does not exist
	ErrNotFound = errors.New("not found")
)

// Resource errors - scoped to a single operation, the session stays valid
var (
	// ErrFileTooLarge indicates the file exceeds the configured transfer limit
	ErrFileTooLarge = errors.New("file too large")

	// ErrNotThumbnailable indicates the path is not an image
	ErrNotThumbnailable = errors.New("not thumbnailable")

	// ErrDecodeFailed indicates image bytes could not be decoded or re-encoded
	ErrDecodeFailed = errors.New("decode failed")
)

// Session errors
var (
	// ErrNoActiveSession indicates a browsing call without a live session
	ErrNoActiveSession = errors.New("no active session")

	// ErrInvalidDescriptor indicates an incomplete or inconsistent
	// connection descriptor
	ErrInvalidDescriptor = errors.New("invalid connection descriptor")
)

// Configuration errors
var (
	// ErrConfigNotFound indicates no configuration file exists in the
	// search paths
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates the configuration could not be parsed or
	// failed validation
	ErrConfigInvalid = errors.New("invalid configuration")
)

// kindTable maps sentinel errors to the stable kind strings of the
// operation contract. Order matters: more specific sentinels first.
var kindTable = []struct {
	err  error
	kind string
}{
	{ErrMalformedKey, "MalformedKey"},
	{ErrPassphraseRequired, "PassphraseRequired"},
	{ErrAuthFailed, "AuthFailed"},
	{ErrUnreachable, "Unreachable"},
	{ErrHandshakeFailed, "HandshakeFailed"},
	{ErrCloneFailed, "CloneFailed"},
	{ErrMaterializeFailed, "MaterializeFailed"},
	{ErrTransferFailed, "TransferFailed"},
	{ErrRemoteListFailed, "RemoteListFailed"},
	{ErrInvalidPath, "InvalidPath"},
	{ErrNotFound, "NotFound"},
	{ErrFileTooLarge, "FileTooLarge"},
	{ErrNotThumbnailable, "NotThumbnailable"},
	{ErrDecodeFailed, "DecodeFailed"},
	{ErrNoActiveSession, "NoActiveSession"},
	{ErrInvalidDescriptor, "InvalidDescriptor"},
	{ErrConfigNotFound, "ConfigNotFound"},
	{ErrConfigInvalid, "ConfigInvalid"},
}

// Kind returns the stable error kind for err, or "Internal" when err does
// not wrap any known sentinel. Callers present the kind plus err.Error()
// as the human-readable detail.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return "Internal"
}
