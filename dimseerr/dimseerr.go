// Package dimseerr names the error kinds spec §7 distinguishes, so the
// provider and dispatcher can tell "this aborts the association" from
// "this becomes a status code" without string-matching.
package dimseerr

import "errors"

// Kind classifies a DIMSE-level failure.
type Kind int

const (
	// Programmer is a misuse of a primitive setter or a missing
	// mandatory field at encode time. Raised synchronously, never
	// reaches the wire.
	Programmer Kind = iota
	// PeerProtocol is an unknown command field, a missing mandatory
	// element in a received Command Set, or a mis-sequenced PDV
	// fragment. Triggers DUL Evt19 and an association abort.
	PeerProtocol
	// Handler is a user intervention-handler exception. The
	// dispatcher turns it into a service-specific status code.
	Handler
	// PayloadDecode is a failure to decode a request Identifier/
	// DataSet under the negotiated transfer syntax.
	PayloadDecode
)

// Error wraps an underlying error with its DIMSE error kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
