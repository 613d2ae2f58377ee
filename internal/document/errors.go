package document

import "errors"

// ErrorKind classifies pipeline failures so callers can pick a UI path
// without parsing message text
type ErrorKind int

const (
	// UnsupportedFormat means the signature bytes match none of PDF, JPEG, PNG
	UnsupportedFormat ErrorKind = iota
	// CorruptedDocument means the buffer is not a readable PDF container
	CorruptedDocument
	// PasswordRequired means the PDF is encrypted and no password was tried yet
	PasswordRequired
	// InvalidPassword means a password was tried and rejected
	InvalidPassword
	// CorruptedImage means a raster buffer could not be decoded or re-encoded
	CorruptedImage
)

// String returns the wire name of the kind, used in API error payloads
func (k ErrorKind) String() string {
	switch k {
	case UnsupportedFormat:
		return "unsupported_format"
	case CorruptedDocument:
		return "corrupted_document"
	case PasswordRequired:
		return "password_required"
	case InvalidPassword:
		return "invalid_password"
	case CorruptedImage:
		return "corrupted_image"
	default:
		return "unknown"
	}
}

// Error is a pipeline failure carrying its kind and a human-readable message
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError creates an Error with the given kind and message
func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrorKind from an error chain. The second return value
// is false when the error did not originate in this pipeline.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given pipeline error kind
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
