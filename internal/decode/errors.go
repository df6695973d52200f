package decode

import "errors"

var (
	// ErrSignatureMismatch reports a log whose topic0 does not equal the
	// event's signature hash.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrMalformedLog reports a topic count or data length that does not
	// match the word count expected for the event's parameter partition.
	ErrMalformedLog = errors.New("malformed log")

	// ErrUnsupportedType reports an ABI parameter type outside the static
	// value types this decoder handles.
	ErrUnsupportedType = errors.New("unsupported type")
)
