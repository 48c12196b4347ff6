package node

import "github.com/oneconcern/dagpipe/pkg/errors"

var (
	// ErrEncode indicates a node could not be canonically encoded
	ErrEncode = errors.New("node encoding failure")

	// ErrTruncated indicates an encoding cut short of a complete item
	ErrTruncated = errors.New("truncated node encoding")

	// ErrMalformed indicates bytes that are not well-formed CBOR at all
	ErrMalformed = errors.New("malformed node encoding")

	// ErrUnknownKind indicates an encoding with an unrecognized variant tag
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrInvalidField indicates a well-formed encoding carrying schema-invalid content
	ErrInvalidField = errors.New("schema-invalid node field")
)
