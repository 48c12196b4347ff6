// Copyright © 2018 One Concern

// Package status declares error constants returned by
// implementations of the Store interface.
//
// NOTE: such constants are located in a separate package to avoid
// creating undue cyclical dependencies between pkg/storage and one
// of its implementations.
package status

import "github.com/oneconcern/dagpipe/pkg/errors"

var (
	// Sentinel errors returned by implementations of the interface defined by storage

	// ErrNotFound indicates the store holds no object for the requested CID.
	// Retrying cannot conjure missing data: this error is terminal.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey indicates an undefined or malformed CID was used as a key
	ErrInvalidKey = errors.New("invalid object key")

	// ErrTransfer indicates an I/O failure talking to the backend. Operations
	// failing this way are safe to retry.
	ErrTransfer = errors.New("storage transfer failure")

	// ErrExists indicates that the resource already exists and cannot be overridden
	ErrExists = errors.New("exists already")

	// ErrNotSupported indicates that the backend does not support this call
	ErrNotSupported = errors.New("not supported")
)
