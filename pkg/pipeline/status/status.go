// Package status exports errors produced by the pipeline package.
package status

import (
	"github.com/oneconcern/dagpipe/pkg/errors"
)

var (
	// ErrConfig indicates an invalid pipeline configuration (bad chunk
	// size, missing store, malformed password, ...)
	ErrConfig = errors.New("invalid pipeline configuration")

	// ErrIntegrity indicates downloaded bytes whose recomputed CID does
	// not match the CID they were requested under. Never retried and
	// never silently accepted.
	ErrIntegrity = errors.New("content does not match its cid")

	// ErrDecrypt indicates the encrypted stream could not be opened:
	// wrong key material or tampered ciphertext
	ErrDecrypt = errors.New("stream decryption failure")

	// ErrUnexpectedNode indicates a node variant that cannot appear at
	// this point of resolution (e.g. a folder where file content was
	// requested)
	ErrUnexpectedNode = errors.New("unexpected node kind during resolution")

	// ErrInterrupted signals that the transfer was cancelled before completion
	ErrInterrupted = errors.New("transfer interrupted")
)
