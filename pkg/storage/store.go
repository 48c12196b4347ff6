// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"

	"github.com/ipfs/go-cid"
)

// Store implementations know how to persist and retrieve opaque blobs keyed
// by their content identifier.
//
// Typically this is something file system-like. Examples are S3, local FS, NFS, ...
// Implementations of this interface are assumed to be fairly simple:
//
//   - Put MUST be idempotent: writing a CID that is already present is a no-op success.
//   - Stored objects MUST be immutable.
//   - Get MUST return status.ErrNotFound when the CID is absent.
//
// Callers are responsible for supplying bytes that actually hash to the key:
// stores address blobs, they do not verify them.
type Store interface {
	String() string
	Has(context.Context, cid.Cid) (bool, error)
	Get(context.Context, cid.Cid) (io.ReadCloser, error)
	Put(context.Context, cid.Cid, io.Reader) error
	Delete(context.Context, cid.Cid) error
	Keys(context.Context) ([]cid.Cid, error)
	Clear(context.Context) error
}

// PipeIO copies a reader to a writer using a fixed intermediate buffer,
// so arbitrarily large objects never need to be materialized in memory.
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	buf := make([]byte, 32*1024)
	return io.CopyBuffer(writer, reader, buf)
}
