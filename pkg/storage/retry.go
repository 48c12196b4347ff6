// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/oneconcern/dagpipe/pkg/errors"
	"github.com/oneconcern/dagpipe/pkg/storage/status"
)

const (
	// DefaultRetryAttempts is the number of times a failing I/O operation is tried in total
	DefaultRetryAttempts = 4

	// DefaultRetryBaseDelay is the backoff delay after the first failed attempt.
	// The delay doubles after every subsequent failure.
	DefaultRetryBaseDelay = 100 * time.Millisecond
)

// WithRetry wraps a store so transient transfer failures on Has, Get and Put
// are re-attempted with exponential backoff.
//
// Only I/O failures are retried: status.ErrNotFound and status.ErrInvalidKey
// are terminal and returned immediately, since retrying cannot conjure
// missing data or fix a malformed key.
func WithRetry(backend Store, attempts int, baseDelay time.Duration) Store {
	if attempts < 1 {
		attempts = DefaultRetryAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	return &retryStore{
		backend:   backend,
		attempts:  attempts,
		baseDelay: baseDelay,
	}
}

type retryStore struct {
	backend   Store
	attempts  int
	baseDelay time.Duration
}

func (r *retryStore) String() string {
	return r.backend.String() + "+retry"
}

func retriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, status.ErrNotFound) || errors.Is(err, status.ErrInvalidKey) {
		return false
	}
	return true
}

func (r *retryStore) do(ctx context.Context, op func() error) error {
	var err error
	delay := r.baseDelay
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return status.ErrTransfer.Wrap(ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err = op(); !retriable(err) {
			return err
		}
	}
	return err
}

func (r *retryStore) Has(ctx context.Context, key cid.Cid) (bool, error) {
	var has bool
	err := r.do(ctx, func() (e error) {
		has, e = r.backend.Has(ctx, key)
		return
	})
	return has, err
}

func (r *retryStore) Get(ctx context.Context, key cid.Cid) (io.ReadCloser, error) {
	var rdr io.ReadCloser
	err := r.do(ctx, func() (e error) {
		rdr, e = r.backend.Get(ctx, key)
		return
	})
	return rdr, err
}

func (r *retryStore) Put(ctx context.Context, key cid.Cid, source io.Reader) error {
	// Put is only retried when the source can be rewound: a consumed
	// reader cannot be replayed on the next attempt.
	seeker, ok := source.(io.Seeker)
	if !ok {
		return r.backend.Put(ctx, key, source)
	}
	return r.do(ctx, func() error {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return status.ErrTransfer.Wrap(err)
		}
		return r.backend.Put(ctx, key, source)
	})
}

func (r *retryStore) Delete(ctx context.Context, key cid.Cid) error {
	return r.backend.Delete(ctx, key)
}

func (r *retryStore) Keys(ctx context.Context) ([]cid.Cid, error) {
	return r.backend.Keys(ctx)
}

func (r *retryStore) Clear(ctx context.Context) error {
	return r.backend.Clear(ctx)
}
