// Package testkit provides a conformance suite exercising the Store
// contract, shared by all backend implementations.
package testkit

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/dagpipe/pkg/errors"
	"github.com/oneconcern/dagpipe/pkg/storage"
	"github.com/oneconcern/dagpipe/pkg/storage/status"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

// KeyFor hashes data into a raw CIDv1, the way stores are keyed in tests
func KeyFor(t testing.TB, data []byte) cid.Cid {
	t.Helper()
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	require.NoError(t, err)
	return cid.NewCidV1(cid.Raw, sum)
}

// RunStoreConformance verifies the Store contract against a backend
func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		store := newStore(t)
		want := []byte("hello, dagpipe storage")
		key := KeyFor(t, want)

		require.NoError(t, store.Put(ctx, key, bytes.NewReader(want)))

		rdr, err := store.Get(ctx, key)
		require.NoError(t, err)
		got, err := io.ReadAll(rdr)
		require.NoError(t, err)
		require.NoError(t, rdr.Close())
		require.Equal(t, want, got)
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		store := newStore(t)
		b := []byte("same bytes")
		key := KeyFor(t, b)

		require.NoError(t, store.Put(ctx, key, bytes.NewReader(b)))
		require.NoError(t, store.Put(ctx, key, bytes.NewReader(b)))

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		require.True(t, key.Equals(keys[0]))
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		store := newStore(t)
		b := []byte("missing")
		key := KeyFor(t, b)

		has, err := store.Has(ctx, key)
		require.NoError(t, err)
		require.False(t, has)

		_, err = store.Get(ctx, key)
		require.True(t, errors.Is(err, status.ErrNotFound))

		require.NoError(t, store.Put(ctx, key, bytes.NewReader(b)))
		has, err = store.Has(ctx, key)
		require.NoError(t, err)
		require.True(t, has)
	})

	t.Run("RejectUndefinedKey", func(t *testing.T) {
		store := newStore(t)
		var undef cid.Cid

		has, err := store.Has(ctx, undef)
		require.False(t, has)
		require.Error(t, err)

		_, err = store.Get(ctx, undef)
		require.Error(t, err)
	})

	t.Run("DeleteAndClear", func(t *testing.T) {
		store := newStore(t)
		b1, b2 := []byte("one"), []byte("two")
		k1, k2 := KeyFor(t, b1), KeyFor(t, b2)

		require.NoError(t, store.Put(ctx, k1, bytes.NewReader(b1)))
		require.NoError(t, store.Put(ctx, k2, bytes.NewReader(b2)))

		require.NoError(t, store.Delete(ctx, k1))
		has, err := store.Has(ctx, k1)
		require.NoError(t, err)
		require.False(t, has)

		require.NoError(t, store.Clear(ctx))
		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		require.Empty(t, keys)
	})
}
