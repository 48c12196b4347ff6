package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/dagpipe/pkg/errors"
	"github.com/oneconcern/dagpipe/pkg/storage/status"
)

// flakyStore fails every operation a fixed number of times before succeeding
type flakyStore struct {
	mu       sync.Mutex
	failures int
	objects  map[cid.Cid][]byte
	calls    int
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{failures: failures, objects: make(map[cid.Cid][]byte)}
}

func (f *flakyStore) trip() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return status.ErrTransfer.WrapMessage("simulated outage")
	}
	return nil
}

func (f *flakyStore) String() string { return "flaky" }

func (f *flakyStore) Has(_ context.Context, key cid.Cid) (bool, error) {
	if err := f.trip(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *flakyStore) Get(_ context.Context, key cid.Cid) (io.ReadCloser, error) {
	if err := f.trip(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, status.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *flakyStore) Put(_ context.Context, key cid.Cid, src io.Reader) error {
	if err := f.trip(); err != nil {
		return err
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *flakyStore) Delete(_ context.Context, key cid.Cid) error { return nil }
func (f *flakyStore) Keys(_ context.Context) ([]cid.Cid, error)   { return nil, nil }
func (f *flakyStore) Clear(_ context.Context) error               { return nil }

func testKey(t testing.TB, data []byte) cid.Cid {
	t.Helper()
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	require.NoError(t, err)
	return cid.NewCidV1(cid.Raw, sum)
}

func TestRetryRecovers(t *testing.T) {
	backend := newFlakyStore(2)
	store := WithRetry(backend, 4, time.Millisecond)
	ctx := context.Background()

	b := []byte("eventually consistent")
	key := testKey(t, b)

	require.NoError(t, store.Put(ctx, key, bytes.NewReader(b)))

	rdr, err := store.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.Equal(t, b, got)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	backend := newFlakyStore(100)
	store := WithRetry(backend, 3, time.Millisecond)

	_, err := store.Get(context.Background(), testKey(t, []byte("x")))
	require.True(t, errors.Is(err, status.ErrTransfer))
	require.Equal(t, 3, backend.calls)
}

func TestRetryDoesNotRetryNotFound(t *testing.T) {
	backend := newFlakyStore(0)
	store := WithRetry(backend, 5, time.Millisecond)

	_, err := store.Get(context.Background(), testKey(t, []byte("absent")))
	require.True(t, errors.Is(err, status.ErrNotFound))
	require.Equal(t, 1, backend.calls)
}

func TestMultiPut(t *testing.T) {
	ctx := context.Background()
	good := newFlakyStore(0)
	bad := newFlakyStore(100)

	b := []byte("replicate me")
	key := testKey(t, b)

	// a tolerated failure does not break the multi-store write
	err := MultiPut(ctx, []MultiStoreUnit{
		{Store: good},
		{Store: bad, TolerateFailure: true},
	}, key, b)
	require.NoError(t, err)

	has, err := good.Has(ctx, key)
	require.NoError(t, err)
	require.True(t, has)

	// a non-tolerated failure does
	err = MultiPut(ctx, []MultiStoreUnit{
		{Store: good},
		{Store: bad},
	}, key, b)
	require.Error(t, err)
}
