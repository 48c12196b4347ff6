// Package memory provides an in-memory blob store, primarily used by
// tests and examples.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/oneconcern/dagpipe/pkg/storage"
	"github.com/oneconcern/dagpipe/pkg/storage/status"
)

// New creates an empty in-memory store
func New() storage.Store {
	return &memStore{
		objects: make(map[cid.Cid][]byte),
	}
}

type memStore struct {
	mu      sync.RWMutex
	objects map[cid.Cid][]byte
}

func (m *memStore) String() string {
	return "memory"
}

func (m *memStore) Has(_ context.Context, key cid.Cid) (bool, error) {
	if !key.Defined() {
		return false, status.ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Get(_ context.Context, key cid.Cid) (io.ReadCloser, error) {
	if !key.Defined() {
		return nil, status.ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, status.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) Put(_ context.Context, key cid.Cid, source io.Reader) error {
	if !key.Defined() {
		return status.ErrInvalidKey
	}
	b, err := io.ReadAll(source)
	if err != nil {
		return status.ErrTransfer.Wrap(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		// idempotent: the object is already there
		return nil
	}
	m.objects[key] = b
	return nil
}

func (m *memStore) Delete(_ context.Context, key cid.Cid) error {
	if !key.Defined() {
		return status.ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return status.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memStore) Keys(_ context.Context) ([]cid.Cid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]cid.Cid, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = make(map[cid.Cid][]byte)
	return nil
}
