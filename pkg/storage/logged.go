// Copyright © 2019 One Concern

package storage

import (
	"context"
	"io"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
)

// WithLogging wraps a store with debug logging on every operation
func WithLogging(backend Store, l *zap.Logger) Store {
	if l == nil {
		l = zap.NewNop()
	}
	return &loggedStore{backend: backend, l: l.With(zap.String("store", backend.String()))}
}

type loggedStore struct {
	backend Store
	l       *zap.Logger
}

func (s *loggedStore) String() string {
	return s.backend.String()
}

func (s *loggedStore) Has(ctx context.Context, key cid.Cid) (bool, error) {
	has, err := s.backend.Has(ctx, key)
	s.l.Debug("store has", zap.Stringer("key", key), zap.Bool("has", has), zap.Error(err))
	return has, err
}

func (s *loggedStore) Get(ctx context.Context, key cid.Cid) (io.ReadCloser, error) {
	rdr, err := s.backend.Get(ctx, key)
	s.l.Debug("store get", zap.Stringer("key", key), zap.Error(err))
	return rdr, err
}

func (s *loggedStore) Put(ctx context.Context, key cid.Cid, source io.Reader) error {
	err := s.backend.Put(ctx, key, source)
	s.l.Debug("store put", zap.Stringer("key", key), zap.Error(err))
	return err
}

func (s *loggedStore) Delete(ctx context.Context, key cid.Cid) error {
	err := s.backend.Delete(ctx, key)
	s.l.Debug("store delete", zap.Stringer("key", key), zap.Error(err))
	return err
}

func (s *loggedStore) Keys(ctx context.Context) ([]cid.Cid, error) {
	keys, err := s.backend.Keys(ctx)
	s.l.Debug("store keys", zap.Int("count", len(keys)), zap.Error(err))
	return keys, err
}

func (s *loggedStore) Clear(ctx context.Context) error {
	err := s.backend.Clear(ctx)
	s.l.Debug("store clear", zap.Error(err))
	return err
}
