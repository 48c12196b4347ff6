package pipeline

import (
	"bytes"
	"context"
	"sync"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/oneconcern/dagpipe/pkg/node"
	"github.com/oneconcern/dagpipe/pkg/pipeline/status"
	"github.com/oneconcern/dagpipe/pkg/storage"
)

// casSink transmits finalized nodes to a content-addressed backend.
//
// Chunk payloads are stored concurrently, bounded by a semaphore.
// A structural node links previously emitted nodes, so its Push first
// drains all outstanding chunk writes: a stored parent never references
// a child the backend has not acknowledged.
type casSink struct {
	store storage.Store
	sem   chan struct{}
	wg    sync.WaitGroup
	l     *zap.Logger

	mu  sync.Mutex
	err error
}

func newCasSink(store storage.Store, concurrency int, l *zap.Logger) *casSink {
	return &casSink{
		store: store,
		sem:   make(chan struct{}, concurrency),
		l:     l,
	}
}

func (s *casSink) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *casSink) firstErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// put writes one node, skipping keys the backend already holds
func (s *casSink) put(ctx context.Context, key cid.Cid, data []byte) error {
	ok, err := s.store.Has(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		s.l.Debug("node already stored", zap.Stringer("cid", key))
		return nil
	}
	return s.store.Put(ctx, key, bytes.NewReader(data))
}

// Push implements dag.Sink
func (s *casSink) Push(ctx context.Context, key cid.Cid, n node.Node, encoded []byte) error {
	if err := ctx.Err(); err != nil {
		return status.ErrInterrupted.Wrap(err)
	}
	if err := s.firstErr(); err != nil {
		return err
	}

	if n.Codec() == cid.Raw {
		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return status.ErrInterrupted.Wrap(ctx.Err())
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			if err := s.put(ctx, key, encoded); err != nil {
				s.fail(err)
			}
		}()
		return nil
	}

	// structural node: wait for every emitted child to be acknowledged
	s.wg.Wait()
	if err := s.firstErr(); err != nil {
		return err
	}
	return s.put(ctx, key, encoded)
}

// flush waits for outstanding writes and reports the first failure
func (s *casSink) flush() error {
	s.wg.Wait()
	return s.firstErr()
}
