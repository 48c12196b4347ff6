// Package pipeline uploads byte sources and directory trees as
// content-addressed DAGs and reassembles them on download, with
// optional zstd compression and password-based encryption of the
// transferred streams.
package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/oneconcern/dagpipe/pkg/dag"
	"github.com/oneconcern/dagpipe/pkg/dagcid"
	"github.com/oneconcern/dagpipe/pkg/pipeline/status"
	"github.com/oneconcern/dagpipe/pkg/storage"
)

const (
	// DefaultConcurrency bounds the number of in-flight chunk transfers
	DefaultConcurrency = 64

	// DefaultCacheSize is the number of decoded chunks kept around
	// during downloads
	DefaultCacheSize = 32
)

// Pipeline transfers DAGs to and from one backend. A Pipeline carries
// no transfer state of its own and is safe for concurrent use; all
// per-transfer state lives in the upload and download calls.
type Pipeline struct {
	store       storage.Store
	chunkSize   uint32
	hash        uint64
	concurrency int
	cacheSize   int
	attempts    int
	baseDelay   time.Duration
	l           *zap.Logger
}

// Option to configure a pipeline
type Option func(*Pipeline)

// Backend sets the store transfers go to and from
func Backend(s storage.Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// ChunkSize sets the leaf segment size used to split file content
func ChunkSize(sz uint32) Option {
	return func(p *Pipeline) {
		p.chunkSize = sz
	}
}

// Hash sets the multihash code used to derive CIDs
func Hash(code uint64) Option {
	return func(p *Pipeline) {
		p.hash = code
	}
}

// Concurrency bounds the number of concurrent chunk transfers
func Concurrency(n int) Option {
	return func(p *Pipeline) {
		p.concurrency = n
	}
}

// CacheSize sets the number of decoded chunks cached during downloads
func CacheSize(n int) Option {
	return func(p *Pipeline) {
		p.cacheSize = n
	}
}

// Retry enables retries of transient backend failures with exponential
// backoff, starting at baseDelay
func Retry(attempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) {
		p.attempts = attempts
		p.baseDelay = baseDelay
	}
}

// Logger sets a logger for this pipeline
func Logger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		p.l = l
	}
}

// New creates a pipeline over a backend store
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		chunkSize:   dag.DefaultChunkSize,
		hash:        dagcid.DefaultHash,
		concurrency: DefaultConcurrency,
		cacheSize:   DefaultCacheSize,
		l:           zap.NewNop(),
	}
	for _, apply := range opts {
		apply(p)
	}
	if p.store == nil {
		return nil, status.ErrConfig.WrapMessage("a backend store is required")
	}
	if p.chunkSize == 0 || p.chunkSize > dag.MaxChunkSize {
		return nil, status.ErrConfig.WrapMessage("chunk size %d not in (0, %d]", p.chunkSize, dag.MaxChunkSize)
	}
	if p.concurrency < 1 {
		return nil, status.ErrConfig.WrapMessage("concurrency must be at least 1")
	}
	if p.cacheSize < 1 {
		return nil, status.ErrConfig.WrapMessage("cache size must be at least 1")
	}
	if dagcid.HashName(p.hash) == "" {
		return nil, status.ErrConfig.WrapMessage("unsupported hash %#x", p.hash)
	}
	if p.attempts > 0 {
		p.store = storage.WithRetry(p.store, p.attempts, p.baseDelay)
	}
	return p, nil
}

func (p *Pipeline) builder(sink dag.Sink) (*dag.Builder, error) {
	return dag.New(
		dag.ChunkSize(p.chunkSize),
		dag.Hash(p.hash),
		dag.WithSink(sink),
		dag.Logger(p.l),
	)
}
