// Package dag assembles content-addressed DAGs bottom-up: chunk nodes
// into file nodes, file and folder entries into folder nodes, and a
// metadata record into the published root.
//
// A node's CID is computed only after all its children's CIDs are known
// and embedded in its encoding, so the graph is acyclic by construction.
// Finalized nodes are handed to a Sink child-before-parent and released:
// large files never materialize as one in-memory DAG.
package dag

import (
	"context"
	"io"

	"github.com/docker/go-units"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/oneconcern/dagpipe/pkg/chunker"
	"github.com/oneconcern/dagpipe/pkg/dagcid"
	"github.com/oneconcern/dagpipe/pkg/node"
)

const (
	// DefaultChunkSize is the default size of a leaf segment (1 MB)
	DefaultChunkSize uint32 = 1 * units.MiB

	// MaxChunkSize bounds the size of a single leaf buffer
	MaxChunkSize uint32 = 16 * units.MiB
)

// Sink receives every finalized node, child-before-parent.
//
// Implementations may process chunk emissions asynchronously, but must
// have acknowledged all previously emitted nodes before Push returns for
// a node that links to them. The pipeline relies on this to never
// transmit a parent ahead of its children.
type Sink interface {
	Push(ctx context.Context, key cid.Cid, n node.Node, encoded []byte) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, key cid.Cid, n node.Node, encoded []byte) error

// Push calls f
func (f SinkFunc) Push(ctx context.Context, key cid.Cid, n node.Node, encoded []byte) error {
	return f(ctx, key, n, encoded)
}

// DiscardSink drops every emitted node. Useful to compute CIDs without
// transmitting anything.
var DiscardSink = SinkFunc(func(context.Context, cid.Cid, node.Node, []byte) error {
	return nil
})

// Builder constructs DAGs over a sink
type Builder struct {
	chunkSize uint32
	hash      uint64
	sink      Sink
	l         *zap.Logger
}

// Option to configure a builder
type Option func(*Builder)

// ChunkSize specifies the leaf size used to split file content
func ChunkSize(sz uint32) Option {
	return func(b *Builder) {
		b.chunkSize = sz
	}
}

// Hash specifies the multihash code used to derive CIDs
func Hash(code uint64) Option {
	return func(b *Builder) {
		b.hash = code
	}
}

// WithSink specifies where finalized nodes are pushed
func WithSink(s Sink) Option {
	return func(b *Builder) {
		b.sink = s
	}
}

// Logger sets a logger for this builder
func Logger(l *zap.Logger) Option {
	return func(b *Builder) {
		b.l = l
	}
}

// New creates a builder. An out-of-range chunk size is a configuration
// error rejected here, not at first use.
func New(opts ...Option) (*Builder, error) {
	b := &Builder{
		chunkSize: DefaultChunkSize,
		hash:      dagcid.DefaultHash,
		sink:      DiscardSink,
		l:         zap.NewNop(),
	}
	for _, apply := range opts {
		apply(b)
	}
	if b.chunkSize == 0 || b.chunkSize > MaxChunkSize {
		return nil, chunker.ErrChunkSize.WrapMessage("%d not in (0, %d]", b.chunkSize, MaxChunkSize)
	}
	return b, nil
}

// finalize encodes a node, derives its CID and pushes it to the sink
func (b *Builder) finalize(ctx context.Context, n node.Node) (cid.Cid, error) {
	encoded, err := node.Encode(n)
	if err != nil {
		return cid.Undef, err
	}
	key, err := dagcid.Sum(n.Codec(), b.hash, encoded)
	if err != nil {
		return cid.Undef, err
	}
	if err := b.sink.Push(ctx, key, n, encoded); err != nil {
		return cid.Undef, err
	}
	return key, nil
}

// File chunks a byte source and builds its file DAG, returning the head
// CID and the total byte size.
//
// A file that fits in a single chunk produces a FileNode carrying the
// payload inline, with no chunk indirection. Anything larger produces
// one ChunkNode per segment plus a FileNode referencing them in order.
func (b *Builder) File(ctx context.Context, r io.Reader) (cid.Cid, uint64, error) {
	chk, err := chunker.New(r, b.chunkSize)
	if err != nil {
		return cid.Undef, 0, err
	}

	var (
		first []byte
		links []cid.Cid
		total uint64
	)

	for {
		segment, err := chk.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cid.Undef, 0, err
		}
		total += uint64(len(segment))

		if first == nil && links == nil {
			// withhold the first segment: if it turns out to be the only
			// one, the file is carried inline and no chunk node exists
			first = segment
			continue
		}
		if first != nil {
			key, err := b.finalize(ctx, &node.ChunkNode{Data: first})
			if err != nil {
				return cid.Undef, 0, err
			}
			links = append(links, key)
			first = nil
		}
		key, err := b.finalize(ctx, &node.ChunkNode{Data: segment})
		if err != nil {
			return cid.Undef, 0, err
		}
		links = append(links, key)
	}

	var fileNode *node.FileNode
	if links == nil {
		if first == nil {
			first = []byte{}
		}
		fileNode = &node.FileNode{Inline: first, Size: total}
	} else {
		fileNode = &node.FileNode{Links: links, Size: total}
	}

	key, err := b.finalize(ctx, fileNode)
	if err != nil {
		return cid.Undef, 0, err
	}
	b.l.Debug("built file dag",
		zap.Stringer("cid", key),
		zap.Uint64("size", total),
		zap.Int("chunks", len(links)),
		zap.Bool("inline", fileNode.IsInline()),
	)
	return key, total, nil
}

// Folder builds a folder node over entries already computed for the
// folder's immediate children. Entry order is preserved. The declared
// folder size is the sum of the entry sizes: the builder trusts
// caller-supplied child sizes and never walks remote content.
func (b *Builder) Folder(ctx context.Context, entries []node.Entry) (cid.Cid, uint64, error) {
	if entries == nil {
		entries = []node.Entry{}
	}
	var total uint64
	for _, e := range entries {
		total += e.Size
	}
	folder := &node.FolderNode{Entries: entries, Size: total}

	key, err := b.finalize(ctx, folder)
	if err != nil {
		return cid.Undef, 0, err
	}
	b.l.Debug("built folder node",
		zap.Stringer("cid", key),
		zap.Uint64("size", total),
		zap.Int("entries", len(entries)),
	)
	return key, total, nil
}

// Metadata builds the presentation root for a transfer
func (b *Builder) Metadata(ctx context.Context, m *node.MetaNode) (cid.Cid, error) {
	key, err := b.finalize(ctx, m)
	if err != nil {
		return cid.Undef, err
	}
	b.l.Debug("built metadata root", zap.Stringer("cid", key), zap.String("name", m.Name))
	return key, nil
}
