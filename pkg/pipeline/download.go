package pipeline

import (
	"bytes"
	"context"
	"io"
	gopath "path"

	"github.com/hashicorp/golang-lru"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/oneconcern/dagpipe/pkg/dagcid"
	"github.com/oneconcern/dagpipe/pkg/node"
	"github.com/oneconcern/dagpipe/pkg/pipeline/status"
)

// DownloadFile opens the content published under root for reading. The
// returned reader delivers the original plaintext bytes: encryption and
// compression recorded in the metadata are undone transparently, and
// every fetched node is verified against its CID.
//
// Close releases prefetch workers and terminates the progress events.
func (p *Pipeline) DownloadFile(ctx context.Context, root cid.Cid, opts ...TransferOption) (io.ReadCloser, *node.MetaNode, error) {
	o := newTransferOptions(opts)
	meta, data, err := p.openMeta(ctx, root)
	if err != nil {
		return nil, nil, err
	}
	file, ok := data.(*node.FileNode)
	if !ok {
		return nil, nil, status.ErrUnexpectedNode.WrapMessage("%s where file content was expected", data.Kind())
	}

	t := newTracker(TransferDownload, meta.Size, o.events)
	rc, err := p.openFile(ctx, file, meta, o, t)
	if err != nil {
		t.finish()
		return nil, nil, err
	}
	p.l.Debug("opened download", zap.Stringer("cid", root), zap.String("name", meta.Name))
	return &trackedReadCloser{r: rc, t: t}, meta, nil
}

// Download resolves root and writes its content to out. A file root
// produces a single file named after its metadata; a folder root
// reproduces the tree, emitting files lazily as the walk reaches them
// rather than materializing the DAG first.
func (p *Pipeline) Download(ctx context.Context, root cid.Cid, out FileSink, opts ...TransferOption) (*node.MetaNode, error) {
	o := newTransferOptions(opts)
	meta, data, err := p.openMeta(ctx, root)
	if err != nil {
		return nil, err
	}

	t := newTracker(TransferDownload, meta.Size, o.events)
	defer t.finish()

	switch v := data.(type) {
	case *node.FileNode:
		if err := p.emitFile(ctx, v, meta.Name, meta.Size, meta, o, t, out); err != nil {
			return nil, err
		}
	case *node.FolderNode:
		if err := p.walkFolder(ctx, v, meta, o, t, out); err != nil {
			return nil, err
		}
	default:
		return nil, status.ErrUnexpectedNode.WrapMessage("%s under a transfer root", data.Kind())
	}
	p.l.Info("downloaded", zap.Stringer("cid", root), zap.String("name", meta.Name))
	return meta, nil
}

// openMeta resolves a transfer root down to its data node
func (p *Pipeline) openMeta(ctx context.Context, root cid.Cid) (*node.MetaNode, node.Node, error) {
	n, err := p.fetchNode(ctx, root)
	if err != nil {
		return nil, nil, err
	}
	meta, ok := n.(*node.MetaNode)
	if !ok {
		return nil, nil, status.ErrUnexpectedNode.WrapMessage("%s at the transfer root", n.Kind())
	}
	data, err := p.fetchNode(ctx, meta.Data)
	if err != nil {
		return nil, nil, err
	}
	return meta, data, nil
}

// fetchRaw retrieves one stored object and verifies it against its CID
func (p *Pipeline) fetchRaw(ctx context.Context, key cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.ErrInterrupted.Wrap(err)
	}
	rc, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	ok, err := dagcid.Verify(key, data)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.l.Error("stored bytes do not hash to their key", zap.Stringer("cid", key))
		return nil, status.ErrIntegrity.WrapMessage("cid %s", key)
	}
	return data, nil
}

func (p *Pipeline) fetchNode(ctx context.Context, key cid.Cid) (node.Node, error) {
	data, err := p.fetchRaw(ctx, key)
	if err != nil {
		return nil, err
	}
	return node.Decode(key.Prefix().Codec, data)
}

// openFile assembles a plaintext reader for one file node
func (p *Pipeline) openFile(ctx context.Context, f *node.FileNode, meta *node.MetaNode, o *transferOptions, t *tracker) (io.ReadCloser, error) {
	var rc io.ReadCloser
	if f.IsInline() {
		rc = io.NopCloser(bytes.NewReader(f.Inline))
	} else {
		var err error
		rc, err = p.newChunkReader(ctx, f.Links)
		if err != nil {
			return nil, err
		}
	}
	out, err := p.unwrap(rc, meta, o)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return readCloser{Reader: &countingReader{r: out, t: t}, Closer: out}, nil
}

// unwrap undoes the transforms recorded at the transfer root, in the
// reverse of the upload order: decrypt, then decompress
func (p *Pipeline) unwrap(r io.ReadCloser, meta *node.MetaNode, o *transferOptions) (io.ReadCloser, error) {
	if meta.Encryption != nil {
		if meta.Encryption.Algorithm != EncryptionXChaCha20 {
			return nil, status.ErrConfig.WrapMessage("unsupported encryption algorithm %q", meta.Encryption.Algorithm)
		}
		if o.password == "" {
			return nil, status.ErrConfig.WrapMessage("content is encrypted and no password was supplied")
		}
		r = &closeChain{ReadCloser: openStream(r, o.password), under: r}
	}
	if meta.Compression != nil {
		if meta.Compression.Algorithm != CompressionZstd {
			return nil, status.ErrConfig.WrapMessage("unsupported compression algorithm %q", meta.Compression.Algorithm)
		}
		dec, err := decompressStream(r)
		if err != nil {
			return nil, err
		}
		r = &closeChain{ReadCloser: dec, under: r}
	}
	return r, nil
}

// emitFile writes one resolved file to the sink
func (p *Pipeline) emitFile(ctx context.Context, f *node.FileNode, path string, size uint64, meta *node.MetaNode, o *transferOptions, t *tracker, out FileSink) error {
	rc, err := p.openFile(ctx, f, meta, o, t)
	if err != nil {
		return err
	}
	err = out.WriteFile(path, size, rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil && ctx.Err() != nil {
		return status.ErrInterrupted.Wrap(ctx.Err())
	}
	return err
}

type walkItem struct {
	path string
	key  cid.Cid
	kind node.EntryKind
	size uint64
}

// walkFolder traverses a folder tree with an explicit stack, so
// arbitrarily deep trees never exhaust the call stack. Files are
// emitted in depth-first declared-entry order.
func (p *Pipeline) walkFolder(ctx context.Context, root *node.FolderNode, meta *node.MetaNode, o *transferOptions, t *tracker, out FileSink) error {
	var stack []walkItem
	push := func(prefix string, entries []node.Entry) {
		// reversed, so the stack pops entries in declared order
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			stack = append(stack, walkItem{
				path: gopath.Join(prefix, e.Name),
				key:  e.Cid,
				kind: e.Kind,
				size: e.Size,
			})
		}
	}
	if err := out.MkDir(meta.Name); err != nil {
		return err
	}
	push(meta.Name, root.Entries)

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := ctx.Err(); err != nil {
			return status.ErrInterrupted.Wrap(err)
		}
		n, err := p.fetchNode(ctx, item.key)
		if err != nil {
			return err
		}
		switch v := n.(type) {
		case *node.FileNode:
			if item.kind != node.EntryFile {
				return status.ErrUnexpectedNode.WrapMessage("file node at %q declared as %s", item.path, item.kind)
			}
			if err := p.emitFile(ctx, v, item.path, item.size, meta, o, t, out); err != nil {
				return err
			}
		case *node.FolderNode:
			if item.kind != node.EntryFolder {
				return status.ErrUnexpectedNode.WrapMessage("folder node at %q declared as %s", item.path, item.kind)
			}
			if err := out.MkDir(item.path); err != nil {
				return err
			}
			push(item.path, v.Entries)
		default:
			return status.ErrUnexpectedNode.WrapMessage("%s inside a folder tree", n.Kind())
		}
	}
	return nil
}

type chunkResult struct {
	data []byte
	err  error
}

// chunkReader streams a linked file's chunks in order, prefetching up
// to the pipeline's concurrency bound ahead of the consumer. Repeated
// chunks are served from a small LRU cache.
type chunkReader struct {
	ctx     context.Context
	cancel  context.CancelFunc
	pending chan chan chunkResult
	buf     []byte
	err     error
}

func (p *Pipeline) newChunkReader(ctx context.Context, links []cid.Cid) (*chunkReader, error) {
	cache, err := lru.New(p.cacheSize)
	if err != nil {
		return nil, status.ErrConfig.Wrap(err)
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &chunkReader{
		ctx:     ctx,
		cancel:  cancel,
		pending: make(chan chan chunkResult, p.concurrency),
	}
	go func() {
		defer close(r.pending)
		for _, link := range links {
			link := link
			resC := make(chan chunkResult, 1)
			select {
			case r.pending <- resC:
			case <-ctx.Done():
				return
			}
			go func() {
				resC <- p.fetchChunk(ctx, link, cache)
			}()
		}
	}()
	return r, nil
}

func (p *Pipeline) fetchChunk(ctx context.Context, key cid.Cid, cache *lru.Cache) chunkResult {
	if v, ok := cache.Get(key); ok {
		return chunkResult{data: v.([]byte)}
	}
	n, err := p.fetchNode(ctx, key)
	if err != nil {
		return chunkResult{err: err}
	}
	chunk, ok := n.(*node.ChunkNode)
	if !ok {
		return chunkResult{err: status.ErrUnexpectedNode.WrapMessage("%s in file content", n.Kind())}
	}
	cache.Add(key, chunk.Data)
	return chunkResult{data: chunk.Data}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	for len(r.buf) == 0 {
		resC, ok := <-r.pending
		if !ok {
			if cerr := r.ctx.Err(); cerr != nil {
				r.err = status.ErrInterrupted.Wrap(cerr)
			} else {
				r.err = io.EOF
			}
			return 0, r.err
		}
		res := <-resC
		if res.err != nil {
			r.cancel()
			r.err = res.err
			return 0, r.err
		}
		r.buf = res.data
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *chunkReader) Close() error {
	r.cancel()
	return nil
}

// readCloser pairs an independent reader and closer
type readCloser struct {
	io.Reader
	io.Closer
}

// closeChain closes a derived reader together with the reader it wraps
type closeChain struct {
	io.ReadCloser
	under io.ReadCloser
}

func (c *closeChain) Close() error {
	err := c.ReadCloser.Close()
	if uerr := c.under.Close(); err == nil {
		err = uerr
	}
	return err
}

// trackedReadCloser terminates the progress sequence on Close
type trackedReadCloser struct {
	r io.ReadCloser
	t *tracker
}

func (c *trackedReadCloser) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *trackedReadCloser) Close() error {
	c.t.finish()
	return c.r.Close()
}
