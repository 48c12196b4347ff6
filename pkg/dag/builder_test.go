package dag

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/dagpipe/pkg/chunker"
	"github.com/oneconcern/dagpipe/pkg/dagcid"
	"github.com/oneconcern/dagpipe/pkg/errors"
	"github.com/oneconcern/dagpipe/pkg/node"
)

// recordingSink keeps every pushed node in emission order
type recordingSink struct {
	keys  []cid.Cid
	nodes []node.Node
}

func (s *recordingSink) Push(_ context.Context, key cid.Cid, n node.Node, _ []byte) error {
	s.keys = append(s.keys, key)
	s.nodes = append(s.nodes, n)
	return nil
}

func TestBuilderRejectsBadChunkSize(t *testing.T) {
	_, err := New(ChunkSize(0))
	require.True(t, errors.Is(err, chunker.ErrChunkSize))

	_, err = New(ChunkSize(MaxChunkSize + 1))
	require.True(t, errors.Is(err, chunker.ErrChunkSize))
}

func TestBuildFileMultiChunk(t *testing.T) {
	sink := &recordingSink{}
	b, err := New(ChunkSize(4), WithSink(sink))
	require.NoError(t, err)

	input := []byte("abcdefghij") // 3 chunks of 4, 4, 2
	head, size, err := b.File(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, uint64(10), size)

	// chunks first, the file node last
	require.Len(t, sink.nodes, 4)
	for _, n := range sink.nodes[:3] {
		require.IsType(t, &node.ChunkNode{}, n)
	}
	file, ok := sink.nodes[3].(*node.FileNode)
	require.True(t, ok)
	require.False(t, file.IsInline())
	require.Equal(t, sink.keys[:3], file.Links)
	require.Equal(t, uint64(10), file.Size)
	require.True(t, head.Equals(sink.keys[3]))

	// chunk payloads concatenate back to the input
	var out bytes.Buffer
	for _, n := range sink.nodes[:3] {
		out.Write(n.(*node.ChunkNode).Data)
	}
	require.Equal(t, input, out.Bytes())
}

func TestBuildFileInline(t *testing.T) {
	sink := &recordingSink{}
	b, err := New(ChunkSize(1024), WithSink(sink))
	require.NoError(t, err)

	head, size, err := b.File(context.Background(), bytes.NewReader([]byte("small")))
	require.NoError(t, err)
	require.Equal(t, uint64(5), size)

	// no chunk node indirection at all
	require.Len(t, sink.nodes, 1)
	file, ok := sink.nodes[0].(*node.FileNode)
	require.True(t, ok)
	require.True(t, file.IsInline())
	require.Equal(t, []byte("small"), file.Inline)
	require.Empty(t, file.Links)
	require.True(t, head.Defined())
}

func TestBuildFileEmpty(t *testing.T) {
	sink := &recordingSink{}
	b, err := New(ChunkSize(8), WithSink(sink))
	require.NoError(t, err)

	head, size, err := b.File(context.Background(), bytes.NewReader(nil))
	require.NoError(t, err)
	require.Equal(t, uint64(0), size)
	require.True(t, head.Defined())

	require.Len(t, sink.nodes, 1)
	file := sink.nodes[0].(*node.FileNode)
	require.True(t, file.IsInline())
	require.Empty(t, file.Inline)
}

func TestBuildFileDeterministic(t *testing.T) {
	input := make([]byte, 3000)
	for i := range input {
		input[i] = byte(i)
	}

	b1, err := New(ChunkSize(1024))
	require.NoError(t, err)
	b2, err := New(ChunkSize(1024))
	require.NoError(t, err)

	h1, _, err := b1.File(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	h2, _, err := b2.File(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	require.True(t, h1.Equals(h2))

	// a different chunk size yields a different DAG shape, hence identity
	b3, err := New(ChunkSize(512))
	require.NoError(t, err)
	h3, _, err := b3.File(context.Background(), bytes.NewReader(input))
	require.NoError(t, err)
	require.False(t, h1.Equals(h3))
}

func TestBuildFolder(t *testing.T) {
	sink := &recordingSink{}
	b, err := New(WithSink(sink))
	require.NoError(t, err)
	ctx := context.Background()

	aHead, aSize, err := b.File(ctx, bytes.NewReader([]byte("content a")))
	require.NoError(t, err)
	bHead, bSize, err := b.File(ctx, bytes.NewReader([]byte("file b is longer")))
	require.NoError(t, err)

	head, total, err := b.Folder(ctx, []node.Entry{
		{Name: "a.txt", Cid: aHead, Size: aSize, Kind: node.EntryFile},
		{Name: "b.txt", Cid: bHead, Size: bSize, Kind: node.EntryFile},
	})
	require.NoError(t, err)
	require.Equal(t, aSize+bSize, total)

	folder := sink.nodes[len(sink.nodes)-1].(*node.FolderNode)
	require.Equal(t, total, folder.Size)
	require.Len(t, folder.Entries, 2)
	require.True(t, head.Defined())
}

func TestBuildFolderEmpty(t *testing.T) {
	b, err := New()
	require.NoError(t, err)

	head, total, err := b.Folder(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, total)
	require.True(t, head.Defined())
}

func TestBuildFolderRejectsInvalidEntries(t *testing.T) {
	b, err := New()
	require.NoError(t, err)

	_, _, err = b.Folder(context.Background(), []node.Entry{
		{Name: "", Cid: cid.Cid{}, Size: 1, Kind: node.EntryFile},
	})
	require.True(t, errors.Is(err, node.ErrInvalidField))
}

func TestBuildMetadataSeparatesIdentities(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	dataHead, size, err := b.File(ctx, bytes.NewReader([]byte("identical payload")))
	require.NoError(t, err)

	m1, err := b.Metadata(ctx, &node.MetaNode{Name: "one.bin", MimeType: "application/octet-stream", Size: size, Data: dataHead})
	require.NoError(t, err)
	m2, err := b.Metadata(ctx, &node.MetaNode{Name: "two.bin", MimeType: "application/octet-stream", Size: size, Data: dataHead})
	require.NoError(t, err)

	// same data identity, distinct presentation identities
	require.False(t, m1.Equals(m2))

	// re-publishing identical metadata converges
	m3, err := b.Metadata(ctx, &node.MetaNode{Name: "one.bin", MimeType: "application/octet-stream", Size: size, Data: dataHead})
	require.NoError(t, err)
	require.True(t, m1.Equals(m3))
}

func TestBuilderHashOption(t *testing.T) {
	code, err := dagcid.HashByName("blake3")
	require.NoError(t, err)

	b1, err := New(Hash(code))
	require.NoError(t, err)
	b2, err := New()
	require.NoError(t, err)

	ctx := context.Background()
	h1, _, err := b1.File(ctx, bytes.NewReader([]byte("hash me")))
	require.NoError(t, err)
	h2, _, err := b2.File(ctx, bytes.NewReader([]byte("hash me")))
	require.NoError(t, err)

	require.False(t, h1.Equals(h2))
	require.Equal(t, "blake3", dagcid.HashName(h1.Prefix().MhType))
}
