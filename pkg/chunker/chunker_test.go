package chunker

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(t testing.TB, c *Chunker) [][]byte {
	t.Helper()
	var segments [][]byte
	for {
		seg, err := c.Next()
		if err == io.EOF {
			return segments
		}
		require.NoError(t, err)
		segments = append(segments, seg)
	}
}

func TestChunkerInvalidSize(t *testing.T) {
	_, err := New(bytes.NewReader(nil), 0)
	require.ErrorIs(t, err, ErrChunkSize)
}

func TestChunkerEmptyInput(t *testing.T) {
	c, err := New(bytes.NewReader(nil), 4)
	require.NoError(t, err)

	segments := collect(t, c)
	require.Len(t, segments, 1)
	require.Empty(t, segments[0])

	// the sequence is exhausted for good
	_, err = c.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestChunkerExactMultiple(t *testing.T) {
	input := []byte("abcdefgh")
	c, err := New(bytes.NewReader(input), 4)
	require.NoError(t, err)

	segments := collect(t, c)
	require.Len(t, segments, 2)
	require.Equal(t, []byte("abcd"), segments[0])
	require.Equal(t, []byte("efgh"), segments[1])
}

func TestChunkerShortTail(t *testing.T) {
	input := []byte("abcdefghij")
	c, err := New(bytes.NewReader(input), 4)
	require.NoError(t, err)

	segments := collect(t, c)
	require.Len(t, segments, 3)
	require.Equal(t, []byte("ij"), segments[2])
}

func TestChunkerReassembly(t *testing.T) {
	input := make([]byte, 65537)
	for i := range input {
		input[i] = byte(i * 31)
	}
	for _, size := range []uint32{1, 7, 512, 65536, 65537, 1 << 20} {
		c, err := New(bytes.NewReader(input), size)
		require.NoError(t, err)

		var out bytes.Buffer
		for _, seg := range collect(t, c) {
			require.LessOrEqual(t, len(seg), int(size))
			out.Write(seg)
		}
		require.Equal(t, input, out.Bytes())
	}
}

func TestChunkerSegmentsAreStable(t *testing.T) {
	c, err := New(bytes.NewReader([]byte("aaaabbbb")), 4)
	require.NoError(t, err)

	first, err := c.Next()
	require.NoError(t, err)
	second, err := c.Next()
	require.NoError(t, err)

	// earlier segments are not clobbered by later reads
	require.Equal(t, []byte("aaaa"), first)
	require.Equal(t, []byte("bbbb"), second)
}
