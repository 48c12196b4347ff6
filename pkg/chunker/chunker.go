// Package chunker splits a byte stream into fixed-size segments.
//
// Segment boundaries never depend on content: splitting is purely
// positional, which keeps the resulting DAG deterministic for a given
// input and chunk size.
package chunker

import (
	"io"

	"github.com/oneconcern/dagpipe/pkg/errors"
)

// ErrChunkSize is returned when a chunker is configured with an invalid chunk size
var ErrChunkSize = errors.New("chunk size must be strictly positive")

// Chunker produces a lazy, finite, non-restartable sequence of segments
// from a reader. Every segment is at most the configured chunk size and
// their concatenation reproduces the input exactly. A zero-length input
// yields a single empty segment, so empty files still address a valid node.
type Chunker struct {
	r       io.Reader
	size    uint32
	emitted bool
	done    bool
}

// New creates a chunker over r with the given chunk size
func New(r io.Reader, size uint32) (*Chunker, error) {
	if size == 0 {
		return nil, ErrChunkSize
	}
	return &Chunker{r: r, size: size}, nil
}

// Next returns the next segment, or io.EOF when the sequence is exhausted.
//
// The returned slice is freshly allocated and owned by the caller: it
// remains valid after subsequent calls to Next.
func (c *Chunker) Next() ([]byte, error) {
	if c.done {
		return nil, io.EOF
	}

	buf := make([]byte, c.size)
	n, err := io.ReadFull(c.r, buf)
	switch err {
	case nil:
		c.emitted = true
		return buf, nil
	case io.ErrUnexpectedEOF:
		// short final segment
		c.emitted = true
		c.done = true
		return buf[:n], nil
	case io.EOF:
		c.done = true
		if !c.emitted {
			// an empty input still produces one empty segment
			c.emitted = true
			return []byte{}, nil
		}
		return nil, io.EOF
	default:
		c.done = true
		return nil, err
	}
}
