package pipeline

import (
	"io"
	"sync/atomic"
)

// EventType tags the direction of a transfer event
type EventType string

const (
	// TransferUpload marks progress of an upload
	TransferUpload EventType = "uploading"
	// TransferDownload marks progress of a download
	TransferDownload EventType = "downloading"
)

// Event is one progress observation of a running transfer
type Event struct {
	Type           EventType
	TotalBytes     uint64
	ProcessedBytes uint64
}

// tracker owns the progress counters of one transfer. Counters are
// exclusive to their pipeline run: there is no process-wide state.
//
// Intermediate events are published without blocking the transfer: a
// consumer that lags simply misses observations. The event channel is
// closed when the transfer terminates, successfully or not.
type tracker struct {
	typ       EventType
	total     uint64
	processed atomic.Uint64
	events    chan<- Event
}

func newTracker(typ EventType, total uint64, events chan<- Event) *tracker {
	return &tracker{typ: typ, total: total, events: events}
}

// add accounts for n more processed bytes and publishes an observation
func (t *tracker) add(n uint64) {
	if t == nil {
		return
	}
	processed := t.processed.Add(n)
	if t.events == nil {
		return
	}
	select {
	case t.events <- Event{Type: t.typ, TotalBytes: t.total, ProcessedBytes: processed}:
	default:
	}
}

// finish closes the event sequence
func (t *tracker) finish() {
	if t == nil || t.events == nil {
		return
	}
	close(t.events)
	t.events = nil
}

// countingReader reports bytes read to a tracker
type countingReader struct {
	r io.Reader
	t *tracker
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.t.add(uint64(n))
	}
	return n, err
}
