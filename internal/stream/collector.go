package stream

import (
	"bytes"
	"errors"
	"io"
)

// ErrCollectorFull is returned by Collector.Write when accepting more bytes
// would exceed the collector's limit.
var ErrCollectorFull = errors.New("output collector limit exceeded")

// DefaultCollectorLimit bounds collected output. The device type probe is
// contracted to emit a single short line, so anything near this limit already
// indicates a misbehaving helper.
const DefaultCollectorLimit = 64 * 1024

// Collector is a bounded in-memory byte sink. Unlike a bare bytes.Buffer it
// refuses writes past its limit, keeping a runaway stream from growing the
// process heap.
type Collector struct {
	limit int
	buf   bytes.Buffer
}

// NewCollector creates a collector that accepts at most limit bytes.
// A non-positive limit selects DefaultCollectorLimit.
func NewCollector(limit int) *Collector {
	if limit <= 0 {
		limit = DefaultCollectorLimit
	}
	return &Collector{limit: limit}
}

// Write appends p to the collector, failing with ErrCollectorFull when the
// write would exceed the limit. A failed write leaves the collected bytes
// untouched.
func (c *Collector) Write(p []byte) (int, error) {
	if c.buf.Len()+len(p) > c.limit {
		return 0, ErrCollectorFull
	}
	return c.buf.Write(p)
}

// Bytes returns the collected bytes.
func (c *Collector) Bytes() []byte {
	return c.buf.Bytes()
}

// Len returns the number of collected bytes.
func (c *Collector) Len() int {
	return c.buf.Len()
}

// Discard is the sink for channels the caller does not care about.
var Discard io.Writer = io.Discard
