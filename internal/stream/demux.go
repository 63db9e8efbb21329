package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame header layout: one stream tag byte, three zero bytes, then the payload
// length as a big-endian uint32.
const headerSize = 8

// Stream tags used by the attach framing protocol.
const (
	tagStdin  = 0
	tagStdout = 1
	tagStderr = 2
)

// DemuxError indicates the attach stream carried bytes that do not conform to
// the multiplexing protocol.
type DemuxError struct {
	Reason string
	Err    error
}

func (e *DemuxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed attach stream: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed attach stream: %s", e.Reason)
}

func (e *DemuxError) Unwrap() error {
	return e.Err
}

// Demux reads framed output from src and copies each frame's payload to the
// sink matching its stream tag, in arrival order. Payloads are streamed rather
// than buffered, so frame size does not affect memory use. Within one channel
// byte order is preserved exactly; no ordering is implied between channels.
//
// Demux returns nil when src reaches end-of-stream on a frame boundary. A
// truncated or unrecognized frame yields a *DemuxError; read errors from src
// and write errors from the sinks propagate unchanged.
func Demux(src io.Reader, stdout, stderr io.Writer) error {
	var header [headerSize]byte
	for {
		_, err := io.ReadFull(src, header[:])
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return &DemuxError{Reason: "truncated frame header", Err: err}
		case err != nil:
			return err
		}

		var dst io.Writer
		switch header[0] {
		case tagStdin, tagStdout:
			// The daemon tags pre-start output with the stdin stream; both
			// belong on stdout.
			dst = stdout
		case tagStderr:
			dst = stderr
		default:
			return &DemuxError{Reason: fmt.Sprintf("unrecognized stream tag %d", header[0])}
		}

		size := int64(binary.BigEndian.Uint32(header[4:]))
		if _, err := io.CopyN(dst, src, size); err != nil {
			if errors.Is(err, io.EOF) {
				return &DemuxError{Reason: "truncated frame payload", Err: io.ErrUnexpectedEOF}
			}
			return err
		}
	}
}
