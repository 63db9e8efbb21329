// Package stream handles the helper container's multiplexed output.
//
// A non-TTY Docker attach carries stdout and stderr over one connection,
// framed with a stream tag and a length-prefixed payload. Demux splits that
// stream into two byte sinks; Collector is the bounded in-memory sink used by
// the device type probe.
package stream
