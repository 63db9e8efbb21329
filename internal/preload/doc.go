// Package preload implements the container-orchestrated preload engine.
//
// A Request describes one operation against a device disk image. The
// Preloader builds the helper image from the embedded build context, then runs
// it as a short-lived privileged container: either the real preload run, whose
// output is forwarded to the caller's streams, or the device type probe, whose
// single line of stdout is collected and returned.
package preload
