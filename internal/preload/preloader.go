package preload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/moby/moby/client"
	"golang.org/x/sync/errgroup"

	"github.com/fleethub/preloader/internal"
	"github.com/fleethub/preloader/internal/docker"
	"github.com/fleethub/preloader/internal/stream"
)

// ProbeError indicates the device type probe's stream ended abnormally or
// produced undecodable output.
type ProbeError struct {
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device type probe failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("device type probe failed: %s", e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Preloader sequences the build / create / run / dispose lifecycle for both
// the real preload run and the device type probe. Each operation is attempted
// exactly once per invocation; errors surface to the caller unchanged.
type Preloader struct {
	client docker.Client
	writer internal.Writer
	stdout io.Writer
	stderr io.Writer
}

// New creates a Preloader. Build progress and diagnostics go to w; the helper
// container's output during a preload run is forwarded to stdout and stderr.
func New(client docker.Client, w internal.Writer, stdout, stderr io.Writer) Preloader {
	return Preloader{
		client: client,
		writer: w,
		stdout: stdout,
		stderr: stderr,
	}
}

// Build builds the helper image from the embedded build context under the
// fixed HelperImage tag. It must complete before the first Run or
// DeviceTypeSlug call; rebuilding is safe and picks up a changed worker.
func (p Preloader) Build(ctx context.Context) error {
	buildContext, err := BuildContext()
	if err != nil {
		return err
	}

	_, err = p.client.BuildImage(ctx, buildContext, HelperImage, p.writer)
	return err
}

// Run performs the preload operation, forwarding the helper container's output
// to the configured stdout and stderr sinks. The output stream ending is the
// operation's terminal event; the helper's exit status is read afterwards and
// a non-zero status surfaces as a *docker.ExitError so the CLI can exit
// non-zero.
func (p Preloader) Run(ctx context.Context, req Request) error {
	req.Command = CommandPreload
	if err := req.Validate(); err != nil {
		return err
	}
	spec, err := req.containerSpec()
	if err != nil {
		return err
	}

	return p.client.WithContainer(ctx, spec, p.writer, func(c docker.Container) error {
		if err := c.Start(ctx); err != nil {
			return err
		}

		attach, err := c.Attach(ctx, true, true)
		if err != nil {
			return err
		}

		var status int64
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return demuxAttach(gctx, attach, p.stdout, p.stderr)
		})
		g.Go(func() error {
			var err error
			status, err = c.Wait(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		if status != 0 {
			return &docker.ExitError{Status: status}
		}
		return nil
	})
}

// DeviceTypeSlug probes the disk image for its declared device type without
// modifying it. The helper prints the slug followed by a single newline on
// stdout; that trailing byte is stripped and the rest is returned verbatim, so
// any embedded whitespace is preserved.
func (p Preloader) DeviceTypeSlug(ctx context.Context, req Request) (string, error) {
	req.Command = CommandGetDeviceTypeSlug
	if err := req.Validate(); err != nil {
		return "", err
	}
	spec, err := req.containerSpec()
	if err != nil {
		return "", err
	}

	collector := stream.NewCollector(stream.DefaultCollectorLimit)
	err = p.client.WithContainer(ctx, spec, p.writer, func(c docker.Container) error {
		if err := c.Start(ctx); err != nil {
			return err
		}

		// Stdout only; the worker's logging goes to stderr and is not
		// part of the probe's contract. Stderr frames a daemon sends
		// anyway are discarded rather than corrupting the slug.
		attach, err := c.Attach(ctx, true, false)
		if err != nil {
			return err
		}

		if err := demuxAttach(ctx, attach, collector, stream.Discard); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return &ProbeError{Reason: "stream ended abnormally", Err: err}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return decodeSlug(collector.Bytes())
}

// demuxAttach copies the attach stream into the sinks and closes the hijacked
// connection when it is done. The container closing the stream is the normal
// end; cancelling ctx also closes the connection so the blocked read unwinds
// and the container scope can run its removal.
func demuxAttach(ctx context.Context, attach client.ContainerAttachResult, stdout, stderr io.Writer) error {
	defer attach.Conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			attach.Conn.Close()
		case <-done:
		}
	}()

	if err := stream.Demux(attach.Reader, stdout, stderr); err != nil {
		// A read error after cancellation is the connection being torn
		// down, not a stream defect.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return ctx.Err()
}

func decodeSlug(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", &ProbeError{Reason: "probe produced no output"}
	}
	raw = raw[:len(raw)-1]
	if !utf8.Valid(raw) {
		return "", &ProbeError{Reason: "probe output is not valid UTF-8"}
	}
	return string(raw), nil
}
