package docker

import (
	"context"
	"fmt"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
)

// Container is a handle to a created helper container. It is owned for the
// duration of one WithContainer scope and must not be used after the scope
// ends, since the container is removed on exit.
type Container struct {
	client DockerClient

	ID   string
	Name string
}

// Start starts the container. Returns an error if the container fails to start,
// which may indicate a misconfiguration or an unhealthy Docker daemon.
func (c Container) Start(ctx context.Context) error {
	_, err := c.client.ContainerStart(ctx, c.ID, client.ContainerStartOptions{})
	if err != nil {
		return fmt.Errorf("failed to start container %q: %w\nContainer may be misconfigured or Docker daemon may be unhealthy", c.Name, err)
	}

	return nil
}

// Attach attaches to the container's output streams and returns the hijacked
// connection carrying them. The container runs without a TTY, so the returned
// reader carries the multiplexed framing that stream.Demux understands. The
// caller owns the hijacked connection and must close it; closing it is also
// how a blocked read on the stream is unwound.
func (c Container) Attach(ctx context.Context, stdout, stderr bool) (client.ContainerAttachResult, error) {
	response, err := c.client.ContainerAttach(ctx, c.ID, client.ContainerAttachOptions{
		Stream: true,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return client.ContainerAttachResult{}, fmt.Errorf("failed to attach to container %q: %w\nContainer may have exited prematurely or Docker API is unreachable", c.Name, err)
	}

	return response, nil
}

// Wait blocks until the container is no longer running and returns its exit
// status.
func (c Container) Wait(ctx context.Context) (int64, error) {
	wait := c.client.ContainerWait(ctx, c.ID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})

	select {
	case err := <-wait.Error:
		if err != nil {
			return 0, fmt.Errorf("failed to wait for container %q: %w\nDocker daemon may have encountered an error", c.Name, err)
		}
		return 0, nil
	case status := <-wait.Result:
		return status.StatusCode, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Remove removes the container from the Docker daemon.
// Returns an error if the container is still running or cannot be removed.
// Use ForceRemove to remove a running container.
func (c Container) Remove(ctx context.Context) error {
	_, err := c.client.ContainerRemove(ctx, c.ID, client.ContainerRemoveOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove container %q: %w\nContainer may still be running - use ForceRemove if needed", c.Name, err)
	}

	return nil
}

// ForceRemove forcibly removes the container from the Docker daemon, even if it
// is still running. Returns an error if the container cannot be removed, which
// may indicate an inconsistent state.
func (c Container) ForceRemove(ctx context.Context) error {
	_, err := c.client.ContainerRemove(ctx, c.ID, client.ContainerRemoveOptions{
		Force: true,
	})
	if err != nil {
		return fmt.Errorf("failed to force remove container %q: %w\nContainer may be in an inconsistent state", c.Name, err)
	}

	return nil
}
