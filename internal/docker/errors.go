package docker

import "fmt"

// BuildError carries the daemon's error payload for an image build that
// terminated abnormally.
type BuildError struct {
	Code    int
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("docker build failed: %s\nCheck the helper Dockerfile and base image availability", e.Message)
}

// NameConflictError indicates a container with the requested name already
// exists. Only one preload container may exist under a given name at a time;
// a conflict usually means a previous run is still in flight or was not
// removed.
type NameConflictError struct {
	Name string
	Err  error
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("a container named %q already exists: %v\nRemove it or wait for the previous preload to finish", e.Name, e.Err)
}

func (e *NameConflictError) Unwrap() error {
	return e.Err
}

// CreateError wraps a daemon-level container creation failure that is not a
// name conflict.
type CreateError struct {
	Name string
	Err  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("failed to create container %q: %v\nEnsure the helper image exists and the Docker daemon is healthy", e.Name, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// ExitError reports a helper container that exited with a non-zero status.
type ExitError struct {
	Status int64
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("helper container exited with status %d", e.Status)
}
