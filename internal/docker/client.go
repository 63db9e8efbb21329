package docker

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/fleethub/preloader/internal"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

type Image struct {
	Name string
}

// ContainerSpec describes the container WithContainer creates: a named,
// privileged, host-networked container with stdout and stderr attached. The
// environment carries the operation parameters; the mounts carry the disk
// image (and optionally a splash image) by reference.
type ContainerSpec struct {
	Name   string
	Image  internal.ImageName
	Env    internal.Environment
	Mounts []mount.Mount
}

type Client struct {
	client DockerClient
}

// NewClient creates a Client that wraps the provided Docker client interface.
func NewClient(dockerClient DockerClient) Client {
	return Client{
		client: dockerClient,
	}
}

// NewDefaultClient creates a Client with a real Docker client from the environment.
func NewDefaultClient() (Client, error) {
	cli, err := client.New(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return Client{}, fmt.Errorf("failed to create docker client: %w\nEnsure Docker is running and DOCKER_HOST is set correctly", err)
	}

	return NewClient(cli), nil
}

// Close closes the underlying Docker client connection.
func (c Client) Close() {
	c.client.Close()
}

// Ping pings the Docker daemon and returns the API version if successful.
func (c Client) Ping(ctx context.Context) (string, error) {
	ping, err := c.client.Ping(ctx, client.PingOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to ping docker daemon: %w", err)
	}
	return ping.APIVersion, nil
}

// ListContainers lists all containers and returns their names.
func (c Client) ListContainers(ctx context.Context) ([]string, error) {
	result, err := c.client.ContainerList(ctx, client.ContainerListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var names []string
	for _, item := range result.Items {
		names = append(names, item.Names...)
	}
	return names, nil
}

// BuildImage builds an image from the given build context and tags it with the
// specified name. Every regular file in buildContext is sent to the daemon as
// a tar archive, and build log lines are streamed to w as the daemon reports
// them. Rebuilding under the same tag is safe: the daemon simply produces a
// new image generation. Returns a *BuildError when the daemon reports an
// abnormal build termination.
func (c Client) BuildImage(ctx context.Context, buildContext fs.FS, imageName internal.ImageName, w internal.Writer) (Image, error) {
	pr, pw := io.Pipe()
	defer pr.Close()

	go func() {
		tw := tar.NewWriter(pw)
		err := fs.WalkDir(buildContext, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			data, err := fs.ReadFile(buildContext, path)
			if err != nil {
				return err
			}

			header := &tar.Header{
				Name: path,
				Mode: 0644,
				Size: int64(len(data)),
			}
			if err := tw.WriteHeader(header); err != nil {
				return err
			}
			_, err = tw.Write(data)
			return err
		})
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to tar build context: %w", err))
			return
		}
		if err := tw.Close(); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.Close()
	}()

	response, err := c.client.ImageBuild(ctx, pr, client.ImageBuildOptions{
		Dockerfile: "Dockerfile",
		Tags:       []string{string(imageName)},
		Remove:     true,
	})
	if err != nil {
		return Image{}, fmt.Errorf("failed to build image %q: %w\nCheck Docker daemon logs for details", imageName, err)
	}
	defer response.Body.Close()

	decoder := json.NewDecoder(response.Body)
	for decoder.More() {
		select {
		case <-ctx.Done():
			return Image{}, ctx.Err()
		default:
		}

		var output struct {
			Stream      string `json:"stream"`
			Error       string `json:"error"`
			ErrorDetail struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"errorDetail"`
		}
		err := decoder.Decode(&output)
		if err != nil {
			return Image{}, fmt.Errorf("failed to decode build output: %w\nDocker may have returned malformed JSON", err)
		}

		if output.Error != "" || output.ErrorDetail.Message != "" {
			message := output.ErrorDetail.Message
			if message == "" {
				message = output.Error
			}
			return Image{}, &BuildError{Code: output.ErrorDetail.Code, Message: message}
		}

		w.Print(output.Stream)
	}

	return Image{
		Name: string(imageName),
	}, nil
}

// WithContainer creates the container described by spec, invokes body with a
// handle to it, and removes the container before returning. Removal happens on
// every exit path: body returning normally, body returning an error, or the
// caller's context being cancelled mid-body. A removal failure is reported
// through w as a warning and never displaces an error returned by body.
//
// Creation failures map to *NameConflictError when a container with that name
// already exists, and to *CreateError otherwise.
func (c Client) WithContainer(ctx context.Context, spec ContainerSpec, w internal.Writer, body func(Container) error) error {
	response, err := c.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image:        string(spec.Image),
			Env:          []string(spec.Env),
			AttachStdout: true,
			AttachStderr: true,
		},
		HostConfig: &container.HostConfig{
			Privileged:  true,
			NetworkMode: container.NetworkMode("host"),
			Mounts:      spec.Mounts,
		},
		Name: spec.Name,
	})
	if err != nil {
		if cerrdefs.IsConflict(err) {
			return &NameConflictError{Name: spec.Name, Err: err}
		}
		return &CreateError{Name: spec.Name, Err: err}
	}

	handle := Container{
		client: c.client,
		ID:     response.ID,
		Name:   spec.Name,
	}
	defer func() {
		// Best effort: the removal must still be attempted after a
		// cancellation, and may fail if the daemon itself is gone.
		if err := handle.ForceRemove(context.WithoutCancel(ctx)); err != nil {
			w.Warningf("failed to remove container %q: %v", handle.Name, err)
		}
	}()

	return body(handle)
}
