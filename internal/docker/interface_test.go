package docker_test

import (
	"github.com/fleethub/preloader/internal/docker"
	"github.com/moby/moby/client"
)

// Compile-time check that *client.Client implements DockerClient interface
var _ docker.DockerClient = (*client.Client)(nil)
