package internal

// ImageName represents a Docker image name.
type ImageName string

// Environment represents environment variables to pass to the container.
type Environment []string
