package preload

import (
	"fmt"
	"os"

	"github.com/fleethub/preloader/internal"
	"github.com/fleethub/preloader/internal/docker"
)

// Command selects the operation the helper container performs. It is passed to
// the worker through the COMMAND environment variable and must be set before a
// container is created.
type Command string

const (
	// CommandPreload writes the application's filesystem layers into the
	// disk image.
	CommandPreload Command = "preload"

	// CommandGetDeviceTypeSlug prints the disk image's declared device type
	// slug on stdout, followed by a single newline.
	CommandGetDeviceTypeSlug Command = "get_device_type_slug"
)

const (
	// HelperImage is the fixed tag the helper image is built under and run
	// from.
	HelperImage internal.ImageName = "fleethub/preloader:latest"

	// DefaultContainerName names the helper container when the request does
	// not override it. The name is deliberately fixed: a second concurrent
	// run against the same name fails with a conflict instead of racing the
	// first over the disk image.
	DefaultContainerName = "fleethub-preloader"

	diskImagePath   = "/img/disk.img"
	splashImagePath = "/img/splash.png"
)

// Request carries the configuration for one preload operation.
type Request struct {
	// DiskImage is the host path of the disk image to operate on. It must
	// reference a regular file the process can read and write.
	DiskImage string

	// SplashImage optionally names a boot splash image to install into the
	// disk image's boot partition.
	SplashImage string

	// AppID identifies the application whose layers are preloaded.
	AppID string

	// APIToken and APIKey authenticate the worker against the platform API.
	// At least one is required for a preload run; the probe needs neither.
	APIToken string
	APIKey   string

	// Commit pins the build to preload. Empty means the latest build.
	Commit string

	// APIHost and RegistryHost override the worker's default endpoints.
	APIHost      string
	RegistryHost string

	// DontDetectFlasherImages makes the worker treat flasher type images
	// like regular images.
	DontDetectFlasherImages bool

	// ContainerName overrides DefaultContainerName.
	ContainerName string

	// Command is the operation to perform. The orchestrator sets it; it is
	// never inferred further down.
	Command Command
}

// Name returns the helper container name for this request.
func (r Request) Name() string {
	if r.ContainerName == "" {
		return DefaultContainerName
	}
	return r.ContainerName
}

// Validate checks the request before a container is created. The disk image
// must be a read/write accessible regular file, the application must be
// identified, and a preload run needs a credential.
func (r Request) Validate() error {
	if r.DiskImage == "" {
		return fmt.Errorf("a disk image path must be provided")
	}
	info, err := os.Stat(r.DiskImage)
	if err != nil {
		return fmt.Errorf("failed to access disk image %q: %w\nCheck that the file exists and is readable", r.DiskImage, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("disk image %q is not a regular file", r.DiskImage)
	}
	f, err := os.OpenFile(r.DiskImage, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("disk image %q must be writable: %w", r.DiskImage, err)
	}
	f.Close()

	if r.AppID == "" {
		return fmt.Errorf("an application id must be provided")
	}
	if r.Command == CommandPreload && r.APIToken == "" && r.APIKey == "" {
		return fmt.Errorf("either an API token or an API key is required to preload")
	}

	return nil
}

// Environment encodes the request as the worker's environment contract: a
// fixed, ordered key set where absent values encode as empty strings. The key
// set is versioned with the worker script; changing it here requires changing
// the script in lockstep.
func (r Request) Environment() internal.Environment {
	flasher := "FALSE"
	if r.DontDetectFlasherImages {
		flasher = "TRUE"
	}

	return internal.Environment{
		fmt.Sprintf("COMMAND=%s", r.Command),
		fmt.Sprintf("APP_ID=%s", r.AppID),
		fmt.Sprintf("API_TOKEN=%s", r.APIToken),
		fmt.Sprintf("API_KEY=%s", r.APIKey),
		fmt.Sprintf("COMMIT=%s", r.Commit),
		fmt.Sprintf("REGISTRY_HOST=%s", r.RegistryHost),
		fmt.Sprintf("API_HOST=%s", r.APIHost),
		fmt.Sprintf("DONT_DETECT_FLASHER_TYPE_IMAGES=%s", flasher),
	}
}

// containerSpec translates the request into the declarative container
// configuration WithContainer consumes.
func (r Request) containerSpec() (docker.ContainerSpec, error) {
	mounts, err := Mounts(r)
	if err != nil {
		return docker.ContainerSpec{}, err
	}

	return docker.ContainerSpec{
		Name:   r.Name(),
		Image:  HelperImage,
		Env:    r.Environment(),
		Mounts: mounts,
	}, nil
}
