package preload

import (
	"fmt"
	"path/filepath"

	"github.com/moby/moby/api/types/mount"
)

// InvalidPathError indicates a host path that could not be resolved to an
// absolute path for bind mounting.
type InvalidPathError struct {
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid host path %q: %v", e.Path, e.Err)
}

func (e *InvalidPathError) Unwrap() error {
	return e.Err
}

// Mounts computes the bind mounts for a preload request. The disk image mount
// is always first; the splash image mount is appended when the request carries
// a splash image. No other mounts are produced.
func Mounts(req Request) ([]mount.Mount, error) {
	disk, err := resolve(req.DiskImage)
	if err != nil {
		return nil, err
	}

	mounts := []mount.Mount{{
		Type:        mount.TypeBind,
		Source:      disk,
		Target:      diskImagePath,
		Consistency: mount.ConsistencyDelegated,
	}}

	if req.SplashImage != "" {
		splash, err := resolve(req.SplashImage)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, mount.Mount{
			Type:        mount.TypeBind,
			Source:      splash,
			Target:      splashImagePath,
			Consistency: mount.ConsistencyDelegated,
		})
	}

	return mounts, nil
}

func resolve(path string) (string, error) {
	if path == "" {
		return "", &InvalidPathError{Path: path, Err: fmt.Errorf("path is empty")}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &InvalidPathError{Path: path, Err: err}
	}
	return abs, nil
}
