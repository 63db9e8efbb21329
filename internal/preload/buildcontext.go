package preload

import (
	"embed"
	"fmt"
	"io/fs"
)

// The helper image's build inputs ship inside the binary so the engine has no
// runtime file dependencies.
//
//go:embed context
var contextFS embed.FS

// BuildContext returns the helper image's build context: the Dockerfile and
// the in-container worker script.
func BuildContext() (fs.FS, error) {
	sub, err := fs.Sub(contextFS, "context")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded build context: %w", err)
	}
	return sub, nil
}
