// Package docker wraps the Docker daemon operations the preload engine
// performs.
//
// It builds the helper image, creates the short-lived privileged container,
// and guarantees the container is removed when an operation's scope ends. The
// Client type is the entry point for all daemon operations; WithContainer is
// the scoped-acquisition primitive everything else builds on.
package docker
