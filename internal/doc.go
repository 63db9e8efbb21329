// Package internal contains shared types and utilities for preloader.
//
// It provides configuration parsing, cleanup orchestration, and the output
// abstraction used across the docker, preload, and stream packages.
package internal
