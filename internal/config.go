package internal

import (
	"flag"
	"strings"
)

// Config holds the resolved command-line and environment inputs for one
// preloader invocation.
type Config struct {
	DiskImage               string
	SplashImage             string
	AppID                   string
	Commit                  string
	APIToken                string
	APIKey                  string
	APIHost                 string
	RegistryHost            string
	DontDetectFlasherImages bool
	ContainerName           string
	GetDeviceType           bool
}

// ParseConfig parses command-line arguments and environment variables into the
// preloader configuration. Credentials fall back to the API_TOKEN and API_KEY
// environment variables when the corresponding flags are not set, so tokens
// can be kept out of shell history.
func ParseConfig(args []string, environment []string) (Config, error) {
	lookup := make(map[string]string)
	for _, variable := range environment {
		key, value, ok := strings.Cut(variable, "=")
		if ok {
			lookup[key] = value
		}
	}

	var config Config

	fs := flag.NewFlagSet("preloader", flag.ContinueOnError)
	fs.StringVar(&config.DiskImage, "image", "", "path to the disk image to preload")
	fs.StringVar(&config.SplashImage, "splash-image", "", "path to a boot splash image to install")
	fs.StringVar(&config.AppID, "app-id", "", "application identifier")
	fs.StringVar(&config.Commit, "commit", "", "build commit to preload (defaults to the latest build)")
	fs.StringVar(&config.APIToken, "api-token", "", "API session token")
	fs.StringVar(&config.APIKey, "api-key", "", "API key")
	fs.StringVar(&config.APIHost, "api-host", "", "API endpoint override")
	fs.StringVar(&config.RegistryHost, "registry-host", "", "registry endpoint override")
	fs.BoolVar(&config.DontDetectFlasherImages, "dont-detect-flasher", false, "treat flasher type images as regular images")
	fs.StringVar(&config.ContainerName, "container-name", "", "name for the helper container")
	fs.BoolVar(&config.GetDeviceType, "get-device-type", false, "print the image's device type slug and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if config.APIToken == "" {
		config.APIToken = lookup["API_TOKEN"]
	}
	if config.APIKey == "" {
		config.APIKey = lookup["API_KEY"]
	}

	return config, nil
}
