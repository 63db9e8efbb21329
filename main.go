package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docker/cli/cli/streams"
	"github.com/moby/term"

	"github.com/fleethub/preloader/internal"
	"github.com/fleethub/preloader/internal/docker"
	"github.com/fleethub/preloader/internal/preload"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic occurred: %v\nThis is a bug - please file a report", r)
			os.Exit(1)
		}
	}()

	if err := run(os.Args, os.Environ()); err != nil {
		var exitErr *docker.ExitError
		if errors.As(err, &exitErr) && exitErr.Status != 0 {
			log.Printf("preload failed: %v", err)
			os.Exit(int(exitErr.Status))
		}
		log.Fatal(err)
	}
}

func run(args, env []string) error {
	cleanupMgr := internal.NewCleanupManager()
	defer cleanupMgr.Execute()

	config, err := internal.ParseConfig(args[1:], env)
	if err != nil {
		return err
	}

	// Create context with cancellation so an interrupt unwinds through the
	// container scope and its removal guarantee.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	w := internal.NewStandardWriter()

	client, err := docker.NewDefaultClient()
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w\nMake sure Docker is installed and running (try 'docker ps')", err)
	}
	cleanupMgr.Add("docker-client", func() error {
		client.Close()
		return nil
	})

	_, stdout, stderr := term.StdStreams()
	out := streams.NewOut(stdout)

	preloader := preload.New(client, w, out, stderr)

	request := preload.Request{
		DiskImage:               config.DiskImage,
		SplashImage:             config.SplashImage,
		AppID:                   config.AppID,
		Commit:                  config.Commit,
		APIToken:                config.APIToken,
		APIKey:                  config.APIKey,
		APIHost:                 config.APIHost,
		RegistryHost:            config.RegistryHost,
		DontDetectFlasherImages: config.DontDetectFlasherImages,
		ContainerName:           config.ContainerName,
	}

	if err := preloader.Build(ctx); err != nil {
		return fmt.Errorf("failed to build helper image %q: %w", preload.HelperImage, err)
	}

	slug, err := preloader.DeviceTypeSlug(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to probe device type of %q: %w", config.DiskImage, err)
	}

	if config.GetDeviceType {
		w.Println(slug)
		return nil
	}

	w.Printf("Preloading %s image %s\n", slug, config.DiskImage)

	return preloader.Run(ctx, request)
}
