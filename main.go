/*
Renders the demo scene, or a scene file, through the MSAA forward pipeline
and writes the resolved backbuffer to an image.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/resolvepipe/engine"
	"github.com/spaghettifunk/resolvepipe/engine/core"
	"github.com/spaghettifunk/resolvepipe/testbed"
)

func main() {
	var opts engine.Options
	flag.StringVar(&opts.ConfigPath, "config", "", "pipeline asset (TOML), defaults are used when empty")
	flag.StringVar(&opts.ScenePath, "scene", "", "scene file (*.scene.toml), the built-in demo is used when empty")
	flag.StringVar(&opts.OutPath, "out", "frame.bmp", "output image (.bmp or .tiff), empty to skip")
	flag.IntVar(&opts.Frames, "frames", 1, "frames to render, 0 renders until interrupted")
	flag.BoolVar(&opts.Trace, "trace", false, "log every executed backend command")
	flag.BoolVar(&opts.Watch, "watch", false, "reload the config and scene when they change")
	flag.Parse()

	// capture sigterm and other system calls here
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	demo := testbed.NewDemo()
	e, err := engine.New(demo.Game, opts)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		core.LogError(err.Error())
		_ = e.Shutdown()
		os.Exit(1)
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		core.LogError(runErr.Error())
		os.Exit(1)
	}
}
