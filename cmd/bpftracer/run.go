package main

import (
	"context"
	"fmt"

	"github.com/atlanticdynamic/bpftracer/internal/config"
	"github.com/atlanticdynamic/bpftracer/internal/logging"
	"github.com/atlanticdynamic/bpftracer/internal/logging/writers"
	"github.com/atlanticdynamic/bpftracer/internal/tracer"
	"github.com/urfave/cli/v3"
)

// runAction loads settings, checks preconditions and runs the requested
// script. Any error it returns ends the process with status 1; engine failures
// are reported by the launcher and do not reach here.
func runAction(ctx context.Context, cmd *cli.Command, extra []tracer.Option) error {
	installDir, err := config.InstallDir()
	if err != nil {
		return err
	}

	settings, err := config.Load(installDir)
	if err != nil {
		return err
	}

	logWriter, err := writers.CreateWriter(settings.Logging.Output)
	if err != nil {
		return fmt.Errorf("invalid logging.output: %w", err)
	}
	handler, err := logging.SetupLogger(settings.Logging.Level, settings.Logging.Format, logWriter)
	if err != nil {
		return err
	}

	opts := []tracer.Option{
		tracer.WithLogHandler(handler),
		tracer.WithScriptsDir(settings.ScriptsPath(installDir)),
		tracer.WithEngine(tracer.NewExecEngine(settings.Engine)),
		tracer.WithOutput(cmd.Root().Writer, cmd.Root().ErrWriter),
	}

	launcher, err := tracer.New(ctx, append(opts, extra...)...)
	if err != nil {
		return err
	}

	if _, err := launcher.Execute(ctx, cmd.String("script")); err != nil {
		return err
	}
	return nil
}
