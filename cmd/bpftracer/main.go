// Command bpftracer runs a bundled bpftrace script for kernel debugging and
// prints what the engine reports.
//
//	sudo bpftracer                        # runs scripts/kernel_info.bt
//	sudo bpftracer --script syscalls.bt
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atlanticdynamic/bpftracer/internal/tracer"
	"github.com/urfave/cli/v3"
)

// Version is set during build using ldflags
var Version = "dev"

const defaultScript = "kernel_info.bt"

// newApp builds the root command. Extra launcher options are applied after the
// ones derived from the settings file.
func newApp(stdout, stderr io.Writer, extra ...tracer.Option) *cli.Command {
	return &cli.Command{
		Name:      "bpftracer",
		Version:   Version,
		Usage:     "Kernel debugging tool using bpftrace",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "script",
				Usage: "Name of the bpftrace script to run",
				Value: defaultScript,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runAction(ctx, cmd, extra)
		},
	}
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
