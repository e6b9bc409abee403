package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInput       = 2
	exitInterrupted = 130
)

func init() {
	// -v is --verbose
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	runner := NewRunner(RunnerOpts{})
	err := newApp(runner).Run(ctx, os.Args)
	code := exitCode(ctx, err)

	switch code {
	case exitOK:
	case exitInterrupted:
		runner.logger.Warn("interrupted")
	default:
		runner.logger.Error(err.Error())
	}

	if cerr := runner.Close(); cerr != nil {
		runner.logger.Warn("cleanup failed", "err", cerr)
	}
	stop()
	os.Exit(code)
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "deemixkit",
		Usage:   "Resolve Deezer and Spotify album URLs for albums, discographies and playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Debug logging and collection diff tables",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Where URLs go: stdout or clipboard (default from config)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: urls, json or csv (default from config)",
			},
		},
		Commands: r.register(),
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return exitOK
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return exitInterrupted
	case shared.IsInputError(err):
		return exitInput
	default:
		return exitFailure
	}
}
