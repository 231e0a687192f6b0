package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/harmoniq/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := &cli.Command{
		Name:    "harmoniq",
		Usage:   "Connect accounts to Tidal & keep their playlists in sync",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			runner.configPath = cmd.String("config")
			return ctx, nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
