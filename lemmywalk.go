package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/lemmywalk/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "lemmywalk",
		Usage:   "Browse subscriptions, search and reply on a Lemmy instance",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./lrdata, ./ or $HOME lemmywalk.toml)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			cmd.SubscriptionsCommand(),
			cmd.SearchCommand(),
			cmd.ReplyCommand(),
			cmd.ServeCommand(),
			cmd.ConfigCommand(),
		},
	}
}
