package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/lemmywalk/internal/api"
)

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the bridge server for a front end",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen on `ADDR` instead of server.addr",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if override := c.String("addr"); override != "" {
		addr = override
	}

	server := api.NewServer(addr, api.Deps{
		Lister:  a.client,
		Creator: a.client,
		Session: a.session,
		Options: a.options,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
