package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lemmywalk/internal/aggregate"
	"github.com/lemmywalk/internal/traverse"
	"github.com/lemmywalk/pkg/models"
)

// SubscriptionsCommand returns the subscriptions command
func SubscriptionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "subscriptions",
		Usage: "List every community the account follows",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "refresh",
				Aliases: []string{"r"},
				Usage:   "Refresh after the initial load, keeping the first result visible",
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Stop after `N` pages (0 walks the whole listing)",
			},
		},
		Action: runSubscriptions,
	}
}

func runSubscriptions(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.options
	opts.MaxPages = c.Int("max-pages")
	ctrl := traverse.Subscriptions(a.client, opts)

	err = ctrl.Load(c.Context)
	if err == nil && c.Bool("refresh") {
		err = ctrl.Refresh(c.Context)
	}

	state := ctrl.State()
	printCommunities(c, state)
	if err != nil {
		return fmt.Errorf("failed to load communities: %w", err)
	}
	return nil
}

func printCommunities(c *cli.Context, state aggregate.State[models.CommunityView]) {
	out := c.App.Writer
	switch {
	case state.Failed() && len(state.Items) == 0:
		fmt.Fprintf(c.App.ErrWriter, "Failed to load communities: %s\n", state.ErrorMessage())
		return
	case state.Empty():
		fmt.Fprintln(out, "Not subscribed to any communities.")
		return
	}

	for _, cv := range state.Items {
		title := cv.Community.Title
		if title == "" {
			title = cv.Community.Name
		}
		fmt.Fprintf(out, "%-30s %s (%d subscribers)\n", cv.Community.Name, title, cv.Counts.Subscribers)
	}
	if state.Failed() {
		fmt.Fprintf(c.App.ErrWriter, "Refresh failed, showing previous result: %s\n", state.ErrorMessage())
	}
}
