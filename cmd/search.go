package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lemmywalk/internal/traverse"
)

// SearchCommand returns the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search posts, users and communities",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Stop each kind after `N` pages",
				Value: 1,
			},
		},
		Action: runSearch,
	}
}

func runSearch(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: QUERY")
	}
	query := strings.Join(c.Args().Slice(), " ")

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.options
	opts.MaxPages = c.Int("max-pages")
	s := traverse.NewSearch(a.client, opts)

	runErr := s.Run(c.Context, query)

	out := c.App.Writer
	if s.NoResults() {
		fmt.Fprintf(out, "No results for %q.\n", s.Query())
		return nil
	}

	posts := s.Posts.State()
	fmt.Fprintf(out, "Posts (%s):\n", posts.Status)
	for _, pv := range posts.Items {
		fmt.Fprintf(out, "  [%d] %s\n", pv.Post.ID, pv.Post.Name)
	}

	users := s.Users.State()
	fmt.Fprintf(out, "Users (%s):\n", users.Status)
	for _, uv := range users.Items {
		fmt.Fprintf(out, "  %s\n", uv.Person.Name)
	}

	communities := s.Communities.State()
	fmt.Fprintf(out, "Communities (%s):\n", communities.Status)
	for _, cv := range communities.Items {
		fmt.Fprintf(out, "  %s\n", cv.Community.Name)
	}

	if runErr != nil {
		return fmt.Errorf("search incomplete: %w", runErr)
	}
	return nil
}
