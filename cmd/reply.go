package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lemmywalk/internal/compose"
	"github.com/lemmywalk/internal/thread"
	"github.com/lemmywalk/internal/traverse"
	"github.com/lemmywalk/pkg/models"
)

// ReplyCommand returns the reply command
func ReplyCommand() *cli.Command {
	return &cli.Command{
		Name:      "reply",
		Usage:     "Reply to a post or to a comment on it",
		ArgsUsage: "CONTENT",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "post",
				Aliases:  []string{"p"},
				Usage:    "Post `ID` to reply on",
				Required: true,
			},
			&cli.Int64Flag{
				Name:    "comment",
				Aliases: []string{"m"},
				Usage:   "Reply to comment `ID` instead of the post itself",
			},
		},
		Action: runReply,
	}
}

func runReply(c *cli.Context) error {
	content := strings.Join(c.Args().Slice(), " ")
	postID := c.Int64("post")
	commentID := c.Int64("comment")

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.session.Current().Anonymous() {
		return fmt.Errorf("replying requires an instance token")
	}

	var (
		target compose.ReplyTarget
		tree   *thread.Tree
	)
	if commentID != 0 {
		tree, err = traverse.LoadThread(c.Context, a.client, postID, a.options)
		if err != nil {
			return fmt.Errorf("failed to load comments of post %d: %w", postID, err)
		}
		cv, ok := tree.Find(commentID)
		if !ok {
			return fmt.Errorf("comment %d not found on post %d", commentID, postID)
		}
		target = compose.ReplyToComment(cv)
	} else {
		target = compose.ReplyToPost(models.PostView{Post: models.Post{ID: postID}})
	}

	composer := compose.NewComposer()
	if err := composer.Open(target); err != nil {
		return err
	}
	composer.SetContent(content)

	var applier compose.Applier
	if tree != nil {
		applier = tree
	}
	patch, err := compose.NewDispatcher(a.client, applier).Submit(c.Context, composer)
	if err != nil && !errors.Is(err, compose.ErrPatchRejected) {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s: created comment %d\n", target.Title(), patch.NewItem.Comment.ID)
	return nil
}
