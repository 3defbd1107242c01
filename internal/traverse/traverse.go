// Package traverse wires the instance client into aggregation controllers:
// the subscribed communities list, the three-way search, and post threads.
package traverse

import (
	"context"

	"golang.org/x/text/language"

	"github.com/lemmywalk/internal/aggregate"
	"github.com/lemmywalk/internal/lemmy"
	"github.com/lemmywalk/internal/pagewalk"
	"github.com/lemmywalk/internal/thread"
	"github.com/lemmywalk/pkg/models"
)

// Lister is the part of the instance client traversal needs.
type Lister interface {
	ListCommunities(ctx context.Context, p lemmy.ListCommunitiesParams) ([]models.CommunityView, error)
	ListComments(ctx context.Context, p lemmy.ListCommentsParams) ([]models.CommentView, error)
	Search(ctx context.Context, p lemmy.SearchParams) (*lemmy.SearchResponse, error)
}

// Options tunes how listings are walked and sorted.
type Options struct {
	PageSize int
	// MaxPages caps a walk; 0 walks until the listing is exhausted.
	MaxPages int
	Language language.Tag
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = pagewalk.DefaultPageSize
	}
	return o
}

func walkOpts[T any](o Options) []pagewalk.Option[T] {
	if o.MaxPages > 0 {
		return []pagewalk.Option[T]{pagewalk.WithMaxPages[T](o.MaxPages)}
	}
	return nil
}

// Subscriptions returns a controller over every community the current
// account follows.
func Subscriptions(l Lister, o Options) *aggregate.Controller[models.CommunityView] {
	o = o.withDefaults()

	source := func(ctx context.Context) ([]models.CommunityView, error) {
		return pagewalk.Walk(ctx, o.PageSize, func(ctx context.Context, page int) ([]models.CommunityView, error) {
			return l.ListCommunities(ctx, lemmy.ListCommunitiesParams{
				Type:  models.ListingSubscribed,
				Page:  page,
				Limit: o.PageSize,
			})
		}, walkOpts[models.CommunityView](o)...)
	}

	return aggregate.New("subscriptions", source,
		aggregate.WithLanguage[models.CommunityView](o.Language),
		aggregate.WithFailureMessage[models.CommunityView]("Failed to load communities."),
	)
}

// LoadThread walks every comment of a post and arranges them into a tree.
func LoadThread(ctx context.Context, l Lister, postID int64, o Options) (*thread.Tree, error) {
	o = o.withDefaults()

	comments, err := pagewalk.Walk(ctx, o.PageSize, func(ctx context.Context, page int) ([]models.CommentView, error) {
		return l.ListComments(ctx, lemmy.ListCommentsParams{
			PostID: postID,
			Sort:   "New",
			Page:   page,
			Limit:  o.PageSize,
		})
	}, walkOpts[models.CommentView](o)...)
	if err != nil {
		return nil, err
	}
	return thread.Build(postID, comments), nil
}
