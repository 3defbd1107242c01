package traverse

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lemmywalk/internal/aggregate"
	"github.com/lemmywalk/internal/lemmy"
	"github.com/lemmywalk/internal/pagewalk"
	"github.com/lemmywalk/pkg/models"
)

// ErrEmptyQuery is returned by Run for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// Search holds one controller per result kind. All three are loaded for the
// same query.
type Search struct {
	Posts       *aggregate.Controller[models.PostView]
	Users       *aggregate.Controller[models.PersonView]
	Communities *aggregate.Controller[models.CommunityView]

	mu    sync.RWMutex
	query string
}

// NewSearch creates an idle search.
func NewSearch(l Lister, o Options) *Search {
	o = o.withDefaults()
	s := &Search{}

	s.Posts = aggregate.New("search_posts", searchSource(s, l, o, models.SearchPosts,
		func(r *lemmy.SearchResponse) []models.PostView { return r.Posts }),
		aggregate.WithLanguage[models.PostView](o.Language))
	s.Users = aggregate.New("search_users", searchSource(s, l, o, models.SearchUsers,
		func(r *lemmy.SearchResponse) []models.PersonView { return r.Users }),
		aggregate.WithLanguage[models.PersonView](o.Language))
	s.Communities = aggregate.New("search_communities", searchSource(s, l, o, models.SearchCommunities,
		func(r *lemmy.SearchResponse) []models.CommunityView { return r.Communities }),
		aggregate.WithLanguage[models.CommunityView](o.Language))

	return s
}

func searchSource[T models.Item](s *Search, l Lister, o Options, kind string, pick func(*lemmy.SearchResponse) []T) aggregate.Source[T] {
	return func(ctx context.Context) ([]T, error) {
		q := s.Query()
		return pagewalk.Walk(ctx, o.PageSize, func(ctx context.Context, page int) ([]T, error) {
			resp, err := l.Search(ctx, lemmy.SearchParams{Query: q, Type: kind, Page: page, Limit: o.PageSize})
			if err != nil {
				return nil, err
			}
			return pick(resp), nil
		}, walkOpts[T](o)...)
	}
}

// Query returns the query of the latest Run.
func (s *Search) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Run loads posts, users and communities matching query concurrently. Each
// kind keeps its own state; the first failure is returned after all three
// have finished.
func (s *Search) Run(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrEmptyQuery
	}

	s.mu.Lock()
	s.query = query
	s.mu.Unlock()

	log.Debug().Str("query", query).Msg("Searching")

	var g errgroup.Group
	g.Go(func() error { return s.Posts.Load(ctx) })
	g.Go(func() error { return s.Users.Load(ctx) })
	g.Go(func() error { return s.Communities.Load(ctx) })
	return g.Wait()
}

// NoResults reports whether every kind finished loading and came back empty.
func (s *Search) NoResults() bool {
	return s.Posts.State().Empty() && s.Users.State().Empty() && s.Communities.State().Empty()
}
