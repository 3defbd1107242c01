package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lemmywalk/internal/aggregate"
	"github.com/lemmywalk/internal/compose"
	"github.com/lemmywalk/internal/lemmy"
	"github.com/lemmywalk/internal/session"
	"github.com/lemmywalk/internal/thread"
	"github.com/lemmywalk/internal/traverse"
	"github.com/lemmywalk/pkg/models"
)

// ListingResponse is the wire form of an aggregation state
type ListingResponse[T models.Item] struct {
	aggregate.State[T]
	Empty bool   `json:"empty"`
	Error string `json:"error,omitempty"`
}

func listing[T models.Item](s aggregate.State[T]) ListingResponse[T] {
	return ListingResponse[T]{State: s, Empty: s.Empty(), Error: s.ErrorMessage()}
}

// SearchResponse carries one listing per result kind
type SearchResponse struct {
	Query       string                                `json:"query"`
	Posts       ListingResponse[models.PostView]      `json:"posts"`
	Users       ListingResponse[models.PersonView]    `json:"users"`
	Communities ListingResponse[models.CommunityView] `json:"communities"`
	NoResults   bool                                  `json:"no_results"`
}

// SwitchSessionRequest selects the active account
type SwitchSessionRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// OpenComposerRequest names the reply target. CommentID requires the post's
// thread to be loaded.
type OpenComposerRequest struct {
	PostID    int64 `json:"post_id"`
	CommentID int64 `json:"comment_id"`
}

// ContentRequest replaces the composer's typed content
type ContentRequest struct {
	Content string `json:"content"`
}

// DraftResponse is the wire form of the composer session
type DraftResponse struct {
	Open       bool   `json:"open"`
	Title      string `json:"title,omitempty"`
	PostID     int64  `json:"post_id,omitempty"`
	ParentID   int64  `json:"parent_id,omitempty"`
	Content    string `json:"content"`
	Submitting bool   `json:"submitting"`
}

// SubmitResponse reports a created comment
type SubmitResponse struct {
	Patch   compose.Patch `json:"patch"`
	Warning string        `json:"warning,omitempty"`
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (s *Server) getSession(c echo.Context) error {
	if s.session == nil {
		return errorJSON(c, http.StatusNotFound, "no session configured")
	}
	return c.JSON(http.StatusOK, s.session.Current())
}

func (s *Server) switchSession(c echo.Context) error {
	if s.session == nil {
		return errorJSON(c, http.StatusNotFound, "no session configured")
	}

	var req SwitchSessionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	id, err := session.IdentityFromToken(s.session.Current().Instance, req.Username, req.Token)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	s.session.Switch(id)
	return c.JSON(http.StatusOK, id)
}

func (s *Server) getSubscriptions(c echo.Context) error {
	if s.subscriptions.State().Status == aggregate.Idle {
		_ = s.subscriptions.Load(c.Request().Context())
	}
	return c.JSON(http.StatusOK, listing(s.subscriptions.State()))
}

func (s *Server) refreshSubscriptions(c echo.Context) error {
	err := s.subscriptions.Refresh(c.Request().Context())
	if errors.Is(err, aggregate.ErrSuperseded) {
		return c.JSON(http.StatusAccepted, listing(s.subscriptions.State()))
	}
	// failures are carried by the state itself
	return c.JSON(http.StatusOK, listing(s.subscriptions.State()))
}

func (s *Server) runSearch(c echo.Context) error {
	err := s.search.Run(c.Request().Context(), c.QueryParam("q"))
	if errors.Is(err, traverse.ErrEmptyQuery) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, SearchResponse{
		Query:       s.search.Query(),
		Posts:       listing(s.search.Posts.State()),
		Users:       listing(s.search.Users.State()),
		Communities: listing(s.search.Communities.State()),
		NoResults:   s.search.NoResults(),
	})
}

func (s *Server) getThread(c echo.Context) error {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || postID <= 0 {
		return errorJSON(c, http.StatusBadRequest, "invalid post id")
	}

	s.mu.RLock()
	tree, ok := s.threads[postID]
	s.mu.RUnlock()

	if !ok || c.QueryParam("reload") == "true" {
		tree, err = traverse.LoadThread(c.Request().Context(), s.lister, postID, s.options)
		if err != nil {
			return errorJSON(c, statusFor(err), err.Error())
		}
		s.mu.Lock()
		s.threads[postID] = tree
		s.mu.Unlock()
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"post_id":  postID,
		"count":    tree.Len(),
		"comments": tree.Snapshot(),
	})
}

func (s *Server) loadedThread(postID int64) (*thread.Tree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.threads[postID]
	return tree, ok
}

func (s *Server) openComposer(c echo.Context) error {
	var req OpenComposerRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	var target compose.ReplyTarget
	switch {
	case req.CommentID != 0:
		tree, ok := s.loadedThread(req.PostID)
		if !ok {
			return errorJSON(c, http.StatusNotFound, "thread not loaded")
		}
		cv, ok := tree.Find(req.CommentID)
		if !ok {
			return errorJSON(c, http.StatusNotFound, "comment not found")
		}
		target = compose.ReplyToComment(cv)
	case req.PostID != 0:
		target = compose.ReplyToPost(models.PostView{Post: models.Post{ID: req.PostID}})
	default:
		return errorJSON(c, http.StatusBadRequest, "post_id or comment_id is required")
	}

	if err := s.composer.Open(target); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, draftResponse(s.composer.Draft()))
}

func (s *Server) getDraft(c echo.Context) error {
	return c.JSON(http.StatusOK, draftResponse(s.composer.Draft()))
}

func (s *Server) setContent(c echo.Context) error {
	var req ContentRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if _, open := s.composer.Target(); !open {
		return errorJSON(c, http.StatusConflict, compose.ErrNoTarget.Error())
	}
	s.composer.SetContent(req.Content)
	return c.JSON(http.StatusOK, draftResponse(s.composer.Draft()))
}

func (s *Server) submit(c echo.Context) error {
	patch, err := s.dispatcher.Submit(c.Request().Context(), s.composer)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, SubmitResponse{Patch: patch})
	case errors.Is(err, compose.ErrPatchRejected):
		return c.JSON(http.StatusCreated, SubmitResponse{Patch: patch, Warning: err.Error()})
	default:
		return errorJSON(c, statusFor(err), err.Error())
	}
}

func (s *Server) dismiss(c echo.Context) error {
	s.composer.Dismiss()
	return c.NoContent(http.StatusNoContent)
}

func draftResponse(d compose.Draft) DraftResponse {
	r := DraftResponse{Open: d.Open, Content: d.Content, Submitting: d.Submitting}
	if d.Open {
		r.Title = d.Target.Title()
		r.PostID = d.Target.PostID()
		r.ParentID = d.Target.ParentID()
	}
	return r
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, compose.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, compose.ErrNoTarget), errors.Is(err, compose.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, lemmy.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
