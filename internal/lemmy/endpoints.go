package lemmy

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lemmywalk/pkg/models"
)

// ListCommunitiesParams selects a page of communities
type ListCommunitiesParams struct {
	Type  string // models.ListingSubscribed, ListingLocal, ListingAll
	Sort  string
	Page  int
	Limit int
}

// ListPostsParams selects a page of posts
type ListPostsParams struct {
	Type        string
	Sort        string
	CommunityID int64
	Page        int
	Limit       int
}

// ListCommentsParams selects a page of a post's comments
type ListCommentsParams struct {
	PostID   int64
	Sort     string
	MaxDepth int
	Page     int
	Limit    int
}

// SearchParams selects a page of search results
type SearchParams struct {
	Query string
	Type  string // models.SearchPosts, SearchUsers, SearchCommunities, ...
	Sort  string
	Page  int
	Limit int
}

// SearchResponse carries every result kind; only the kinds matching the
// requested type are populated.
type SearchResponse struct {
	Type        string                 `json:"type_"`
	Comments    []models.CommentView   `json:"comments"`
	Posts       []models.PostView      `json:"posts"`
	Communities []models.CommunityView `json:"communities"`
	Users       []models.PersonView    `json:"users"`
}

// CreateCommentRequest is the payload of a new comment. ParentID 0 posts a
// top-level comment on the post.
type CreateCommentRequest struct {
	Content  string
	PostID   int64
	ParentID int64
	// FormID is echoed back by the instance and lets the client correlate
	// a response with the composer session that issued it.
	FormID string
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// ListCommunities returns one page of communities.
func (c *Client) ListCommunities(ctx context.Context, p ListCommunitiesParams) ([]models.CommunityView, error) {
	q := pageQuery(p.Page, p.Limit)
	if p.Type != "" {
		q.Set("type_", p.Type)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}

	var resp struct {
		Communities []models.CommunityView `json:"communities"`
	}
	if err := c.get(ctx, "/community/list", q, &resp); err != nil {
		return nil, err
	}
	return resp.Communities, nil
}

// ListPosts returns one page of posts.
func (c *Client) ListPosts(ctx context.Context, p ListPostsParams) ([]models.PostView, error) {
	q := pageQuery(p.Page, p.Limit)
	if p.Type != "" {
		q.Set("type_", p.Type)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.CommunityID != 0 {
		q.Set("community_id", strconv.FormatInt(p.CommunityID, 10))
	}

	var resp struct {
		Posts []models.PostView `json:"posts"`
	}
	if err := c.get(ctx, "/post/list", q, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// ListComments returns one page of comments on a post.
func (c *Client) ListComments(ctx context.Context, p ListCommentsParams) ([]models.CommentView, error) {
	if p.PostID == 0 {
		return nil, fmt.Errorf("post id is required")
	}
	q := pageQuery(p.Page, p.Limit)
	q.Set("post_id", strconv.FormatInt(p.PostID, 10))
	q.Set("type_", models.ListingAll)
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.MaxDepth > 0 {
		q.Set("max_depth", strconv.Itoa(p.MaxDepth))
	}

	var resp struct {
		Comments []models.CommentView `json:"comments"`
	}
	if err := c.get(ctx, "/comment/list", q, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// Search returns one page of search results.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	q := pageQuery(p.Page, p.Limit)
	q.Set("q", p.Query)
	if p.Type != "" {
		q.Set("type_", p.Type)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}

	var resp SearchResponse
	if err := c.get(ctx, "/search", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateComment creates a comment and returns the record the instance
// stored. It issues exactly one request.
func (c *Client) CreateComment(ctx context.Context, r CreateCommentRequest) (models.CommentView, error) {
	body := map[string]interface{}{
		"content": r.Content,
		"post_id": r.PostID,
	}
	if r.ParentID != 0 {
		body["parent_id"] = r.ParentID
	}
	if r.FormID != "" {
		body["form_id"] = r.FormID
	}

	var resp struct {
		CommentView models.CommentView `json:"comment_view"`
		FormID      *string            `json:"form_id"`
	}
	if err := c.post(ctx, "/comment", body, &resp); err != nil {
		return models.CommentView{}, err
	}
	if resp.CommentView.Comment.ID == 0 {
		return models.CommentView{}, transportError("create comment", fmt.Errorf("response carried no comment"))
	}

	c.logger.Info().
		Int64("comment_id", resp.CommentView.Comment.ID).
		Int64("post_id", r.PostID).
		Int64("parent_id", r.ParentID).
		Msg("Comment created")
	return resp.CommentView, nil
}
