package models

import (
	"strconv"
	"strings"
	"time"
)

// Item is a record that can be aggregated from a listing endpoint.
// ItemID must be stable and unique per record kind.
type Item interface {
	ItemID() int64
	SortKey() string
}

// Listing types accepted by the community and post list endpoints
const (
	ListingAll        = "All"
	ListingLocal      = "Local"
	ListingSubscribed = "Subscribed"
)

// Search types accepted by the search endpoint
const (
	SearchAll         = "All"
	SearchComments    = "Comments"
	SearchPosts       = "Posts"
	SearchCommunities = "Communities"
	SearchUsers       = "Users"
	SearchURL         = "Url"
)

// Community represents a community as returned by the instance
type Community struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	ActorID     string    `json:"actor_id"`
	Local       bool      `json:"local"`
	NSFW        bool      `json:"nsfw"`
	Icon        *string   `json:"icon,omitempty"`
	Published   time.Time `json:"published"`
}

// CommunityAggregates holds the counters attached to a community view
type CommunityAggregates struct {
	Subscribers int64 `json:"subscribers"`
	Posts       int64 `json:"posts"`
	Comments    int64 `json:"comments"`
}

// CommunityView is the listing record for a community
type CommunityView struct {
	Community  Community           `json:"community"`
	Subscribed string              `json:"subscribed"`
	Blocked    bool                `json:"blocked"`
	Counts     CommunityAggregates `json:"counts"`
}

func (c CommunityView) ItemID() int64   { return c.Community.ID }
func (c CommunityView) SortKey() string { return c.Community.Name }

// Person represents a user account on some instance
type Person struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName *string   `json:"display_name,omitempty"`
	ActorID     string    `json:"actor_id"`
	Local       bool      `json:"local"`
	Avatar      *string   `json:"avatar,omitempty"`
	Published   time.Time `json:"published"`
}

// PersonAggregates holds the counters attached to a person view
type PersonAggregates struct {
	PostCount    int64 `json:"post_count"`
	CommentCount int64 `json:"comment_count"`
}

// PersonView is the listing record for a user
type PersonView struct {
	Person Person           `json:"person"`
	Counts PersonAggregates `json:"counts"`
}

func (p PersonView) ItemID() int64   { return p.Person.ID }
func (p PersonView) SortKey() string { return p.Person.Name }

// Post represents a link or text post
type Post struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	URL         *string   `json:"url,omitempty"`
	Body        *string   `json:"body,omitempty"`
	CreatorID   int64     `json:"creator_id"`
	CommunityID int64     `json:"community_id"`
	Locked      bool      `json:"locked"`
	Published   time.Time `json:"published"`
	ApID        string    `json:"ap_id"`
}

// PostAggregates holds the counters attached to a post view
type PostAggregates struct {
	Comments  int64 `json:"comments"`
	Score     int64 `json:"score"`
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}

// PostView is the listing record for a post
type PostView struct {
	Post      Post           `json:"post"`
	Creator   Person         `json:"creator"`
	Community Community      `json:"community"`
	Counts    PostAggregates `json:"counts"`
}

func (p PostView) ItemID() int64   { return p.Post.ID }
func (p PostView) SortKey() string { return p.Post.Name }

// Comment represents a single comment. Path is the ltree-style ancestry
// of the comment, e.g. "0.12.57" for comment 57 replying to comment 12.
type Comment struct {
	ID        int64     `json:"id"`
	CreatorID int64     `json:"creator_id"`
	PostID    int64     `json:"post_id"`
	Content   string    `json:"content"`
	Removed   bool      `json:"removed"`
	Deleted   bool      `json:"deleted"`
	Path      string    `json:"path"`
	Published time.Time `json:"published"`
	ApID      string    `json:"ap_id"`
}

// ParentID returns the id of the comment this one replies to, or 0 when the
// comment sits at the top level of its post.
func (c Comment) ParentID() int64 {
	parts := strings.Split(c.Path, ".")
	// "0" root, then ancestors, then the comment itself
	if len(parts) < 3 {
		return 0
	}
	id, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// CommentAggregates holds the counters attached to a comment view
type CommentAggregates struct {
	Score      int64 `json:"score"`
	Upvotes    int64 `json:"upvotes"`
	Downvotes  int64 `json:"downvotes"`
	ChildCount int64 `json:"child_count"`
}

// CommentView is the listing record for a comment
type CommentView struct {
	Comment   Comment           `json:"comment"`
	Creator   Person            `json:"creator"`
	Post      Post              `json:"post"`
	Community Community         `json:"community"`
	Counts    CommentAggregates `json:"counts"`
}

func (c CommentView) ItemID() int64 { return c.Comment.ID }

// SortKey orders comments chronologically.
func (c CommentView) SortKey() string {
	return c.Comment.Published.UTC().Format("2006-01-02T15:04:05.000000000Z")
}
