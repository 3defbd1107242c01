package compose

import (
	"errors"

	"github.com/lemmywalk/pkg/models"
)

// ErrInvalidTarget is returned for a target that names neither or both of a
// post and a comment.
var ErrInvalidTarget = errors.New("reply target must be exactly one of a post or a comment")

// ReplyTarget is the post or comment a new comment is anchored to. Build it
// with ReplyToPost or ReplyToComment.
type ReplyTarget struct {
	post    *models.PostView
	comment *models.CommentView
}

// ReplyToPost targets a top-level comment on p.
func ReplyToPost(p models.PostView) ReplyTarget {
	return ReplyTarget{post: &p}
}

// ReplyToComment targets a reply nested under c.
func ReplyToComment(c models.CommentView) ReplyTarget {
	return ReplyTarget{comment: &c}
}

// Validate reports ErrInvalidTarget unless exactly one side is set.
func (t ReplyTarget) Validate() error {
	if (t.post == nil) == (t.comment == nil) {
		return ErrInvalidTarget
	}
	return nil
}

// IsPost reports whether the reply goes to the top level of a post.
func (t ReplyTarget) IsPost() bool { return t.post != nil }

// Post returns the targeted post, if any.
func (t ReplyTarget) Post() (models.PostView, bool) {
	if t.post == nil {
		return models.PostView{}, false
	}
	return *t.post, true
}

// Comment returns the targeted comment, if any.
func (t ReplyTarget) Comment() (models.CommentView, bool) {
	if t.comment == nil {
		return models.CommentView{}, false
	}
	return *t.comment, true
}

// PostID is the post the new comment belongs to.
func (t ReplyTarget) PostID() int64 {
	switch {
	case t.post != nil:
		return t.post.Post.ID
	case t.comment != nil:
		return t.comment.Comment.PostID
	}
	return 0
}

// ParentID is the comment being replied to, or 0 for a post target.
func (t ReplyTarget) ParentID() int64 {
	if t.comment != nil {
		return t.comment.Comment.ID
	}
	return 0
}

// Title is the composer heading for this target.
func (t ReplyTarget) Title() string {
	if t.IsPost() {
		return "Replying to Post"
	}
	return "Replying to Comment"
}
