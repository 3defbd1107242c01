// Package compose creates comments and turns the instance's response into a
// patch for the collection that displays them.
//
// A Dispatcher never touches a collection itself. It hands the patch to the
// collection's Applier, which decides where the new comment goes.
package compose

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lemmywalk/internal/lemmy"
	"github.com/lemmywalk/pkg/models"
)

// ErrPatchRejected is returned when the comment was created remotely but the
// owning collection could not splice it in.
var ErrPatchRejected = errors.New("collection rejected patch")

// Patch describes how a displayed comment collection must change after a
// successful create.
type Patch struct {
	NewItem          models.CommentView `json:"new_item"`
	InsertAsTopLevel bool               `json:"insert_as_top_level"`
	// ParentID is the replied-to comment; 0 when InsertAsTopLevel.
	ParentID int64 `json:"parent_id"`
}

// Applier is implemented by the collection that owns displayed comments.
type Applier interface {
	Apply(p Patch) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(p Patch) error

func (f ApplierFunc) Apply(p Patch) error { return f(p) }

// Creator performs the remote create.
type Creator interface {
	CreateComment(ctx context.Context, r lemmy.CreateCommentRequest) (models.CommentView, error)
}

// Dispatcher submits composer sessions.
type Dispatcher struct {
	creator Creator
	applier Applier
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher that sends through creator and hands
// patches to applier. A nil applier drops patches after returning them.
func NewDispatcher(creator Creator, applier Applier) *Dispatcher {
	return &Dispatcher{
		creator: creator,
		applier: applier,
		logger:  log.With().Str("component", "compose").Logger(),
	}
}

// Submit creates the comment typed into c.
//
// Empty content returns ErrEmptyContent without any network call. Otherwise
// exactly one create request is issued. On failure no patch is produced and
// the session stays open with its content, so the user can retry; a retry
// reuses the session's idempotency key. On success the patch is applied and
// the session is closed.
func (d *Dispatcher) Submit(ctx context.Context, c *Composer) (Patch, error) {
	pending, err := c.begin()
	if err != nil {
		return Patch{}, err
	}
	defer c.end(pending.IdempotencyKey)

	created, err := d.creator.CreateComment(ctx, lemmy.CreateCommentRequest{
		Content:  pending.Content,
		PostID:   pending.Target.PostID(),
		ParentID: pending.Target.ParentID(),
		FormID:   pending.IdempotencyKey,
	})
	if err != nil {
		d.logger.Error().Err(err).
			Int64("post_id", pending.Target.PostID()).
			Int64("parent_id", pending.Target.ParentID()).
			Msg("Error submitting comment")
		return Patch{}, fmt.Errorf("failed to submit comment: %w", err)
	}

	patch := Patch{
		NewItem:          created,
		InsertAsTopLevel: pending.Target.IsPost(),
		ParentID:         pending.Target.ParentID(),
	}

	c.closeSession(pending.IdempotencyKey)

	if d.applier != nil {
		if err := d.applier.Apply(patch); err != nil {
			d.logger.Warn().Err(err).Int64("comment_id", created.Comment.ID).Msg("Created comment could not be displayed")
			return patch, fmt.Errorf("%w: %w", ErrPatchRejected, err)
		}
	}
	return patch, nil
}
