// Package thread holds the displayed comment tree of a post and splices
// newly created comments into it.
package thread

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lemmywalk/internal/compose"
	"github.com/lemmywalk/pkg/models"
)

var (
	// ErrParentNotFound is returned when a reply patch names a comment that
	// is not part of the tree.
	ErrParentNotFound = errors.New("parent comment not in tree")
	// ErrWrongPost is returned for a patch whose comment belongs elsewhere.
	ErrWrongPost = errors.New("comment belongs to another post")
)

// Node is a comment with its direct replies, newest first.
type Node struct {
	Comment models.CommentView `json:"comment"`
	Replies []Node             `json:"replies"`
}

type node struct {
	comment models.CommentView
	replies []*node
}

// Tree is the single writer of one post's displayed comments. Safe for
// concurrent use.
type Tree struct {
	mu     sync.RWMutex
	postID int64
	roots  []*node
	index  map[int64]*node
}

// Build arranges comments into a tree using their paths. Comments whose
// parent is missing from the list are shown at the top level.
func Build(postID int64, comments []models.CommentView) *Tree {
	t := &Tree{postID: postID, index: make(map[int64]*node, len(comments))}

	ordered := make([]models.CommentView, len(comments))
	copy(ordered, comments)
	// parents before children; newest first among siblings
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := depth(ordered[i].Comment.Path), depth(ordered[j].Comment.Path)
		if di != dj {
			return di < dj
		}
		return ordered[i].Comment.Published.After(ordered[j].Comment.Published)
	})

	for _, cv := range ordered {
		if _, dup := t.index[cv.Comment.ID]; dup {
			continue
		}
		n := &node{comment: cv}
		t.index[cv.Comment.ID] = n
		if parent, ok := t.index[cv.Comment.ParentID()]; ok {
			parent.replies = append(parent.replies, n)
			continue
		}
		t.roots = append(t.roots, n)
	}
	return t
}

func depth(path string) int {
	return strings.Count(path, ".")
}

// PostID returns the post this tree belongs to.
func (t *Tree) PostID() int64 { return t.postID }

// Apply splices a created comment into the tree: prepended to the top level,
// or prepended under the replied-to comment. Applying the same comment twice
// is a no-op.
func (t *Tree) Apply(p compose.Patch) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cv := p.NewItem
	if t.postID != 0 && cv.Comment.PostID != 0 && cv.Comment.PostID != t.postID {
		return fmt.Errorf("%w: comment %d is on post %d, tree is post %d", ErrWrongPost, cv.Comment.ID, cv.Comment.PostID, t.postID)
	}
	if _, ok := t.index[cv.Comment.ID]; ok {
		return nil
	}

	n := &node{comment: cv}
	if p.InsertAsTopLevel {
		t.roots = append([]*node{n}, t.roots...)
		t.index[cv.Comment.ID] = n
		return nil
	}

	parent, ok := t.index[p.ParentID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrParentNotFound, p.ParentID)
	}
	parent.replies = append([]*node{n}, parent.replies...)
	parent.comment.Counts.ChildCount++
	t.index[cv.Comment.ID] = n
	return nil
}

// Len returns the number of comments in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.index)
}

// Find returns a comment by id.
func (t *Tree) Find(id int64) (models.CommentView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.index[id]
	if !ok {
		return models.CommentView{}, false
	}
	return n.comment, true
}

// Snapshot returns a deep copy of the tree for rendering.
func (t *Tree) Snapshot() []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyNodes(t.roots)
}

func copyNodes(in []*node) []Node {
	out := make([]Node, len(in))
	for i, n := range in {
		out[i] = Node{Comment: n.comment, Replies: copyNodes(n.replies)}
	}
	return out
}
