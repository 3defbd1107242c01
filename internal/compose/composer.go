package compose

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrEmptyContent rejects a submission before any network call.
	ErrEmptyContent = errors.New("comment content is empty")
	// ErrNoTarget is returned when submitting without an open reply session.
	ErrNoTarget = errors.New("no reply target")
	// ErrSubmitInFlight is returned for a second submit on a session that is
	// still waiting for the instance.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// Draft is a snapshot of a composer session.
type Draft struct {
	Open           bool
	Target         ReplyTarget
	Content        string
	IdempotencyKey string
	Submitting     bool
}

// PendingMutation is the write being performed by one Submit call.
type PendingMutation struct {
	Target         ReplyTarget
	Content        string
	IdempotencyKey string
}

// Composer holds the reply target and typed content of a single reply
// session. It is created explicitly and handed to whoever needs it.
//
// Composer is safe for concurrent use.
type Composer struct {
	mu         sync.Mutex
	open       bool
	target     ReplyTarget
	content    string
	key        string
	submitting bool
}

// NewComposer returns a closed composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Open starts a new reply session for t, discarding anything left from a
// previous session.
func (c *Composer) Open(t ReplyTarget) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = true
	c.target = t
	c.content = ""
	c.key = uuid.NewString()
	c.submitting = false
	return nil
}

// SetContent replaces the typed content.
func (c *Composer) SetContent(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = s
}

// Target returns the session's reply target.
func (c *Composer) Target() (ReplyTarget, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.open
}

// Draft returns a snapshot of the session.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Draft{
		Open:           c.open,
		Target:         c.target,
		Content:        c.content,
		IdempotencyKey: c.key,
		Submitting:     c.submitting,
	}
}

// Dismiss ends the session. The target is cleared whatever the outcome of
// any earlier submission.
func (c *Composer) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Composer) reset() {
	c.open = false
	c.target = ReplyTarget{}
	c.content = ""
	c.key = ""
	c.submitting = false
}

func (c *Composer) begin() (PendingMutation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return PendingMutation{}, ErrNoTarget
	}
	if strings.TrimSpace(c.content) == "" {
		return PendingMutation{}, ErrEmptyContent
	}
	if c.submitting {
		return PendingMutation{}, ErrSubmitInFlight
	}
	c.submitting = true
	return PendingMutation{Target: c.target, Content: c.content, IdempotencyKey: c.key}, nil
}

// end clears the in-flight flag of the session that began key. A session
// dismissed or reopened meanwhile is left alone.
func (c *Composer) end(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == key {
		c.submitting = false
	}
}

// closeSession dismisses the session that began key, if it is still the
// current one.
func (c *Composer) closeSession(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == key {
		c.reset()
	}
}
