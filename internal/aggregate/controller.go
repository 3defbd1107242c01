// Package aggregate presents a paginated listing as a loading lifecycle.
//
// A Controller runs a Source, normalizes the result (dedup by id, then a
// case-insensitive locale-aware sort) and publishes it as a State.
//
// # Overlapping cycles
//
// Load and Refresh may be called while another cycle is in flight. The most
// recently started cycle wins: starting a cycle cancels the previous one and
// bumps the generation, and a cycle whose generation is no longer current
// discards its result instead of committing it. A superseded cycle never
// moves the controller to Error.
//
// # Thread Safety
//
// Controller is safe for concurrent use.
package aggregate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/lemmywalk/internal/session"
	"github.com/lemmywalk/pkg/models"
)

// ErrSuperseded is returned by a cycle whose result was discarded because a
// newer cycle started.
var ErrSuperseded = errors.New("aggregation cycle superseded")

// Source produces the raw, un-normalized items of one cycle.
type Source[T models.Item] func(ctx context.Context) ([]T, error)

// Option configures a Controller.
type Option[T models.Item] func(*Controller[T])

// WithCompare replaces the default SortKey collation.
func WithCompare[T models.Item](cmp CompareFunc[T]) Option[T] {
	return func(c *Controller[T]) {
		c.comparer = func() CompareFunc[T] { return cmp }
	}
}

// WithLanguage sets the collation locale used for sorting.
func WithLanguage[T models.Item](tag language.Tag) Option[T] {
	return func(c *Controller[T]) { c.comparer = SortKeyCollation[T](tag) }
}

// WithFailureMessage sets the message logged when a cycle fails.
func WithFailureMessage[T models.Item](msg string) Option[T] {
	return func(c *Controller[T]) { c.failMsg = msg }
}

// WithLogger sets the logger used for cycle failures.
func WithLogger[T models.Item](l zerolog.Logger) Option[T] {
	return func(c *Controller[T]) { c.logger = l }
}

// Controller owns the published State of one listing.
type Controller[T models.Item] struct {
	name     string
	source   Source[T]
	comparer func() CompareFunc[T]
	logger   zerolog.Logger
	failMsg  string

	mu     sync.Mutex
	state  State[T]
	gen    uint64
	cancel context.CancelFunc
	subs   map[int]chan State[T]
	nextID int
}

type cycle struct {
	gen    uint64
	status Status
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an idle controller. name labels log lines.
func New[T models.Item](name string, source Source[T], opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		name:     name,
		source:   source,
		comparer: SortKeyCollation[T](defaultTag),
		logger:   log.Logger,
		failMsg:  "Failed to load listing",
		state:    State[T]{Status: Idle, Items: []T{}},
		subs:     make(map[int]chan State[T]),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("listing", name).Logger()
	return c
}

// State returns the current snapshot.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load runs a full cycle. The displayed items are blanked while loading
// and stay empty if the cycle fails.
func (c *Controller[T]) Load(ctx context.Context) error {
	return c.finish(c.begin(ctx, Loading))
}

// Refresh runs a full cycle while keeping the current items visible. On
// failure the previous items are kept alongside the Error status.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	return c.finish(c.begin(ctx, Refreshing))
}

// Bind performs exactly one Load per identity delivered by w, including the
// identity current at bind time, until ctx is done. It blocks; cycles are
// started in delivery order so the newest identity always wins.
func (c *Controller[T]) Bind(ctx context.Context, w session.Watcher) {
	changes, unsubscribe := w.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-changes:
			if !ok {
				return
			}
			c.logger.Debug().Str("account", id.Key()).Msg("Identity changed, reloading")
			cy := c.begin(ctx, Loading)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = c.finish(cy)
			}()
		}
	}
}

// Subscribe returns a channel receiving every published state. A slow
// reader only ever sees the latest one.
func (c *Controller[T]) Subscribe() (<-chan State[T], func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State[T], 1)
	ch <- c.state
	id := c.nextID
	c.nextID++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

func (c *Controller[T]) begin(ctx context.Context, status Status) cycle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	cctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	next := State[T]{Status: status, Items: c.state.Items, Generation: c.state.Generation}
	if status == Loading {
		next.Items = []T{}
	}
	c.publish(next)

	return cycle{gen: c.gen, status: status, ctx: cctx, cancel: cancel}
}

func (c *Controller[T]) finish(cy cycle) error {
	items, err := c.source(cy.ctx)
	if err == nil {
		items = Normalize(items, c.comparer())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cy.cancel()

	if cy.gen != c.gen {
		c.logger.Debug().Uint64("generation", cy.gen).Msg("Discarding superseded cycle")
		return ErrSuperseded
	}
	c.cancel = nil

	if err != nil {
		c.logger.Error().Err(err).Str("mode", cy.status.String()).Msg(c.failMsg)
		c.publish(State[T]{Status: Error, Items: c.state.Items, Err: err, Generation: c.state.Generation})
		return err
	}

	c.logger.Debug().Int("items", len(items)).Uint64("generation", cy.gen).Msg("Listing loaded")
	c.publish(State[T]{Status: Ready, Items: items, Generation: cy.gen})
	return nil
}

// publish installs s and fans it out. Callers hold c.mu.
func (c *Controller[T]) publish(s State[T]) {
	c.state = s
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
