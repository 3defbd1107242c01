package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/lemmywalk/internal/aggregate"
	"github.com/lemmywalk/internal/compose"
	"github.com/lemmywalk/internal/session"
	"github.com/lemmywalk/internal/thread"
	"github.com/lemmywalk/internal/traverse"
	"github.com/lemmywalk/pkg/models"
)

// Deps are the components the bridge exposes
type Deps struct {
	Lister  traverse.Lister
	Creator compose.Creator
	Session *session.Store
	Options traverse.Options
}

// Server represents the bridge server a front end polls for listing state
// and drives the reply composer through.
type Server struct {
	echo *echo.Echo
	addr string

	session       *session.Store
	lister        traverse.Lister
	options       traverse.Options
	subscriptions *aggregate.Controller[models.CommunityView]
	search        *traverse.Search
	composer      *compose.Composer
	dispatcher    *compose.Dispatcher

	mu      sync.RWMutex
	threads map[int64]*thread.Tree
}

// NewServer creates a new bridge server
func NewServer(addr string, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:          e,
		addr:          addr,
		session:       deps.Session,
		lister:        deps.Lister,
		options:       deps.Options,
		subscriptions: traverse.Subscriptions(deps.Lister, deps.Options),
		search:        traverse.NewSearch(deps.Lister, deps.Options),
		composer:      compose.NewComposer(),
		threads:       make(map[int64]*thread.Tree),
	}
	server.dispatcher = compose.NewDispatcher(deps.Creator, compose.ApplierFunc(server.applyPatch))

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	v1.GET("/session", s.getSession)
	v1.PUT("/session", s.switchSession)

	v1.GET("/subscriptions", s.getSubscriptions)
	v1.POST("/subscriptions/refresh", s.refreshSubscriptions)

	v1.GET("/search", s.runSearch)

	v1.GET("/posts/:id/comments", s.getThread)

	v1.GET("/composer", s.getDraft)
	v1.POST("/composer", s.openComposer)
	v1.PUT("/composer/content", s.setContent)
	v1.POST("/composer/submit", s.submit)
	v1.DELETE("/composer", s.dismiss)
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until ctx is done, then shuts down gracefully. Subscriptions
// are reloaded on every account switch for as long as the server runs.
func (s *Server) Start(ctx context.Context) error {
	bindCtx, stopBind := context.WithCancel(ctx)
	defer stopBind()
	if s.session != nil {
		go s.subscriptions.Bind(bindCtx, s.session)
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("Bridge server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("Shutting down bridge server")
	return s.echo.Shutdown(shutdownCtx)
}

// applyPatch routes a created comment to the loaded thread of its post.
func (s *Server) applyPatch(p compose.Patch) error {
	s.mu.RLock()
	tree, ok := s.threads[p.NewItem.Comment.PostID]
	s.mu.RUnlock()
	if !ok {
		// nothing displayed yet; the next thread load picks it up
		return nil
	}
	return tree.Apply(p)
}
