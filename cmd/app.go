package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"

	"github.com/lemmywalk/internal/config"
	"github.com/lemmywalk/internal/lemmy"
	"github.com/lemmywalk/internal/logging"
	"github.com/lemmywalk/internal/session"
	"github.com/lemmywalk/internal/traverse"
)

// app bundles what every command needs once configuration is loaded
type app struct {
	cfg     *config.Config
	session *session.Store
	client  *lemmy.Client
	options traverse.Options
	closeFn func() error
}

func (a *app) Close() {
	if a.closeFn != nil {
		_ = a.closeFn()
	}
}

// setup loads and validates configuration, configures logging, and builds
// the session and instance client.
func setup(c *cli.Context) (*app, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	closeFn, err := logging.Setup(cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	identity, err := session.IdentityFromToken(cfg.Instance.URL, cfg.Instance.Username, cfg.Instance.Token)
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("invalid instance token: %w", err)
	}
	store := session.NewStore(identity)

	client, err := lemmy.New(lemmy.Config{
		BaseURL:       cfg.Instance.URL,
		Timeout:       cfg.HTTP.Timeout,
		RatePerSecond: cfg.HTTP.RatePerSecond,
		Burst:         cfg.HTTP.Burst,
		Retry:         cfg.HTTP.Retry,
	}, func() string { return store.Current().Token })
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	tag, err := language.Parse(cfg.Listing.Language)
	if err != nil {
		log.Warn().Str("language", cfg.Listing.Language).Msg("Unknown collation language, using root order")
		tag = language.Und
	}

	log.Debug().
		Str("instance", cfg.Instance.URL).
		Bool("anonymous", identity.Anonymous()).
		Int("page_size", cfg.Listing.PageSize).
		Msg("Configuration loaded")

	return &app{
		cfg:     cfg,
		session: store,
		client:  client,
		options: traverse.Options{PageSize: cfg.Listing.PageSize, Language: tag},
		closeFn: closeFn,
	}, nil
}
