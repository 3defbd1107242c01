package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONAndFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	closer, err := Setup(Config{Level: "debug", File: path}, &buf)
	require.NoError(t, err)

	log.Debug().Str("listing", "subscriptions").Msg("Listing loaded")
	require.NoError(t, closer())

	assert.Contains(t, buf.String(), `"listing":"subscriptions"`)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Listing loaded")
}

func TestSetup_LevelFilters(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	_, err := Setup(Config{Level: "WARN"}, &buf)
	require.NoError(t, err)

	log.Info().Msg("quiet")
	log.Warn().Msg("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(Config{Level: "chatty"}, &bytes.Buffer{})
	assert.Error(t, err)
}
