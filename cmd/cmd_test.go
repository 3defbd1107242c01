package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testApp(out *bytes.Buffer) *cli.App {
	return &cli.App{
		Name:      "lemmywalk",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}},
			&cli.BoolFlag{Name: "verbose"},
		},
		Commands: []*cli.Command{
			SubscriptionsCommand(),
			SearchCommand(),
			ReplyCommand(),
			ConfigCommand(),
		},
	}
}

func writeTestConfig(t *testing.T, instanceURL, token string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lemmywalk.toml")
	body := fmt.Sprintf(`
[instance]
url = %q
username = "alice"
token = %q

[listing]
page_size = 2

[http.retry]
max_retries = 0

[log]
level = "error"
pretty = false
`, instanceURL, token)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func signedToken(t *testing.T, sub int64) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "iss": "lemmy.ml"}).SignedString([]byte("test"))
	require.NoError(t, err)
	return tok
}

func fakeInstance(t *testing.T, created *[]map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/community/list":
			switch r.URL.Query().Get("page") {
			case "1":
				_, _ = io.WriteString(w, `{"communities":[{"community":{"id":2,"name":"rust","title":"Rust"}},{"community":{"id":1,"name":"Golang","title":"Go"}}]}`)
			case "2":
				_, _ = io.WriteString(w, `{"communities":[{"community":{"id":3,"name":"books","title":"Books"}}]}`)
			default:
				_, _ = io.WriteString(w, `{"communities":[]}`)
			}
		case "/api/v3/search":
			_, _ = io.WriteString(w, `{"type_":"All","posts":[],"users":[],"communities":[],"comments":[]}`)
		case "/api/v3/comment/list":
			_, _ = io.WriteString(w, `{"comments":[{"comment":{"id":12,"post_id":5,"path":"0.12","content":"hi"}}]}`)
		case "/api/v3/comment":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			*created = append(*created, body)
			_, _ = fmt.Fprintf(w, `{"comment_view":{"comment":{"id":77,"post_id":5,"path":"0.12.77","content":%q}},"form_id":%q}`, body["content"], body["form_id"])
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSubscriptionsCommand(t *testing.T) {
	srv := fakeInstance(t, nil)
	cfg := writeTestConfig(t, srv.URL, "")

	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"lemmywalk", "--config", cfg, "subscriptions"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "books"))
	assert.True(t, strings.HasPrefix(lines[1], "Golang"))
	assert.True(t, strings.HasPrefix(lines[2], "rust"))
}

func TestSearchCommand_NoResults(t *testing.T) {
	srv := fakeInstance(t, nil)
	cfg := writeTestConfig(t, srv.URL, "")

	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"lemmywalk", "--config", cfg, "search", "nothing", "here"}))
	assert.Contains(t, out.String(), `No results for "nothing here".`)
}

func TestReplyCommand_ToComment(t *testing.T) {
	var created []map[string]interface{}
	srv := fakeInstance(t, &created)
	cfg := writeTestConfig(t, srv.URL, signedToken(t, 7))

	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"lemmywalk", "--config", cfg, "reply", "--post", "5", "--comment", "12", "well", "said"}))

	require.Len(t, created, 1)
	assert.Equal(t, "well said", created[0]["content"])
	assert.Equal(t, float64(12), created[0]["parent_id"])
	assert.NotEmpty(t, created[0]["form_id"])
	assert.Contains(t, out.String(), "Replying to Comment: created comment 77")
}

func TestReplyCommand_RequiresToken(t *testing.T) {
	var created []map[string]interface{}
	srv := fakeInstance(t, &created)
	cfg := writeTestConfig(t, srv.URL, "")

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"lemmywalk", "--config", cfg, "reply", "--post", "5", "hello"})
	assert.Error(t, err)
	assert.Empty(t, created)
}

func TestReplyCommand_EmptyContent(t *testing.T) {
	var created []map[string]interface{}
	srv := fakeInstance(t, &created)
	cfg := writeTestConfig(t, srv.URL, signedToken(t, 7))

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"lemmywalk", "--config", cfg, "reply", "--post", "5", "  "})
	assert.Error(t, err)
	assert.Empty(t, created)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemmywalk.toml")

	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"lemmywalk", "config", "init", "--output", path}))
	assert.Contains(t, out.String(), "Created configuration file")

	out.Reset()
	require.NoError(t, testApp(&out).Run([]string{"lemmywalk", "--config", path, "config", "validate"}))
	assert.Contains(t, out.String(), "anonymous access")
}
