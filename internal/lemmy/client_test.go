package lemmy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemmywalk/internal/retry"
	"github.com/lemmywalk/pkg/models"
)

func newTestClient(t *testing.T, srv *httptest.Server, token string) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL: srv.URL,
		Retry: retry.Config{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
			Multiplier: 2,
		},
	}, func() string { return token })
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "lemmy.ml"}, nil)
	assert.Error(t, err)
}

func TestListCommunities_SendsPagingAndAuth(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	var gotHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		gotHeader = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"communities":[{"community":{"id":3,"name":"golang"},"subscribed":"Subscribed"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "jwt-token")
	got, err := c.ListCommunities(context.Background(), ListCommunitiesParams{Type: models.ListingSubscribed, Page: 2, Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, "/api/v3/community/list", gotPath)
	assert.Equal(t, map[string]string{"type_": "Subscribed", "page": "2", "limit": "50", "auth": "jwt-token"}, gotQuery)
	assert.Equal(t, "Bearer jwt-token", gotHeader)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ItemID())
	assert.Equal(t, "golang", got[0].SortKey())
}

func TestGet_AnonymousOmitsAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("auth"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"posts":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	got, err := c.ListPosts(context.Background(), ListPostsParams{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGet_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"communities":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	_, err := c.ListCommunities(context.Background(), ListCommunitiesParams{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"not_logged_in"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	_, err := c.ListCommunities(context.Background(), ListCommunitiesParams{Page: 1})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "not_logged_in", apiErr.Code)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_UndecodableBodyIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>gateway</html>`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	_, err := c.Search(context.Background(), SearchParams{Query: "go"})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSearch_DecodesAllKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/search", r.URL.Path)
		assert.Equal(t, "rust", r.URL.Query().Get("q"))
		assert.Equal(t, "Users", r.URL.Query().Get("type_"))
		_, _ = io.WriteString(w, `{"type_":"Users","comments":[],"posts":[],"communities":[],"users":[{"person":{"id":9,"name":"ferris"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	got, err := c.Search(context.Background(), SearchParams{Query: "rust", Type: models.SearchUsers, Page: 1, Limit: 50})
	require.NoError(t, err)
	require.Len(t, got.Users, 1)
	assert.Equal(t, "ferris", got.Users[0].SortKey())
}

func TestCreateComment_TopLevelOmitsParent(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/comment", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = io.WriteString(w, `{"comment_view":{"comment":{"id":77,"post_id":5,"content":"hi","path":"0.77"}},"form_id":"k-1"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "jwt")
	got, err := c.CreateComment(context.Background(), CreateCommentRequest{Content: "hi", PostID: 5, FormID: "k-1"})
	require.NoError(t, err)

	assert.Equal(t, "hi", body["content"])
	assert.Equal(t, float64(5), body["post_id"])
	assert.Equal(t, "jwt", body["auth"])
	assert.Equal(t, "k-1", body["form_id"])
	assert.NotContains(t, body, "parent_id")
	assert.Equal(t, int64(77), got.Comment.ID)
}

func TestCreateComment_ReplyCarriesParent(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = io.WriteString(w, `{"comment_view":{"comment":{"id":78,"post_id":5,"path":"0.12.78"}}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "jwt")
	got, err := c.CreateComment(context.Background(), CreateCommentRequest{Content: "reply", PostID: 5, ParentID: 12})
	require.NoError(t, err)

	assert.Equal(t, float64(12), body["parent_id"])
	assert.Equal(t, int64(12), got.Comment.ParentID())
}

func TestCreateComment_NeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "jwt")
	_, err := c.CreateComment(context.Background(), CreateCommentRequest{Content: "x", PostID: 1})
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(1), calls.Load())
}

func TestListComments_RequiresPost(t *testing.T) {
	c, err := New(Config{BaseURL: "https://lemmy.example"}, nil)
	require.NoError(t, err)

	_, err = c.ListComments(context.Background(), ListCommentsParams{})
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&APIError{Status: http.StatusTooManyRequests}))
	assert.True(t, IsRetryable(&APIError{Status: http.StatusBadGateway}))
	assert.False(t, IsRetryable(&APIError{Status: http.StatusNotFound}))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(errors.New("invalid input")))
	assert.False(t, IsRetryable(nil))
}
