package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const importDoc = `
media:
  - id: 10
    parent: 1
    url: https://blog.example/uploads/door.png
    file: door.png
    alt: a red door
posts:
  - id: 1
    title: Hello <em>world</em>
    permalink: https://blog.example/hello
    status: draft
  - id: 2
    title: Secret
    password: hunter2
    status: draft
`

type fakeServer struct {
	uploads    atomic.Int32
	statuses   atomic.Int32
	failStatus atomic.Bool
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/media":
		s.uploads.Add(1)
		_, _ = io.WriteString(w, `{"id":"501"}`)
	case "/api/v1/statuses":
		s.statuses.Add(1)
		if s.failStatus.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":"try again later"}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"1","url":"https://social.example/@blog/1"}`)
	default:
		http.NotFound(w, r)
	}
}

func setupCLI(t *testing.T) (*fakeServer, string) {
	t.Helper()
	srv := &fakeServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "door.png"), []byte("\x89PNG\r\n\x1a\nrest"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "posts.yaml"), []byte(importDoc), 0o644))

	t.Setenv("TOOTSHARE_CONFIG", "")
	t.Setenv("TOOTSHARE_INSTANCE", ts.URL)
	t.Setenv("TOOTSHARE_ACCESS_TOKEN", "token")
	t.Setenv("TOOTSHARE_DATABASE", filepath.Join(dir, "tootshare.db"))

	out, err := runCLI(t, "import", filepath.Join(dir, "posts.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "imported 2 posts and 1 media\n", out)

	return srv, dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, databaseFlag, verboseFlag = "", "", false

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPublishSharesOnce(t *testing.T) {
	srv, _ := setupCLI(t)

	out, err := runCLI(t, "publish", "1")
	require.NoError(t, err)
	assert.Equal(t, "shared post 1: https://social.example/@blog/1\n", out)
	assert.EqualValues(t, 1, srv.uploads.Load())
	assert.EqualValues(t, 1, srv.statuses.Load())

	out, err = runCLI(t, "publish", "1")
	require.NoError(t, err)
	assert.Equal(t, "post 1 already shared: https://social.example/@blog/1\n", out)
	assert.EqualValues(t, 1, srv.statuses.Load())
}

func TestPublishSkipsProtectedPost(t *testing.T) {
	srv, _ := setupCLI(t)

	out, err := runCLI(t, "publish", "2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "post 2 not shared: "), out)
	assert.Zero(t, srv.statuses.Load())
}

func TestResetAllowsSharingAgain(t *testing.T) {
	srv, _ := setupCLI(t)

	_, err := runCLI(t, "publish", "1")
	require.NoError(t, err)

	out, err := runCLI(t, "reset", "1")
	require.NoError(t, err)
	assert.Equal(t, "cleared share state for post 1; moved back to draft\n", out)

	out, err = runCLI(t, "publish", "1")
	require.NoError(t, err)
	assert.Equal(t, "shared post 1: https://social.example/@blog/1\n", out)
	assert.EqualValues(t, 2, srv.statuses.Load())

	_, err = runCLI(t, "reset", "99")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	srv, dir := setupCLI(t)

	out, err := runCLI(t, "preview", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello world https://blog.example/hello")
	assert.Contains(t, out, `image 10 (alt: "a red door"): `+filepath.Join(dir, "door.png")+" [image/png]")
	assert.Zero(t, srv.uploads.Load())
	assert.Zero(t, srv.statuses.Load())
}

func TestInvalidPostID(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "publish", "abc")
	assert.ErrorContains(t, err, "invalid post id")
}

func TestPublishOfPublishedPostDoesNotRetry(t *testing.T) {
	srv, _ := setupCLI(t)
	srv.failStatus.Store(true)

	_, err := runCLI(t, "publish", "1")
	assert.ErrorContains(t, err, "share post 1")
	assert.EqualValues(t, 1, srv.statuses.Load())

	srv.failStatus.Store(false)
	out, err := runCLI(t, "publish", "1")
	require.NoError(t, err)
	assert.Equal(t, "post 1 not shared: post was already published\n", out)
	assert.EqualValues(t, 1, srv.statuses.Load())

	_, err = runCLI(t, "reset", "1")
	require.NoError(t, err)
	out, err = runCLI(t, "publish", "1")
	require.NoError(t, err)
	assert.Equal(t, "shared post 1: https://social.example/@blog/1\n", out)
}
