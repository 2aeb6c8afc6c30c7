package gitops

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/defaults"
)

func TestNewGitHubAnonymous(t *testing.T) {
	g := NewGitHub("")
	assert.False(t, g.Authenticated())

	g = NewGitHub("ghp_sometoken")
	assert.True(t, g.Authenticated())
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaults.GitHubSearchLimit, clampLimit(0))
	assert.Equal(t, defaults.GitHubSearchLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, defaults.GitHubSearchMax, clampLimit(1000))
}

func TestWriteOperationsRequireToken(t *testing.T) {
	g := NewGitHub("")

	_, err := g.CreateFile(context.Background(), "o", "r", "f.txt", "", "msg", "data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), defaults.EnvGitHubPAT)

	_, err = g.UpdateFile(context.Background(), "o", "r", "f.txt", "", "msg", "data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), defaults.EnvGitHubPAT)

	_, err = g.CreateRepository(context.Background(), "demo", "", true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), defaults.EnvGitHubPAT)
}

func TestSearchValidation(t *testing.T) {
	g := NewGitHub("")

	_, _, err := g.SearchUsers(context.Background(), "", 5)
	require.Error(t, err)

	_, _, err = g.SearchRepositories(context.Background(), "", 5, "")
	require.Error(t, err)

	_, _, err = g.SearchRepositories(context.Background(), "cli", 5, "bogus")
	require.Error(t, err)

	_, err = g.GetUser(context.Background(), "")
	require.Error(t, err)

	_, err = g.GetRepository(context.Background(), "", "repo")
	require.Error(t, err)

	_, err = g.GetFileContent(context.Background(), "owner", "repo", "", "")
	require.Error(t, err)
}

// newStubGitHub points the REST client at a local test server.
func newStubGitHub(t *testing.T, handler http.HandlerFunc) *GitHub {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGitHub("")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	g.client.BaseURL = base
	return g
}

func TestLookupBlobSHA(t *testing.T) {
	t.Run("404 means file does not exist", func(t *testing.T) {
		g := newStubGitHub(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		})
		sha, err := g.lookupBlobSHA(context.Background(), "o", "r", "f.txt", "")
		require.NoError(t, err)
		assert.Empty(t, sha)
	})

	t.Run("server error propagates", func(t *testing.T) {
		g := newStubGitHub(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		})
		_, err := g.lookupBlobSHA(context.Background(), "o", "r", "f.txt", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "o/r f.txt")
	})

	t.Run("existing file returns its sha", func(t *testing.T) {
		g := newStubGitHub(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"type":"file","name":"f.txt","path":"f.txt","sha":"abc123"}`)
		})
		sha, err := g.lookupBlobSHA(context.Background(), "o", "r", "f.txt", "main")
		require.NoError(t, err)
		assert.Equal(t, "abc123", sha)
	})
}
