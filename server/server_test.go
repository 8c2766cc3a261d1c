package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/node"
	"github.com/hupe1980/taskmesh/remote"
	"github.com/hupe1980/taskmesh/runner"
)

func newTestServer(t *testing.T, optFns ...func(o *Options)) *httptest.Server {
	t.Helper()

	m := model.NewMockModel("mock", "mock")
	m.AddResponse("ping", "pong")

	r := runner.New(node.NewLocalNode("echo", "echoes input", "", m))

	srv := httptest.NewServer(New(r, optFns...).Handler())
	t.Cleanup(srv.Close)

	return srv
}

func postRun(t *testing.T, url string, req runRequest) (*http.Response, runResponse) {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(url+"/run", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out runResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}

	return resp, out
}

func TestServer_Run(t *testing.T) {
	srv := newTestServer(t)

	resp, out := postRun(t, srv.URL, runRequest{Input: "ping"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, core.StatusSucceeded, out.Status)
	assert.Equal(t, "pong", out.Output)
	assert.Equal(t, "pong", out.State["echo"])
}

func TestServer_RunWithSeedState(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	r := runner.New(node.NewLocalNode("summarizer", "summarizes", "About {topic}.", m))

	srv := httptest.NewServer(New(r).Handler())
	t.Cleanup(srv.Close)

	resp, out := postRun(t, srv.URL, runRequest{
		Input: "summarize",
		State: map[string]any{"topic": "generics"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, core.StatusSucceeded, out.Status)

	// Only run writes come back, not the seed.
	_, seeded := out.State["topic"]
	assert.False(t, seeded)
	assert.NotEmpty(t, out.State["summarizer"])
}

func TestServer_InvalidBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/run", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_CapabilityCard(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.PublicURL = "http://mesh.example.com" })

	resp, err := http.Get(srv.URL + remote.CardWellKnownPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var card remote.Card
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))

	assert.Equal(t, "echo", card.Name)
	assert.Equal(t, "http://mesh.example.com/run", card.URL)
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RateLimiting(t *testing.T) {
	srv := newTestServer(t, func(o *Options) {
		o.RateLimit = rate.Limit(1)
		o.RateBurst = 1
	})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestServer_RemoteNodeAgainstServer(t *testing.T) {
	// A remote.Node talks to a served runner end to end.
	srv := newTestServer(t)

	proxy := remote.NewNode("proxy", srv.URL)
	rc := core.NewRunContext(t.Context(), core.NewID(), "ping", nil, nil, 0, nil)

	res := node.Execute(rc, proxy)

	require.True(t, res.Succeeded())
	assert.Equal(t, "pong", res.Output)
	assert.Equal(t, "pong", rc.State.GetString("proxy"))
}
