package app

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fireant/internal/middleware"
)

func TestCurlHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		listenAddr string
		want       string
	}{
		{name: "port only", listenAddr: ":8080", want: "localhost:8080"},
		{name: "ipv4 host and port", listenAddr: "127.0.0.1:8080", want: "127.0.0.1:8080"},
		{name: "wildcard ipv4", listenAddr: "0.0.0.0:8080", want: "localhost:8080"},
		{name: "wildcard ipv6", listenAddr: "[::]:8080", want: "localhost:8080"},
		{name: "ipv6 loopback", listenAddr: "[::1]:8080", want: "[::1]:8080"},
		{name: "trim host and port", listenAddr: " localhost:9090 ", want: "localhost:9090"},
		{name: "empty falls back", listenAddr: "", want: "localhost:8080"},
		{name: "named host", listenAddr: "fireant.internal:80", want: "fireant.internal:80"},
		{name: "malformed passes through", listenAddr: "localhost", want: "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CurlHost(tt.listenAddr))
		})
	}
}

func TestServe(t *testing.T) {
	cfg := testConfig(t, 8)
	cfg.JWTSecret = "s3cret"
	cfg.RateLimitRPS = 100
	cfg.RateLimitBurst = 100
	cfg.CORSAllowedOrigins = []string{"*"}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- Serve(ctx, cfg, logger, ServeOptions{Listener: ln, Ready: func(addr string) { ready <- addr }})
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}
	base := "http://" + addr

	token, err := middleware.IssueHS256("s3cret", "", "alice", time.Minute)
	require.NoError(t, err)

	get := func(path string, auth bool) (*http.Response, string) {
		req, err := http.NewRequest(http.MethodGet, base+path, nil)
		require.NoError(t, err)
		if auth {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	resp, _ := get("/v1/datasets", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := get("/v1/datasets/politics/fields/political_party/choices", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"value":"d"`)
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))

	resp, body = get("/metrics", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(body, "fireant_statements_total"), "executor metrics are exported")
	assert.Contains(t, body, "fireant_result_cache_lookups_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
