package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/odl-optics/remains-relay/internal/testutil"
	"github.com/odl-optics/remains-relay/pkg/cache"
	"github.com/odl-optics/remains-relay/pkg/config"
	"github.com/odl-optics/remains-relay/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(mock *testutil.MockUpstream) *config.Config {
	cfg := config.Default()
	cfg.Upstream.AppName = "odl"
	cfg.Upstream.APIKey = "secret-key"
	cfg.Upstream.BaseURL = mock.URL()
	cfg.Upstream.Timeout = 5 * time.Second
	cfg.Server.Port = 0
	cfg.Server.Token = "relay-token"
	return cfg
}

func TestBuildFetcher_CacheDisabled(t *testing.T) {
	mock := testutil.NewMockUpstream("odl")
	defer mock.Close()

	cfg := testConfig(mock)
	cfg.Cache.TTL = 0

	fetcher, cleanup, err := BuildFetcher(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &pagination.Fetcher{}, fetcher)
}

func TestBuildFetcher_MemoryCache(t *testing.T) {
	mock := testutil.NewMockUpstream("odl")
	defer mock.Close()
	mock.SetPages(`[{"id":1}]`)

	cfg := testConfig(mock)
	cfg.Cache.TTL = time.Minute

	fetcher, cleanup, err := BuildFetcher(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	require.IsType(t, &cache.CachingFetcher{}, fetcher)

	payload := pagination.Payload{Product: "LENS"}
	for i := 0; i < 2; i++ {
		result, err := fetcher.Fetch(context.Background(), payload)
		require.NoError(t, err)
		assert.Len(t, result.Records, 1)
		assert.Equal(t, []string{"id"}, result.Columns)
	}

	assert.Equal(t, 2, mock.RequestCount(), "second fetch served from cache")
}

func TestBuildFetcher_InvalidUpstream(t *testing.T) {
	cfg := config.Default()

	_, _, err := BuildFetcher(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildFetcher_RedisUnreachable(t *testing.T) {
	mock := testutil.NewMockUpstream("odl")
	defer mock.Close()

	cfg := testConfig(mock)
	cfg.Redis.Addr = "127.0.0.1:1"

	_, _, err := BuildFetcher(context.Background(), cfg)
	assert.ErrorContains(t, err, "connect to redis")
}

func TestServer_Handler(t *testing.T) {
	mock := testutil.NewMockUpstream("odl")
	defer mock.Close()

	srv, err := New(context.Background(), testConfig(mock))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestServer_StartStopsOnCancel(t *testing.T) {
	mock := testutil.NewMockUpstream("odl")
	defer mock.Close()

	srv, err := New(context.Background(), testConfig(mock))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
