package kvserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kvblast/internal/blaster"
	"kvblast/internal/stats"
	"kvblast/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(storage.NewMemory(), "memory", zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSetGetDeleteFlow(t *testing.T) {
	srv := newTestServer(t)

	var ok struct {
		Success bool `json:"success"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/keys", map[string]interface{}{"key": "k", "value": "v"}, &ok)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, ok.Success)

	var got struct {
		Value *string `json:"value"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/keys/k", nil, &got)
	require.NotNil(t, got.Value)
	assert.Equal(t, "v", *got.Value)

	doJSON(t, http.MethodDelete, srv.URL+"/keys/k", nil, &ok)
	assert.True(t, ok.Success)

	got.Value = nil
	doJSON(t, http.MethodGet, srv.URL+"/keys/k", nil, &got)
	assert.Nil(t, got.Value)
}

func TestGetMissingKeyReturnsNull(t *testing.T) {
	srv := newTestServer(t)

	var got struct {
		Value *string `json:"value"`
	}
	code := doJSON(t, http.MethodGet, srv.URL+"/keys/nope", nil, &got)
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, got.Value)
}

func TestIntegerValues(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/keys", map[string]interface{}{"key": "n", "value": 7}, nil)

	var got struct {
		Value *int64 `json:"value"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/keys/n", nil, &got)
	require.NotNil(t, got.Value)
	assert.EqualValues(t, 7, *got.Value)
}

func TestIncrementDecrement(t *testing.T) {
	srv := newTestServer(t)

	var got struct {
		Value int64 `json:"value"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/keys/ctr/inc", map[string]interface{}{"value": 5, "default": 10}, &got)
	assert.EqualValues(t, 15, got.Value)

	doJSON(t, http.MethodPost, srv.URL+"/keys/ctr/dec", map[string]interface{}{"value": 3}, &got)
	assert.EqualValues(t, 12, got.Value)
}

// A type error is reported in-band with HTTP 200, like every other
// failure.
func TestIncrementWrongTypeReportsBodyError(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/keys", map[string]interface{}{"key": "s", "value": "text"}, nil)

	var got struct {
		Error string `json:"error"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/keys/s/inc", map[string]interface{}{"value": 1}, &got)
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, got.Error)
}

func TestTTLEndpoints(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/keys", map[string]interface{}{"key": "k", "value": "v", "ttl": 100}, nil)

	var got struct {
		TTL int64 `json:"ttl"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/keys/k/ttl", nil, &got)
	assert.Greater(t, got.TTL, int64(0))
	assert.LessOrEqual(t, got.TTL, int64(100))

	var ok struct {
		Success bool `json:"success"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/keys/k/ttl", map[string]interface{}{"ttl": -1}, &ok)
	assert.True(t, ok.Success)

	doJSON(t, http.MethodGet, srv.URL+"/keys/k/ttl", nil, &got)
	assert.EqualValues(t, -1, got.TTL)

	// Missing keys report -1 rather than an error.
	doJSON(t, http.MethodGet, srv.URL+"/keys/absent/ttl", nil, &got)
	assert.EqualValues(t, -1, got.TTL)
}

func TestPrefixOperations(t *testing.T) {
	srv := newTestServer(t)

	for _, k := range []string{"a-1", "a-2", "b-1"} {
		doJSON(t, http.MethodPost, srv.URL+"/keys", map[string]interface{}{"key": k, "value": "v"}, nil)
	}

	var got struct {
		Keys []string `json:"keys"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/keys?prefix=a-", nil, &got)
	assert.ElementsMatch(t, []string{"a-1", "a-2"}, got.Keys)

	var ok struct {
		Success bool `json:"success"`
	}
	doJSON(t, http.MethodDelete, srv.URL+"/keys", map[string]interface{}{"prefix": "a-"}, &ok)
	assert.True(t, ok.Success)

	doJSON(t, http.MethodGet, srv.URL+"/keys?prefix=a-", nil, &got)
	assert.Empty(t, got.Keys)

	doJSON(t, http.MethodGet, srv.URL+"/keys?prefix=b-", nil, &got)
	assert.Equal(t, []string{"b-1"}, got.Keys)
}

func TestInfo(t *testing.T) {
	srv := newTestServer(t)

	var got struct {
		Version   string `json:"version"`
		GoVersion string `json:"go"`
		Backend   string `json:"backend"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/info", nil, &got)
	assert.NotEmpty(t, got.Version)
	assert.NotEmpty(t, got.GoVersion)
	assert.Equal(t, "memory", got.Backend)
}

// TestDriverRoundTrip runs the load driver against the real server and
// checks the round-trip property the driver itself never asserts: a
// set value reads back intact before its delete.
func TestDriverRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	pool := stats.NewPool()
	b := blaster.New(blaster.Config{
		BaseURL:    srv.URL + "/keys",
		Workers:    2,
		Iterations: 2,
	}, pool, io.Discard, nil)

	summary, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalRequests)
	assert.Equal(t, 12, pool.Count())

	// Every key was deleted on its way out.
	var got struct {
		Keys []string `json:"keys"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/keys?prefix=key-", nil, &got)
	assert.Empty(t, got.Keys)

	// The service echoes what the driver would have seen mid-iteration.
	doJSON(t, http.MethodPost, srv.URL+"/keys", map[string]interface{}{"key": "key-9-9", "value": "value-9-9"}, nil)
	var read struct {
		Value *string `json:"value"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/keys/key-9-9", nil, &read)
	require.NotNil(t, read.Value)
	assert.Equal(t, "value-9-9", *read.Value)
}
