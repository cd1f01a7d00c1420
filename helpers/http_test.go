package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/salewatch/pkg/errors"
)

// memoryBlocks is a map backed BlockStore
type memoryBlocks struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (m *memoryBlocks) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, errors.NewCache(key, "cache miss", nil)
	}
	return v, nil
}

func (m *memoryBlocks) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string][]byte)
	}
	m.items[key] = value
	return nil
}

func TestFetchSetsBrowserHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DesktopUserAgent, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.Equal(t, Origin("http://"+r.Host+"/"), r.Header.Get("Referer"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello, World!</body></html>"))
	}))
	defer server.Close()

	body, err := NewPageFetcher(time.Second, nil, 0).Fetch(context.Background(), server.URL+"/en/product/1")
	require.NoError(t, err)
	assert.Contains(t, body, "Hello, World!")
}

func TestFetchDecodesNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "Café" in ISO-8859-1
		w.Write([]byte("<html><body>Caf\xe9</body></html>"))
	}))
	defer server.Close()

	body, err := NewPageFetcher(time.Second, nil, 0).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "Café")
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewPageFetcher(time.Second, nil, 0).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
	assert.True(t, errors.IsType(err, errors.ErrorTypeStatus))
}

func TestFetchRateLimitBlocksHost(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	blocks := &memoryBlocks{}
	f := NewPageFetcher(time.Second, blocks, time.Minute)

	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))

	_, ok := blocks.items["blocked:"+Hostname(server.URL)]
	assert.True(t, ok)

	// The second call never reaches the server
	_, err = f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked for")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewPageFetcher(20*time.Millisecond, nil, 0).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := NewPageFetcher(time.Second, nil, 0).Fetch(context.Background(), "invalid-url")
	assert.Error(t, err)
}
