package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenzapen/unicrawler/spider"
)

func TestFetchPassesHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.Header.Get("X-Auth"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<b>ok</b>"))
	}))
	defer srv.Close()

	f := New()
	text, resp, err := f.Fetch(context.Background(), spider.RequestArgs{
		Method:  "GET",
		URL:     srv.URL,
		Headers: map[string]string{"X-Auth": "token-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<b>ok</b>", text)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, srv.URL, resp.URL)
}

func TestFetchRetriesAfterFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := New()
	text, _, err := f.Fetch(context.Background(), spider.RequestArgs{
		Method: "GET",
		URL:    srv.URL,
		Retry:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchTimeoutSurfacesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := New(WithTimeout(50 * time.Millisecond))
	_, _, err := f.Fetch(context.Background(), spider.RequestArgs{Method: "GET", URL: srv.URL})
	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, srv.URL, te.URL)
	assert.Equal(t, 1, te.Attempts)
}

func TestFetchCachesRepeatedGets(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("cached body"))
	}))
	defer srv.Close()

	f := New(WithCache(time.Minute))
	for i := 0; i < 3; i++ {
		text, _, err := f.Fetch(context.Background(), spider.RequestArgs{Method: "GET", URL: srv.URL})
		require.NoError(t, err)
		assert.Equal(t, "cached body", text)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchBadURL(t *testing.T) {
	f := New()
	_, _, err := f.Fetch(context.Background(), spider.RequestArgs{Method: "GET", URL: "http://127.0.0.1:1/nothing-listens-here"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
}
