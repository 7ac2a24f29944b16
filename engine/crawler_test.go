package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenzapen/unicrawler/collect"
	"github.com/wenzapen/unicrawler/extract"
	"github.com/wenzapen/unicrawler/limiter"
	"github.com/wenzapen/unicrawler/spider"
	"github.com/wenzapen/unicrawler/storage/jsonstore"
)

// newTestSite serves a list page linking three detail pages. The detail
// handlers respond slowest first so concurrent fan-out would scramble the
// outcomes if ordering were not enforced.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		fmt.Fprintf(w, `<a href="%s/d/1">one</a><a href="%s/d/2">two</a><a href="%s/d/3">three</a>`,
			base, base, base)
	})
	delays := map[string]time.Duration{
		"/d/1": 120 * time.Millisecond,
		"/d/2": 60 * time.Millisecond,
		"/d/3": 0,
	}
	for path, delay := range delays {
		path, delay := path, delay
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			fmt.Fprintf(w, "<b>detail %s</b>", path[len("/d/"):])
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T, baseURL string) spider.RuleStore {
	t.Helper()
	store, err := jsonstore.New()
	require.NoError(t, err)

	list, err := spider.NewCrawlerRule("list",
		spider.RequestArgs{Method: "GET", URL: baseURL + "/list"},
		[]*spider.ParseRule{
			spider.NewParseRule(spider.RequestKey, []extract.Step{{Op: "css", Param: "a", Arg: "@href"}}),
		},
		`/list`)
	require.NoError(t, err)
	require.NoError(t, store.AddCrawlerRule(list, false))

	detail, err := spider.NewCrawlerRule("detail",
		spider.RequestArgs{Method: "GET", URL: baseURL + "/d/1"},
		[]*spider.ParseRule{
			spider.NewParseRule("title", []extract.Step{{Op: "css", Param: "b", Arg: "$text"}}),
		},
		`/d/\d+`)
	require.NoError(t, err)
	require.NoError(t, store.AddCrawlerRule(detail, false))
	return store
}

func newTestCrawler(t *testing.T, baseURL string, opts ...Option) *Crawler {
	t.Helper()
	registry, err := extract.NewRegistry(extract.DefaultExtractors()...)
	require.NoError(t, err)
	base := []Option{
		WithStore(newTestStore(t, baseURL)),
		WithFetcher(collect.New()),
		WithRegistry(registry),
	}
	c, err := NewCrawler(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestCrawlFollowsRequestsInOrder(t *testing.T) {
	srv := newTestSite(t)
	c := newTestCrawler(t, srv.URL)

	result, err := c.Crawl(context.Background(), srv.URL+"/list", nil)
	require.NoError(t, err)

	inner := result["list"].(map[string]any)
	requests := inner[spider.RequestKey].([]any)
	require.Len(t, requests, 3)

	outcomes := inner[spider.ResultKey].([]any)
	require.Len(t, outcomes, 3)
	for i, want := range []string{"detail 1", "detail 2", "detail 3"} {
		sub := outcomes[i].(map[string]any)
		detail := sub["detail"].(map[string]any)
		assert.Equal(t, []any{want}, detail["title"])
	}
}

func TestCrawlWithoutRecursion(t *testing.T) {
	srv := newTestSite(t)
	c := newTestCrawler(t, srv.URL, WithRecursion(false))

	result, err := c.Crawl(context.Background(), srv.URL+"/list", nil)
	require.NoError(t, err)

	inner := result["list"].(map[string]any)
	assert.Contains(t, inner, spider.RequestKey)
	assert.NotContains(t, inner, spider.ResultKey)
}

func TestCrawlDepthLimit(t *testing.T) {
	srv := newTestSite(t)
	c := newTestCrawler(t, srv.URL, WithMaxDepth(0))

	result, err := c.Crawl(context.Background(), srv.URL+"/list", nil)
	require.NoError(t, err)

	inner := result["list"].(map[string]any)
	assert.NotContains(t, inner, spider.ResultKey)
}

func TestCrawlUnroutableRequest(t *testing.T) {
	srv := newTestSite(t)
	c := newTestCrawler(t, srv.URL)

	_, err := c.Crawl(context.Background(), "https://unknown.invalid/page", nil)
	require.ErrorIs(t, err, spider.ErrRuleNotFound)
}

func TestCrawlTransportFailure(t *testing.T) {
	srv := newTestSite(t)
	c := newTestCrawler(t, srv.URL)
	srv.Close()

	_, err := c.Crawl(context.Background(), srv.URL+"/d/1", nil)
	require.Error(t, err)
	var te *collect.TransportError
	require.ErrorAs(t, err, &te)
}

func TestCrawlSeedsContext(t *testing.T) {
	srv := newTestSite(t)
	c := newTestCrawler(t, srv.URL)

	crawlCtx := extract.NewContext(map[string]any{"url": "caller-owned"})
	_, err := c.Crawl(context.Background(), srv.URL+"/d/1", crawlCtx)
	require.NoError(t, err)

	// Caller-seeded keys survive; fetch metadata fills the gaps.
	url, _ := crawlCtx.Get("url")
	assert.Equal(t, "caller-owned", url)
	resp, ok := crawlCtx.Get("response")
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resp.(*collect.Response).StatusCode)
}

func TestCrawlAsyncMatchesCrawl(t *testing.T) {
	srv := newTestSite(t)
	c := newTestCrawler(t, srv.URL)

	sync, err := c.Crawl(context.Background(), srv.URL+"/list", nil)
	require.NoError(t, err)

	res := <-c.CrawlAsync(context.Background(), srv.URL+"/list", nil)
	require.NoError(t, res.Err)
	assert.Equal(t, sync, res.Data)
}

func TestCrawlRespectsPerHostGate(t *testing.T) {
	srv := newTestSite(t)
	pool := limiter.NewPool()
	host := spider.GetHost(srv.URL)
	pool.SetRate(host, 2, 200*time.Millisecond)
	c := newTestCrawler(t, srv.URL, WithPool(pool))

	// The list page plus three detail pages is four acquisitions against a
	// window of two.
	start := time.Now()
	_, err := c.Crawl(context.Background(), srv.URL+"/list", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestNewCrawlerValidatesDependencies(t *testing.T) {
	_, err := NewCrawler()
	require.Error(t, err)

	store, err := jsonstore.New()
	require.NoError(t, err)
	_, err = NewCrawler(WithStore(store))
	require.Error(t, err)

	_, err = NewCrawler(WithStore(store), WithFetcher(collect.New()))
	require.Error(t, err)
}
