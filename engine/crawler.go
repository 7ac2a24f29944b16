// Package engine orchestrates one crawl: route the identifier to a rule,
// rate-limit, fetch, evaluate the rule tree and recursively re-crawl any
// identifiers the result asks for.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wenzapen/unicrawler/extract"
	"github.com/wenzapen/unicrawler/spider"
)

type Crawler struct {
	options
}

func NewCrawler(opts ...Option) (*Crawler, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	c := &Crawler{options: options}
	if c.Store == nil {
		return nil, fmt.Errorf("crawler needs a rule store")
	}
	if c.Fetcher == nil {
		return nil, fmt.Errorf("crawler needs a fetcher")
	}
	if c.Registry == nil {
		return nil, fmt.Errorf("crawler needs an extractor registry")
	}
	return c, nil
}

// visitSet dedupes requests within one top-level crawl so cyclic rule graphs
// terminate. Independent crawls never share a set.
type visitSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newVisitSet() *visitSet {
	return &visitSet{seen: make(map[string]bool)}
}

func (v *visitSet) firstVisit(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen[key] {
		return false
	}
	v.seen[key] = true
	return true
}

// Crawl resolves request to a rule, fetches and evaluates it, and follows
// the __request__ sentinel recursively. Route resolution and transport
// failures return typed errors; extraction failures inside capabilities stay
// embedded in the result. The caller may seed crawlCtx; nil gets a fresh
// context scoped to this crawl.
func (c *Crawler) Crawl(ctx context.Context, request any, crawlCtx *extract.Context) (map[string]any, error) {
	if crawlCtx == nil {
		crawlCtx = extract.NewContext(nil)
	}
	logger := c.Logger.With(zap.String("crawl_id", uuid.NewString()))
	return c.crawl(ctx, logger, request, crawlCtx, 0, newVisitSet())
}

// Result pairs the outcome of an asynchronous crawl.
type Result struct {
	Data map[string]any
	Err  error
}

// CrawlAsync runs Crawl in the background and delivers the single outcome on
// the returned channel. Result shape and error taxonomy are identical to
// Crawl.
func (c *Crawler) CrawlAsync(ctx context.Context, request any, crawlCtx *extract.Context) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		data, err := c.Crawl(ctx, request, crawlCtx)
		out <- Result{Data: data, Err: err}
	}()
	return out
}

func (c *Crawler) crawl(ctx context.Context, logger *zap.Logger, request any, crawlCtx *extract.Context, depth int, visited *visitSet) (map[string]any, error) {
	args, err := spider.EnsureRequest(request)
	if err != nil {
		return nil, err
	}
	if !visited.firstVisit(args.Unique()) {
		logger.Debug("request already visited", zap.String("url", args.URL))
		return nil, nil
	}

	rule, err := c.Store.FindBy(args.URL, c.Strategy)
	if err != nil {
		return nil, err
	}

	// Beyond the url the request uses the crawler rule's own args.
	args = rule.RequestArgs.Merge(args)

	if host := spider.GetHost(args.URL); host != "" {
		if c.Pool != nil {
			if err := c.Pool.Acquire(ctx, host); err != nil {
				return nil, err
			}
		}
	}
	if c.Limit != nil {
		if err := c.Limit.Wait(ctx); err != nil {
			return nil, err
		}
	}

	text, resp, err := c.Fetcher.Fetch(ctx, args)
	if err != nil {
		logger.Warn("fetch failed", zap.String("url", args.URL), zap.Error(err))
		return nil, err
	}

	crawlCtx.SetDefault("url", args.URL)
	crawlCtx.SetDefault("request", args)
	crawlCtx.SetDefault("response", resp)

	result, err := rule.Evaluate(c.Registry, text, crawlCtx)
	if err != nil {
		return nil, err
	}

	if c.Recursion {
		if err := c.followRequests(ctx, logger, rule.Name, result, crawlCtx, depth, visited); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// followRequests attaches recursive crawl outcomes under __result__ next to
// the __request__ sentinel. Failures of individual sub-crawls embed as error
// values in order; they never abort the enclosing crawl.
func (c *Crawler) followRequests(ctx context.Context, logger *zap.Logger, ruleName string, result map[string]any, crawlCtx *extract.Context, depth int, visited *visitSet) error {
	inner, ok := result[ruleName].(map[string]any)
	if !ok {
		return nil
	}
	next, ok := inner[spider.RequestKey]
	if !ok || next == nil {
		return nil
	}
	if depth >= c.MaxDepth {
		logger.Debug("max crawl depth reached", zap.Int("depth", depth))
		return nil
	}

	subCrawl := func(request any) any {
		sub, err := c.crawl(ctx, logger, request, crawlCtx, depth+1, visited)
		if err != nil {
			return err
		}
		return sub
	}

	switch requests := next.(type) {
	case []any:
		// Fan out concurrently; outcomes keep the input order no matter
		// the completion order.
		outcomes := make([]any, len(requests))
		g, gctx := errgroup.WithContext(ctx)
		for i, request := range requests {
			i, request := i, request
			g.Go(func() error {
				if request == nil || request == "" {
					outcomes[i] = nil
					return nil
				}
				sub, err := c.crawl(gctx, logger, request, crawlCtx, depth+1, visited)
				if err != nil {
					outcomes[i] = err
					return nil
				}
				outcomes[i] = sub
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		inner[spider.ResultKey] = outcomes
	default:
		inner[spider.ResultKey] = subCrawl(next)
	}
	return nil
}
