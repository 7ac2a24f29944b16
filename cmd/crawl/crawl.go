package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-micro/plugins/v4/config/encoder/toml"
	"github.com/spf13/cobra"
	"go-micro.dev/v4/config"
	"go-micro.dev/v4/config/reader"
	jsonreader "go-micro.dev/v4/config/reader/json"
	"go-micro.dev/v4/config/source"
	"go-micro.dev/v4/config/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wenzapen/unicrawler/collect"
	"github.com/wenzapen/unicrawler/engine"
	"github.com/wenzapen/unicrawler/extract"
	"github.com/wenzapen/unicrawler/limiter"
	"github.com/wenzapen/unicrawler/log"
	"github.com/wenzapen/unicrawler/proxy"
	"github.com/wenzapen/unicrawler/spider"
	"github.com/wenzapen/unicrawler/storage/etcdstore"
	"github.com/wenzapen/unicrawler/storage/jsonstore"
)

var CrawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "crawl one url through the stored rules",
	Long:  "resolve the url to a crawler rule, fetch and extract, follow recursive requests",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		Run(args[0])
	},
}

var configPath string

func init() {
	CrawlCmd.Flags().StringVar(&configPath, "config", "config.toml", "config file path")
}

// RateConfig is one per-destination rate entry from the config file.
type RateConfig struct {
	Host     string
	Limit    int
	Interval int // seconds
}

func Run(url string) {
	enc := toml.NewEncoder()
	cfg, err := config.NewConfig(config.WithReader(jsonreader.NewReader(reader.WithEncoder(enc))))
	if err != nil {
		panic(err)
	}
	if err := cfg.Load(file.NewSource(file.WithPath(configPath), source.WithEncoder(enc))); err != nil {
		panic(err)
	}

	logText := cfg.Get("logLevel").String("INFO")
	logLevel, err := zapcore.ParseLevel(logText)
	if err != nil {
		panic(err)
	}
	plugin := log.NewStdoutPlugin(logLevel)
	logger := log.NewLogger(plugin)
	logger.Info("log init end")

	fetchOpts := []collect.Option{
		collect.WithLogger(logger),
		collect.WithTimeout(time.Duration(cfg.Get("fetcher", "timeout").Int(5000)) * time.Millisecond),
	}
	if proxyURLs := cfg.Get("fetcher", "proxy").StringSlice(nil); len(proxyURLs) > 0 {
		p, err := proxy.RoundRobinSwitcher(proxyURLs...)
		if err != nil {
			logger.Fatal("RoundRobinSwitcher failed", zap.Error(err))
		}
		fetchOpts = append(fetchOpts, collect.WithProxy(p))
	}
	if rate := cfg.Get("fetcher", "throttle").Float64(0); rate > 0 {
		fetchOpts = append(fetchOpts, collect.WithThrottle(rate, int64(rate)+1))
	}
	if ttl := cfg.Get("fetcher", "cacheTTL").Int(0); ttl > 0 {
		fetchOpts = append(fetchOpts, collect.WithCache(time.Duration(ttl)*time.Second))
	}
	fetcher := collect.New(fetchOpts...)

	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal("create rule store failed", zap.Error(err))
	}

	pool := limiter.NewPool()
	var rates []RateConfig
	if err := cfg.Get("rates").Scan(&rates); err != nil {
		logger.Warn("read rate config failed", zap.Error(err))
	}
	for _, r := range rates {
		pool.SetRate(r.Host, r.Limit, time.Duration(r.Interval)*time.Second)
	}

	registry, err := extract.NewRegistry(extract.DefaultExtractors()...)
	if err != nil {
		logger.Fatal("build extractor registry failed", zap.Error(err))
	}

	crawler, err := engine.NewCrawler(
		engine.WithLogger(logger),
		engine.WithStore(store),
		engine.WithFetcher(fetcher),
		engine.WithRegistry(registry),
		engine.WithPool(pool),
		engine.WithStrategy(spider.Strategy(cfg.Get("crawler", "strategy").String("search"))),
		engine.WithMaxDepth(cfg.Get("crawler", "maxDepth").Int(5)),
		engine.WithRecursion(cfg.Get("crawler", "recursion").Bool(true)),
	)
	if err != nil {
		logger.Fatal("create crawler failed", zap.Error(err))
	}

	result, err := crawler.Crawl(context.Background(), url, nil)
	if err != nil {
		logger.Fatal("crawl failed", zap.String("url", url), zap.Error(err))
	}
	out, err := encodeResult(result)
	if err != nil {
		logger.Fatal("encode result failed", zap.Error(err))
	}
	fmt.Println(out)
}

func newStore(cfg config.Config, logger *zap.Logger) (spider.RuleStore, error) {
	switch backend := cfg.Get("storage", "backend").String("json"); backend {
	case "json":
		return jsonstore.New(
			jsonstore.WithPath(cfg.Get("storage", "path").String("host_rules.json")),
			jsonstore.WithLogger(logger),
		)
	case "etcd":
		return etcdstore.New(
			etcdstore.WithEndpoints(cfg.Get("storage", "endpoints").StringSlice([]string{"127.0.0.1:2379"})...),
			etcdstore.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// encodeResult renders embedded error values as strings so the result stays
// plain JSON.
func encodeResult(result map[string]any) (string, error) {
	raw, err := json.MarshalIndent(sanitize(result), "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func sanitize(value any) any {
	switch v := value.(type) {
	case error:
		return map[string]any{"__error__": v.Error()}
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitize(item)
		}
		return out
	default:
		return v
	}
}
