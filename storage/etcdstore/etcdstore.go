// Package etcdstore persists host routing tables in etcd, one key per host.
// Writes are durable immediately; Commit is a no-op kept for interface
// parity with buffered stores.
package etcdstore

import (
	"context"
	"encoding/json"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/wenzapen/unicrawler/spider"
)

type Store struct {
	cli *clientv3.Client
	options
}

func New(opts ...Option) (*Store, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   options.endpoints,
		DialTimeout: options.dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Store{cli: cli, options: options}, nil
}

func (s *Store) Close() error {
	return s.cli.Close()
}

func (s *Store) hostKey(host string) string {
	return s.prefix + host
}

func (s *Store) getHostRule(ctx context.Context, host string) (*spider.HostRule, error) {
	resp, err := s.cli.Get(ctx, s.hostKey(host))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	var rule spider.HostRule
	if err := json.Unmarshal(resp.Kvs[0].Value, &rule); err != nil {
		return nil, fmt.Errorf("host rule for %q: %w", host, err)
	}
	return &rule, nil
}

func (s *Store) putHostRule(ctx context.Context, rule *spider.HostRule) error {
	raw, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	_, err = s.cli.Put(ctx, s.hostKey(rule.Host), string(raw))
	return err
}

func (s *Store) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

func (s *Store) Find(rawURL string) (*spider.CrawlerRule, error) {
	return s.FindBy(rawURL, spider.StrategySearch)
}

func (s *Store) FindBy(rawURL string, strategy spider.Strategy) (*spider.CrawlerRule, error) {
	host := spider.GetHost(rawURL)
	if host == "" {
		return nil, fmt.Errorf("%w: %s", spider.ErrRuleNotFound, rawURL)
	}
	ctx, cancel := s.opContext()
	defer cancel()
	table, err := s.getHostRule(ctx, host)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("%w: %s", spider.ErrRuleNotFound, rawURL)
	}
	return table.Route(rawURL, strategy)
}

func (s *Store) AddCrawlerRule(rule *spider.CrawlerRule, commit bool) error {
	host := spider.GetHost(rule.RequestArgs.URL)
	if host == "" {
		return fmt.Errorf("crawler rule %q has no routable url %q", rule.Name, rule.RequestArgs.URL)
	}
	ctx, cancel := s.opContext()
	defer cancel()
	table, err := s.getHostRule(ctx, host)
	if err != nil {
		return err
	}
	if table == nil {
		table = spider.NewHostRule(host)
	}
	if err := table.Add(rule); err != nil {
		return err
	}
	s.logger.Debug("storing crawler rule",
		zap.String("host", host), zap.String("rule", rule.Name))
	return s.putHostRule(ctx, table)
}

func (s *Store) PopCrawlerRule(host, name string, commit bool) (*spider.CrawlerRule, error) {
	if host == "" {
		return nil, fmt.Errorf("etcd store needs an explicit host to pop a rule")
	}
	ctx, cancel := s.opContext()
	defer cancel()
	table, err := s.getHostRule(ctx, host)
	if err != nil || table == nil {
		return nil, err
	}
	popped := table.Pop(name)
	if popped == nil {
		return nil, nil
	}
	return popped, s.putHostRule(ctx, table)
}

func (s *Store) AddHostRule(rule *spider.HostRule, commit bool) error {
	if rule.Host == "" {
		return fmt.Errorf("host rule needs a host")
	}
	ctx, cancel := s.opContext()
	defer cancel()
	return s.putHostRule(ctx, rule)
}

func (s *Store) PopHostRule(host string, commit bool) (*spider.HostRule, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	rule, err := s.getHostRule(ctx, host)
	if err != nil || rule == nil {
		return nil, err
	}
	if _, err := s.cli.Delete(ctx, s.hostKey(host)); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Store) Commit() error {
	return nil
}

var _ spider.RuleStore = (*Store)(nil)
