// Package jsonstore persists host routing tables as one JSON document on
// disk.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wenzapen/unicrawler/spider"
)

type Store struct {
	mu    sync.Mutex
	hosts map[string]*spider.HostRule
	options
}

func New(opts ...Option) (*Store, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	s := &Store{
		hosts:   make(map[string]*spider.HostRule),
		options: options,
	}
	if s.path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("rule store file missing, will be created on commit",
			zap.String("path", s.path))
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.hosts); err != nil {
			return nil, fmt.Errorf("rule store %s: %w", s.path, err)
		}
	}
	return s, nil
}

func (s *Store) Find(rawURL string) (*spider.CrawlerRule, error) {
	return s.FindBy(rawURL, spider.StrategySearch)
}

func (s *Store) FindBy(rawURL string, strategy spider.Strategy) (*spider.CrawlerRule, error) {
	host := spider.GetHost(rawURL)
	s.mu.Lock()
	table := s.hosts[host]
	s.mu.Unlock()
	if host == "" || table == nil {
		return nil, fmt.Errorf("%w: %s", spider.ErrRuleNotFound, rawURL)
	}
	return table.Route(rawURL, strategy)
}

func (s *Store) AddCrawlerRule(rule *spider.CrawlerRule, commit bool) error {
	host := spider.GetHost(rule.RequestArgs.URL)
	if host == "" {
		return fmt.Errorf("crawler rule %q has no routable url %q", rule.Name, rule.RequestArgs.URL)
	}
	s.mu.Lock()
	table, ok := s.hosts[host]
	if !ok {
		table = spider.NewHostRule(host)
		s.hosts[host] = table
	}
	err := table.Add(rule)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if commit {
		return s.Commit()
	}
	return nil
}

func (s *Store) PopCrawlerRule(host, name string, commit bool) (*spider.CrawlerRule, error) {
	s.mu.Lock()
	var popped *spider.CrawlerRule
	if host != "" {
		if table := s.hosts[host]; table != nil {
			popped = table.Pop(name)
		}
	} else {
		for _, table := range s.hosts {
			if popped = table.Pop(name); popped != nil {
				break
			}
		}
	}
	s.mu.Unlock()
	if popped != nil && commit {
		return popped, s.Commit()
	}
	return popped, nil
}

func (s *Store) AddHostRule(rule *spider.HostRule, commit bool) error {
	if rule.Host == "" {
		return fmt.Errorf("host rule needs a host")
	}
	s.mu.Lock()
	s.hosts[rule.Host] = rule
	s.mu.Unlock()
	if commit {
		return s.Commit()
	}
	return nil
}

func (s *Store) PopHostRule(host string, commit bool) (*spider.HostRule, error) {
	s.mu.Lock()
	rule := s.hosts[host]
	delete(s.hosts, host)
	s.mu.Unlock()
	if rule != nil && commit {
		return rule, s.Commit()
	}
	return rule, nil
}

// Commit flushes the whole table set to disk. A store without a path keeps
// everything in memory and commits are no-ops.
func (s *Store) Commit() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	raw, err := json.MarshalIndent(s.hosts, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

var _ spider.RuleStore = (*Store)(nil)
