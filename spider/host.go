package spider

import (
	"fmt"
	"sort"
)

// Strategy selects how a host table tests rule patterns against an
// identifier.
type Strategy string

const (
	// StrategyMatch requires the pattern to match anchored at the start.
	StrategyMatch Strategy = "match"
	// StrategySearch accepts a pattern match anywhere in the identifier.
	StrategySearch Strategy = "search"
	// StrategyFindAll collects every matching rule; more than one is
	// reported as ambiguous rather than silently resolved.
	StrategyFindAll Strategy = "findall"
)

// HostRule is the routing table for one host: at most one crawler rule per
// name.
type HostRule struct {
	Host  string                  `json:"host"`
	Rules map[string]*CrawlerRule `json:"crawler_rules"`
}

func NewHostRule(host string) *HostRule {
	return &HostRule{
		Host:  host,
		Rules: make(map[string]*CrawlerRule),
	}
}

// Add validates rule before inserting it: its destination host must equal
// the table's host and a non-empty pattern must match the rule's own
// destination. Failing rules are rejected, not inserted.
func (h *HostRule) Add(rule *CrawlerRule) error {
	host := GetHost(rule.RequestArgs.URL)
	if host == "" {
		return fmt.Errorf("crawler rule %q has no routable url %q", rule.Name, rule.RequestArgs.URL)
	}
	if host != h.Host {
		return fmt.Errorf("crawler rule %q targets host %q, table is for %q", rule.Name, host, h.Host)
	}
	if rule.Regex != "" && !rule.Search(rule.RequestArgs.URL) {
		return fmt.Errorf("crawler rule %q pattern %q does not match its own url %q",
			rule.Name, rule.Regex, rule.RequestArgs.URL)
	}
	if h.Rules == nil {
		h.Rules = make(map[string]*CrawlerRule)
	}
	h.Rules[rule.Name] = rule
	return nil
}

// Pop removes and returns the named rule, or nil when absent.
func (h *HostRule) Pop(name string) *CrawlerRule {
	rule, ok := h.Rules[name]
	if !ok {
		return nil
	}
	delete(h.Rules, name)
	return rule
}

// Get returns the named rule directly, bypassing pattern matching. This is
// the only path that can select an empty-pattern rule.
func (h *HostRule) Get(name string) (*CrawlerRule, bool) {
	rule, ok := h.Rules[name]
	return rule, ok
}

// Route resolves rawURL to exactly one rule under the given strategy.
// Match and search take the first hit in name order, which keeps selection
// deterministic; findall surfaces multiple hits as ErrAmbiguousRule.
func (h *HostRule) Route(rawURL string, strategy Strategy) (*CrawlerRule, error) {
	names := make([]string, 0, len(h.Rules))
	for name := range h.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	var hits []*CrawlerRule
	for _, name := range names {
		rule := h.Rules[name]
		var ok bool
		switch strategy {
		case StrategyMatch:
			ok = rule.Match(rawURL)
		case StrategySearch, "":
			ok = rule.Search(rawURL)
		case StrategyFindAll:
			ok = rule.Search(rawURL)
		default:
			return nil, fmt.Errorf("unknown routing strategy %q", strategy)
		}
		if !ok {
			continue
		}
		if strategy != StrategyFindAll {
			return rule, nil
		}
		hits = append(hits, rule)
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, rawURL)
	case 1:
		return hits[0], nil
	default:
		names := make([]string, 0, len(hits))
		for _, r := range hits {
			names = append(names, r.Name)
		}
		return nil, fmt.Errorf("%w: %s matched %v", ErrAmbiguousRule, rawURL, names)
	}
}
