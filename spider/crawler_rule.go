package spider

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/wenzapen/unicrawler/extract"
)

// CrawlerRule binds a request description to a list of parse rules and an
// optional routing pattern. An empty Regex matches only when the rule is
// addressed directly by name; a non-empty one must match the destination
// before the rule is selected automatically. The pattern is compiled once on
// construction and cached off the wire format.
type CrawlerRule struct {
	Name        string       `json:"name"`
	RequestArgs RequestArgs  `json:"request_args"`
	Rules       []*ParseRule `json:"parse_rules"`
	Regex       string       `json:"regex"`

	pattern *regexp.Regexp
	ctx     *extract.Context
}

func NewCrawlerRule(name string, args RequestArgs, rules []*ParseRule, regex string) (*CrawlerRule, error) {
	c := &CrawlerRule{
		Name:        name,
		RequestArgs: args,
		Rules:       rules,
		Regex:       regex,
		ctx:         extract.NewContext(nil),
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CrawlerRule) compile() error {
	if c.Name == "" {
		return fmt.Errorf("crawler rule needs a non-empty name")
	}
	if c.Regex == "" {
		c.pattern = nil
		return nil
	}
	pattern, err := regexp.Compile(c.Regex)
	if err != nil {
		return fmt.Errorf("crawler rule %q regex: %w", c.Name, err)
	}
	c.pattern = pattern
	return nil
}

// Context returns the rule's shared context, creating it on first use.
func (c *CrawlerRule) Context() *extract.Context {
	if c.ctx == nil {
		c.ctx = extract.NewContext(nil)
	}
	return c.ctx
}

// Match reports whether the compiled pattern matches url anchored at the
// start. Empty patterns never match automatically.
func (c *CrawlerRule) Match(rawURL string) bool {
	if c.pattern == nil {
		return false
	}
	loc := c.pattern.FindStringIndex(rawURL)
	return loc != nil && loc[0] == 0
}

// Search reports whether the compiled pattern matches anywhere in url.
func (c *CrawlerRule) Search(rawURL string) bool {
	if c.pattern == nil {
		return false
	}
	return c.pattern.MatchString(rawURL)
}

func (c *CrawlerRule) UnmarshalJSON(data []byte) error {
	type plain CrawlerRule
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = CrawlerRule(raw)
	if err := c.compile(); err != nil {
		return err
	}
	c.ctx = extract.NewContext(nil)
	return nil
}

// Evaluate runs every top-level parse rule against input in order and
// collects the merged results under the crawler rule's name.
func (c *CrawlerRule) Evaluate(reg *extract.Registry, input any, ctx *extract.Context) (map[string]any, error) {
	if ctx == nil {
		ctx = c.Context()
	}
	merged := make(map[string]any, len(c.Rules))
	for _, rule := range c.Rules {
		result, err := rule.Evaluate(reg, input, ctx)
		if err != nil {
			return nil, err
		}
		merged[rule.Name] = result[rule.Name]
	}
	return map[string]any{c.Name: merged}, nil
}
