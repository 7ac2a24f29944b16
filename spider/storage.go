package spider

// RuleStore persists and retrieves host routing tables. Implementations
// decide durability; commit=false writes may be buffered until Commit.
type RuleStore interface {
	// Find resolves rawURL to exactly one crawler rule using the search
	// strategy; FindBy selects the strategy explicitly. Both return
	// ErrRuleNotFound or ErrAmbiguousRule wrapped errors on failure.
	Find(rawURL string) (*CrawlerRule, error)
	FindBy(rawURL string, strategy Strategy) (*CrawlerRule, error)
	AddCrawlerRule(rule *CrawlerRule, commit bool) error
	PopCrawlerRule(host, name string, commit bool) (*CrawlerRule, error)
	AddHostRule(rule *HostRule, commit bool) error
	PopHostRule(host string, commit bool) (*HostRule, error)
	Commit() error
}
