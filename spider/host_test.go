package spider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRule(t *testing.T, name, rawURL, regex string) *CrawlerRule {
	t.Helper()
	rule, err := NewCrawlerRule(name, RequestArgs{Method: "GET", URL: rawURL}, nil, regex)
	require.NoError(t, err)
	return rule
}

func TestHostRuleAddValidation(t *testing.T) {
	table := NewHostRule("example.com")

	// Host mismatch is rejected.
	err := table.Add(mustRule(t, "other", "https://other.org/list", `other\.org`))
	require.Error(t, err)

	// Pattern that cannot match the rule's own destination is rejected.
	err = table.Add(mustRule(t, "broken", "https://example.com/list", `nowhere\.invalid`))
	require.Error(t, err)

	// Non-routable destination is rejected.
	err = table.Add(mustRule(t, "local", "file:///etc/passwd", ""))
	require.Error(t, err)

	require.NoError(t, table.Add(mustRule(t, "list", "https://example.com/list", `example\.com/list`)))
	assert.Len(t, table.Rules, 1)
}

func TestHostRuleMatchVersusSearch(t *testing.T) {
	table := NewHostRule("example.com")
	require.NoError(t, table.Add(mustRule(t, "detail", "https://example.com/d/1", `example\.com/d/\d+`)))

	// The pattern starts mid-url, so anchored matching never selects it.
	_, err := table.Route("https://example.com/d/42", StrategyMatch)
	require.ErrorIs(t, err, ErrRuleNotFound)

	rule, err := table.Route("https://example.com/d/42", StrategySearch)
	require.NoError(t, err)
	assert.Equal(t, "detail", rule.Name)

	anchored := NewHostRule("example.com")
	require.NoError(t, anchored.Add(mustRule(t, "detail", "https://example.com/d/1", `https://example\.com/d/\d+`)))
	rule, err = anchored.Route("https://example.com/d/42", StrategyMatch)
	require.NoError(t, err)
	assert.Equal(t, "detail", rule.Name)
}

func TestHostRuleFindAllAmbiguity(t *testing.T) {
	table := NewHostRule("example.com")
	require.NoError(t, table.Add(mustRule(t, "a", "https://example.com/d/1", `example\.com/d`)))
	require.NoError(t, table.Add(mustRule(t, "b", "https://example.com/d/2", `example\.com/d/\d+`)))

	_, err := table.Route("https://example.com/d/42", StrategyFindAll)
	require.ErrorIs(t, err, ErrAmbiguousRule)

	// Exactly one hit resolves fine.
	rule, err := table.Route("https://example.com/d/x", StrategyFindAll)
	require.NoError(t, err)
	assert.Equal(t, "a", rule.Name)
}

func TestEmptyPatternIsDirectOnly(t *testing.T) {
	table := NewHostRule("example.com")
	require.NoError(t, table.Add(mustRule(t, "manual", "https://example.com/anything", "")))

	_, err := table.Route("https://example.com/anything", StrategySearch)
	require.ErrorIs(t, err, ErrRuleNotFound)

	rule, ok := table.Get("manual")
	require.True(t, ok)
	assert.Equal(t, "manual", rule.Name)
}

func TestHostRulePop(t *testing.T) {
	table := NewHostRule("example.com")
	require.NoError(t, table.Add(mustRule(t, "list", "https://example.com/list", `example\.com`)))

	assert.NotNil(t, table.Pop("list"))
	assert.Nil(t, table.Pop("list"))
	assert.Empty(t, table.Rules)
}

func TestHostRuleRoundTrip(t *testing.T) {
	table := NewHostRule("example.com")
	require.NoError(t, table.Add(mustRule(t, "list", "https://example.com/list", `example\.com/list`)))

	raw, err := json.Marshal(table)
	require.NoError(t, err)

	var parsed HostRule
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, table.Host, parsed.Host)
	require.Contains(t, parsed.Rules, "list")
	assert.True(t, parsed.Rules["list"].Search("https://example.com/list"))

	again, err := json.Marshal(&parsed)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}

func TestGetHost(t *testing.T) {
	assert.Equal(t, "example.com", GetHost("https://example.com/list"))
	assert.Equal(t, "example.com:8080", GetHost("http://example.com:8080/"))
	assert.Equal(t, "", GetHost("ftp://example.com/"))
	assert.Equal(t, "", GetHost("not a url"))
}

func TestEnsureRequest(t *testing.T) {
	args, err := EnsureRequest("https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, RequestArgs{Method: "GET", URL: "https://example.com/a"}, args)

	args, err = EnsureRequest(`{"method": "post", "url": "https://example.com/b", "body": "x=1"}`)
	require.NoError(t, err)
	assert.Equal(t, "POST", args.Method)
	assert.Equal(t, "x=1", args.Body)

	args, err = EnsureRequest(map[string]any{"url": "https://example.com/c", "retry": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, args.Retry)

	_, err = EnsureRequest(42)
	require.Error(t, err)

	_, err = EnsureRequest(`{"method": "GET"}`)
	require.Error(t, err)
}

func TestRequestArgsMergeAndUnique(t *testing.T) {
	base := RequestArgs{Method: "GET", URL: "https://example.com/list", Retry: 3}
	merged := base.Merge(RequestArgs{URL: "https://example.com/d/1", Timeout: 7})
	assert.Equal(t, "GET", merged.Method)
	assert.Equal(t, "https://example.com/d/1", merged.URL)
	assert.Equal(t, 3, merged.Retry)
	assert.Equal(t, 7, merged.Timeout)

	a := RequestArgs{Method: "GET", URL: "https://example.com/x"}
	b := RequestArgs{Method: "POST", URL: "https://example.com/x"}
	assert.NotEqual(t, a.Unique(), b.Unique())
	assert.Equal(t, a.Unique(), RequestArgs{Method: "GET", URL: "https://example.com/x"}.Unique())
}
