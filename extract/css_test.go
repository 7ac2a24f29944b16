package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cssFixture = `
<html><body>
  <div id="list" class="items wide">
    <a class="item" href="/a">first</a>
    <a class="item" href="/b">second</a>
  </div>
  <div class="footer"><a href="/about">about</a></div>
</body></html>`

func TestCSSSelectsByTagAndAttr(t *testing.T) {
	got, err := CSS{}.Extract(cssFixture, "a", "@href")
	require.NoError(t, err)
	assert.Equal(t, []any{"/a", "/b", "/about"}, got)
}

func TestCSSDescendantAndClass(t *testing.T) {
	got, err := CSS{}.Extract(cssFixture, "#list a.item", "$text")
	require.NoError(t, err)
	assert.Equal(t, []any{"first", "second"}, got)
}

func TestCSSAttributeSelector(t *testing.T) {
	got, err := CSS{}.Extract(cssFixture, `a[href=/about]`, "$text")
	require.NoError(t, err)
	assert.Equal(t, []any{"about"}, got)
}

func TestCSSNoMatchYieldsEmptyList(t *testing.T) {
	got, err := CSS{}.Extract(cssFixture, "table", "$text")
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
}

func TestCSSRejectsBadOperation(t *testing.T) {
	_, err := CSS{}.Extract(cssFixture, "a", "%nope")
	require.Error(t, err)
}

func TestXMLSharesSelectorGrammar(t *testing.T) {
	input := `<feed><entry><title>one</title></entry><entry><title>two</title></entry></feed>`
	got, err := XML{}.Extract(input, "entry title", "$text")
	require.NoError(t, err)
	assert.Equal(t, []any{"one", "two"}, got)
}
