package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html><head>
<title>Kitchen Set | Shop</title>
<meta property="og:title" content="Kitchen Set">
<meta name="Author" content="Jane Doe">
<meta property="og:title" content="Ignored Second">
<style>.price { color: red; }</style>
<script type="application/ld+json">{"@type":"Product","name":"Kitchen Set"}</script>
<script>var price = "$1.00";</script>
</head>
<body>
<h1>Kitchen <em>Set</em></h1>
<h1>Second heading</h1>
<div class="product-price"><span>$49.99</span></div>
<noscript>enable javascript $2.00</noscript>
<p>was   $99.99</p>
</body></html>`

func TestStringAccessor(t *testing.T) {
	a := NewStringAccessor("https://shop.example.com/p/1", samplePage)

	assert.Equal(t, "https://shop.example.com/p/1", a.URL())
	assert.Equal(t, "Kitchen Set | Shop", a.TitleTag())
	assert.Equal(t, "Kitchen Set", a.FirstHeading())
	assert.Equal(t, "Kitchen Set", a.Meta("og:title"))
	assert.Equal(t, "Jane Doe", a.Meta("author"))
	assert.Equal(t, "", a.Meta("twitter:title"))
	assert.Equal(t, []string{`{"@type":"Product","name":"Kitchen Set"}`}, a.JSONLD())

	text := a.Text()
	assert.Contains(t, text, "$49.99")
	assert.Contains(t, text, "was $99.99")
	assert.NotContains(t, text, "$1.00")
	assert.NotContains(t, text, "$2.00")
	assert.NotContains(t, text, "color")

	assert.False(t, a.DOM())
	assert.Nil(t, a.Query("span"))
}

func TestDocumentAccessor(t *testing.T) {
	a, err := ParseDocument("https://shop.example.com/p/1", samplePage)
	require.NoError(t, err)

	assert.True(t, a.DOM())
	assert.Equal(t, "Kitchen Set", a.Meta("og:title"))
	assert.Contains(t, a.Text(), "$49.99")

	spans := a.Query("span")
	require.Len(t, spans, 1)
	assert.Equal(t, "span", spans[0].Tag)
	assert.Equal(t, "$49.99", spans[0].Text)
	assert.Equal(t, "product-price", spans[0].ParentClass)
	assert.True(t, spans[0].ClassContains("price"))

	assert.Empty(t, a.Query("[[invalid"))
}

func TestElementAttr(t *testing.T) {
	el := Element{Attrs: map[string]string{"data-price": "12.50"}}
	assert.Equal(t, "12.50", el.Attr("DATA-PRICE"))
	assert.Equal(t, "", el.Attr("href"))
}
