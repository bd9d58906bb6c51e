package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailHTML = `<html><body>
<h1 class="product_title">  Alpine   Velvet </h1>
<span class="sku">SKU: AV-100</span>
<div class="color" data-color=" Navy "></div>
<div class="woocommerce-product-details__short-description"><p>Soft <b>velvet</b></p></div>
<table class="woocommerce-product-attributes">
  <tr><th>Content:</th><td>100% Polyester</td></tr>
  <tr><th>Width</th><td>54"</td></tr>
</table>
</body></html>`

func TestSelectFirstFallback(t *testing.T) {
	h, err := FromHTML("http://example.test/product/alpine/", detailHTML)
	require.NoError(t, err)

	tests := []struct {
		name      string
		selectors []string
		want      string
	}{
		{name: "first wins", selectors: []string{"h1.product_title", "h1"}, want: "h1.product_title"},
		{name: "fallback", selectors: []string{"a.missing", "b.missing", "h1"}, want: "h1"},
		{name: "none match", selectors: []string{"a.missing", "b.missing"}, want: ""},
		{name: "invalid skipped", selectors: []string{"a[href", "span.sku"}, want: "span.sku"},
		{name: "empty list", selectors: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectFirst(h, tt.selectors))
		})
	}
}

func TestResolverReaders(t *testing.T) {
	h, err := FromHTML("http://example.test/product/alpine/", detailHTML)
	require.NoError(t, err)

	assert.Equal(t, "Alpine Velvet", Text(h, []string{".missing", "h1"}))
	assert.Equal(t, "Navy", Attr(h, []string{".color"}, "data-color"))
	assert.Equal(t, "", Attr(h, []string{".missing"}, "data-color"))
	assert.Equal(t, "<p>Soft <b>velvet</b></p>", HTML(h, []string{".woocommerce-product-details__short-description"}))
	assert.Equal(t, "", HTML(h, []string{".missing"}))
}

func TestAllWithin(t *testing.T) {
	h, err := FromHTML("http://example.test/product/alpine/", detailHTML)
	require.NoError(t, err)

	table, selector := First(h, []string{".product-specs", ".woocommerce-product-attributes"})
	require.NotNil(t, table)
	assert.Equal(t, ".woocommerce-product-attributes", selector)

	rows, rowSelector := AllWithin(table, []string{".spec-row", "tr"})
	assert.Equal(t, "tr", rowSelector)
	require.Len(t, rows, 2)

	cells, _ := AllWithin(rows[1], []string{"td, th"})
	require.Len(t, cells, 2)
	assert.Equal(t, "Width", ElementText(cells[0]))
	assert.Equal(t, `54"`, ElementText(cells[1]))

	none, _ := AllWithin(nil, []string{"tr"})
	assert.Empty(t, none)
}

func TestResolverNilHandle(t *testing.T) {
	assert.Equal(t, "", SelectFirst(nil, []string{"h1"}))
	assert.Equal(t, "", Text(nil, []string{"h1"}))
}
