package page

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<html><body>
<form method="post" action="/my-account/">
  <input type="text" name="username">
  <input type="password" name="password">
  <input type="hidden" name="nonce" value="abc123">
  <input type="checkbox" name="rememberme" value="forever">
  <button type="submit" name="login" value="Log in">Log in</button>
</form>
<a class="next" href="/fabric/page/2/">Next</a>
<a class="anchor" href="#top">Top</a>
<span class="label">Not clickable</span>
</body></html>`

func newTestFetcher(t *testing.T) (*HTMLFetcher, *httpmock.MockTransport) {
	t.Helper()
	fetcher := NewHTMLFetcher(HTMLOptions{
		AllowedDomains: []string{"example.test"},
		UserAgent:      "test-agent",
		Timeout:        5 * time.Second,
	})
	transport := httpmock.NewMockTransport()
	fetcher.WithTransport(transport)
	return fetcher, transport
}

func TestHTMLPageNavigateAndQuery(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterResponder("GET", "http://example.test/fabric/",
		httpmock.NewStringResponder(http.StatusOK, `<ul><li class="product"><a href="/product/a/">A</a></li><li class="product"><a href="/product/b/">B</a></li></ul>`))

	h, err := fetcher.NewPage()
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Navigate(context.Background(), "http://example.test/fabric/"))
	assert.Equal(t, "http://example.test/fabric/", h.URL())

	links, err := h.FindAll("li.product a")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "/product/b/", ElementAttr(links[1], "href"))
	assert.Equal(t, "A", ElementText(links[0]))
}

func TestHTMLPageNavigateStatusError(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterResponder("GET", "http://example.test/missing/",
		httpmock.NewStringResponder(http.StatusNotFound, "gone"))

	h, err := fetcher.NewPage()
	require.NoError(t, err)

	err = h.Navigate(context.Background(), "http://example.test/missing/")
	require.Error(t, err)

	var navErr *NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, http.StatusNotFound, navErr.StatusCode)
	assert.Equal(t, "http://example.test/missing/", navErr.URL)
}

func TestHTMLPageNavigateCancelled(t *testing.T) {
	fetcher, _ := newTestFetcher(t)
	h, err := fetcher.NewPage()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = h.Navigate(ctx, "http://example.test/fabric/")
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTMLPageQueryBeforeNavigate(t *testing.T) {
	fetcher, _ := newTestFetcher(t)
	h, err := fetcher.NewPage()
	require.NoError(t, err)

	_, err = h.FindAll("h1")
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestHTMLPageInvalidSelector(t *testing.T) {
	h, err := FromHTML("http://example.test/", "<h1>x</h1>")
	require.NoError(t, err)

	_, err = h.FindAll("a[href")
	assert.Error(t, err)
}

func TestHTMLPageFormSubmit(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterResponder("GET", "http://example.test/my-account/",
		httpmock.NewStringResponder(http.StatusOK, loginPage))

	var posted url.Values
	transport.RegisterResponder("POST", "http://example.test/my-account/",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			posted, err = url.ParseQuery(string(body))
			if err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `<div class="user-menu">Hello</div>`), nil
		})

	h, err := fetcher.NewPage()
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, h.Navigate(ctx, "http://example.test/my-account/"))

	user, _ := First(h, []string{`input[name="username"]`})
	require.NotNil(t, user)
	require.NoError(t, user.Fill("buyer@example.test"))
	pass, _ := First(h, []string{`input[type="password"]`})
	require.NoError(t, pass.Fill("secret"))

	submit, _ := First(h, []string{`button[type="submit"]`})
	require.NoError(t, submit.Click(ctx))

	assert.Equal(t, "buyer@example.test", posted.Get("username"))
	assert.Equal(t, "secret", posted.Get("password"))
	assert.Equal(t, "abc123", posted.Get("nonce"))
	assert.Equal(t, "Log in", posted.Get("login"))
	assert.False(t, posted.Has("rememberme"))

	require.NoError(t, h.WaitFor(ctx, ".user-menu", time.Second))
}

func TestHTMLPageClickLink(t *testing.T) {
	fetcher, transport := newTestFetcher(t)
	transport.RegisterResponder("GET", "http://example.test/fabric/",
		httpmock.NewStringResponder(http.StatusOK, loginPage))
	transport.RegisterResponder("GET", "http://example.test/fabric/page/2/",
		httpmock.NewStringResponder(http.StatusOK, `<h1>Page two</h1>`))

	h, err := fetcher.NewPage()
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, h.Navigate(ctx, "http://example.test/fabric/"))

	next, _ := First(h, []string{"a.next"})
	require.NoError(t, next.Click(ctx))
	assert.Equal(t, "http://example.test/fabric/page/2/", h.URL())
	assert.Equal(t, "Page two", Text(h, []string{"h1"}))
}

func TestHTMLPageClickNotInteractive(t *testing.T) {
	h, err := FromHTML("http://example.test/", loginPage)
	require.NoError(t, err)

	for _, selector := range []string{"span.label", "a.anchor"} {
		el, _ := First(h, []string{selector})
		require.NotNil(t, el, selector)
		assert.ErrorIs(t, el.Click(context.Background()), ErrNotInteractive, selector)
	}
}

func TestHTMLPageWaitForMissing(t *testing.T) {
	h, err := FromHTML("http://example.test/", "<p>nothing</p>")
	require.NoError(t, err)

	err = h.WaitFor(context.Background(), ".account-header", time.Second)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestFromHTMLCannotNavigate(t *testing.T) {
	h, err := FromHTML("http://example.test/", "<p>static</p>")
	require.NoError(t, err)

	var navErr *NavigationError
	assert.ErrorAs(t, h.Navigate(context.Background(), "http://example.test/other"), &navErr)
}
