package feed

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/IliaW/reddit-news-feed/internal/model"
	"github.com/antchfx/xmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFetch(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.Client(), srv.URL, "feed-test")

	require.NoError(t, err)
	assert.Equal(t, atomFeed, string(body))
	assert.Equal(t, "feed-test", userAgent)
}

func TestFetchFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL, "feed-test")

	assert.ErrorContains(t, err, "429")
}

func TestFetchFailsOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := Fetch(context.Background(), http.DefaultClient, url, "feed-test")

	assert.Error(t, err)
}

func TestSubmissionLinks(t *testing.T) {
	links, err := SubmissionLinks([]byte(atomFeed))
	require.NoError(t, err)
	assert.Equal(t, []string{linkA, linkB, linkC}, links)

	links, err = SubmissionLinks([]byte(rssFeed))
	require.NoError(t, err)
	assert.Equal(t, []string{linkA, linkB}, links)
}

func TestSubmissionLinksInvalidFeed(t *testing.T) {
	_, err := SubmissionLinks([]byte("this is not a feed"))
	assert.Error(t, err)
}

func entryLinks(t *testing.T, out []byte) []string {
	t.Helper()
	doc, err := xmlquery.Parse(bytes.NewReader(out))
	require.NoError(t, err)
	var hrefs []string
	for _, entry := range xmlquery.Find(doc, atomEntriesExpr) {
		hrefs = append(hrefs, firstChild(entry, "link").SelectAttr("href"))
	}
	return hrefs
}

func TestFilterAtom(t *testing.T) {
	out, err := Filter([]byte(atomFeed), model.UrlMapping{linkA: "https://www.autosport.com/f1/news/x?a=1&b=2"}, discard)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(out), "<?xml"))
	assert.Equal(t, []string{"https://www.autosport.com/f1/news/x?a=1&b=2"}, entryLinks(t, out))
	assert.NotContains(t, string(out), "Discussion post")
	assert.NotContains(t, string(out), "Deleted post")
	// feed level elements survive
	assert.Contains(t, string(out), "https://www.reddit.com/r/formula1.rss")
	assert.Contains(t, string(out), "media:thumbnail")
}

func TestFilterKeepsFeedOrder(t *testing.T) {
	out, err := Filter([]byte(atomFeed), model.UrlMapping{
		linkC: "https://example.com/c",
		linkA: "https://example.com/a",
	}, discard)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/c"}, entryLinks(t, out))
}

func TestFilterEmptyMappingRemovesEverything(t *testing.T) {
	out, err := Filter([]byte(atomFeed), model.UrlMapping{}, discard)
	require.NoError(t, err)

	assert.Empty(t, entryLinks(t, out))
	assert.Contains(t, string(out), "<title>Formula 1</title>")
}

func TestFilterRSS(t *testing.T) {
	out, err := Filter([]byte(rssFeed), model.UrlMapping{linkA: "https://example.com/a"}, discard)
	require.NoError(t, err)

	links, err := SubmissionLinks(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a"}, links)
	assert.NotContains(t, string(out), "Discussion post")
}

func TestFilterInvalidXML(t *testing.T) {
	_, err := Filter([]byte("<feed><entry></feed>"), model.UrlMapping{}, discard)
	assert.Error(t, err)
}

func TestDuplicateEntries(t *testing.T) {
	links, err := SubmissionLinks([]byte(duplicateFeed))
	require.NoError(t, err)
	assert.Equal(t, []string{linkA, linkB, linkA}, links)

	out, err := Filter([]byte(duplicateFeed), model.UrlMapping{linkA: "https://example.com/a"}, discard)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/a"}, entryLinks(t, out))
	assert.Contains(t, string(out), "News post again")
	assert.NotContains(t, string(out), "Discussion post")
}

func TestFilterIndentsOutput(t *testing.T) {
	out, err := Filter([]byte(atomFeed), model.UrlMapping{linkA: "https://example.com/a?x=1&y=2"}, discard)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Greater(t, len(lines), 5)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`, lines[0])
	assert.Contains(t, lines, "  <entry>")
	assert.Contains(t, lines, "    <author>")
	assert.Contains(t, lines, "      <name>/u/alpha</name>")
	assert.Contains(t, lines, `    <link href="https://example.com/a?x=1&amp;y=2"/>`)
	assert.Contains(t, lines, "    <title>News post</title>")
	assert.Equal(t, "</feed>", lines[len(lines)-1])
}

func TestFilterKeepsTextContent(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xml:lang="en">
  <entry>
    <link href="` + linkA + `"/>
    <content type="html">&lt;p&gt;  spaced  &lt;/p&gt;</content>
  </entry>
</feed>`

	out, err := Filter([]byte(feed), model.UrlMapping{linkA: "https://example.com/a"}, discard)
	require.NoError(t, err)

	assert.Contains(t, string(out), `<feed xmlns="http://www.w3.org/2005/Atom" xml:lang="en">`)
	assert.Contains(t, string(out), `<content type="html">&lt;p&gt;  spaced  &lt;/p&gt;</content>`)
}
