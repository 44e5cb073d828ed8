// Package extractor reads the flair and the outbound article link from a rendered
// reddit submission page.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/IliaW/reddit-news-feed/internal/model"
	"github.com/PuerkitoBio/goquery"
)

// outboundLinkSelector matches the anchor of a link post that points at the external
// article. No other anchor on the page carries this attribute combination.
const outboundLinkSelector = `a[aria-label][target="_blank"][rel~="nofollow"][rel~="noopener"]`

const flairParam = "f"

type Extractor struct {
	flairSelector string
	newsFlair     string
}

// New builds an extractor for the given subreddit. newsFlair is compared verbatim with
// the "f" query parameter of the post's flair filter link.
func New(subreddit, newsFlair string) *Extractor {
	return &Extractor{
		flairSelector: fmt.Sprintf(`a[href*="/r/%s/?f=flair_name"]`, subreddit),
		newsFlair:     newsFlair,
	}
}

// Extract is a pure function of html: the same page always yields the same result.
func (e *Extractor) Extract(html []byte, sourceURL string) model.ExtractionResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return malformed("parse html: " + err.Error())
	}

	flairHref, ok := doc.Find(e.flairSelector).First().Attr("href")
	if !ok {
		return malformed("flair link not found")
	}
	flair, err := flairValue(flairHref)
	if err != nil {
		return malformed(err.Error())
	}
	if flair != e.newsFlair {
		return model.ExtractionResult{Status: model.NotNews, Reason: flair}
	}

	articleURL := outboundLink(doc)
	if articleURL == "" {
		return malformed("outbound link not found")
	}

	return model.ExtractionResult{
		Status: model.Accepted,
		Record: &model.ResultRecord{RedditURL: sourceURL, ArticleURL: articleURL},
	}
}

func flairValue(href string) (string, error) {
	_, query, found := strings.Cut(href, "?")
	if !found {
		return "", fmt.Errorf("flair link has no query: %s", href)
	}
	// Only '&' separates pairs. ParseQuery keeps every well formed pair even when it
	// reports an error for another one.
	values, err := url.ParseQuery(strings.ReplaceAll(query, ";", "%3B"))
	f, ok := values[flairParam]
	if !ok || len(f) == 0 {
		if err != nil {
			return "", fmt.Errorf("parse flair query: %w", err)
		}
		return "", fmt.Errorf("flair link has no %q parameter: %s", flairParam, href)
	}
	return f[0], nil
}

func outboundLink(doc *goquery.Document) string {
	var href string
	doc.Find(outboundLinkSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.AttrOr("aria-label", "")) == "" {
			return true
		}
		href = strings.TrimSpace(s.AttrOr("href", ""))
		return href == ""
	})
	return href
}

func malformed(reason string) model.ExtractionResult {
	return model.ExtractionResult{Status: model.MalformedPage, Reason: reason}
}
