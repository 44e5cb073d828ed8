package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IliaW/reddit-news-feed/internal/model"
	"github.com/antchfx/xmlquery"
)

const (
	atomEntriesExpr = "//*[local-name()='feed']/*[local-name()='entry']"
	rssItemsExpr    = "//channel/item"
)

// Filter rewrites the feed so that every entry links to its article. Entries missing from
// mapping are removed. Both Atom (link/@href) and RSS (link text) feeds are handled.
func Filter(body []byte, mapping model.UrlMapping, log *slog.Logger) ([]byte, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed xml: %w", err)
	}

	kept, removed := 0, 0
	for _, entry := range xmlquery.Find(doc, atomEntriesExpr) {
		link := firstChild(entry, "link")
		href := ""
		if link != nil {
			href = link.SelectAttr("href")
		}
		articleURL, ok := mapping[href]
		if !ok || link == nil {
			log.Info("removing.", slog.String("url", href))
			xmlquery.RemoveFromTree(entry)
			removed++
			continue
		}
		link.SetAttr("href", articleURL)
		log.Info("keeping.", slog.String("url", articleURL))
		kept++
	}
	for _, item := range xmlquery.Find(doc, rssItemsExpr) {
		link := firstChild(item, "link")
		href := ""
		if link != nil {
			href = strings.TrimSpace(link.InnerText())
		}
		articleURL, ok := mapping[href]
		if !ok || link == nil {
			log.Info("removing.", slog.String("url", href))
			xmlquery.RemoveFromTree(item)
			removed++
			continue
		}
		setText(link, articleURL)
		log.Info("keeping.", slog.String("url", articleURL))
		kept++
	}
	log.Info("feed filtered.", slog.Int("kept", kept), slog.Int("removed", removed))

	return render(doc), nil
}

// firstChild ignores children from other namespaces, such as atom:link inside an RSS item.
func firstChild(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name && c.Prefix == n.Prefix {
			return c
		}
	}
	return nil
}

func setText(n *xmlquery.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		xmlquery.RemoveFromTree(c)
		c = next
	}
	xmlquery.AddChild(n, &xmlquery.Node{Type: xmlquery.TextNode, Data: text})
}
