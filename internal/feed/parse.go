package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// SubmissionLinks returns the link of every entry in feed order. Duplicates are kept and
// entries without a link are skipped.
func SubmissionLinks(body []byte) ([]string, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	links := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		links = append(links, item.Link)
	}
	return links, nil
}
