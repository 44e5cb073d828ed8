package aws_s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedKey(t *testing.T) {
	assert.Equal(t, "reddit-news-feed/feed.xml", feedKey("reddit-news-feed"))
	assert.Equal(t, "feed.xml", feedKey(""))
}
