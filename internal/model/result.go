package model

type ExtractionStatus int

const (
	NotNews ExtractionStatus = iota
	Accepted
	MalformedPage
)

func (es ExtractionStatus) String() string {
	return [...]string{"not news", "accepted", "malformed page"}[es]
}

type ExtractionResult struct {
	Status ExtractionStatus
	Record *ResultRecord // set only when Status is Accepted
	Reason string
}

type ResultRecord struct {
	RedditURL  string `json:"reddit_url"`
	ArticleURL string `json:"article_url"`
}

// UrlMapping maps a submission URL, as it appears in the feed, to its article URL.
type UrlMapping map[string]string
