package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/IliaW/reddit-news-feed/config"
	"github.com/IliaW/reddit-news-feed/internal/model"
	"github.com/gocolly/colly"
)

// PageFetcher issues one GET per call and classifies the result. It neither parses
// nor retries.
type PageFetcher struct {
	cfg       *config.CrawlerConfig
	log       *slog.Logger
	retryable map[int]struct{}

	mu         sync.Mutex
	transports map[string]*http.Transport
}

func NewPageFetcher(cfg *config.CrawlerConfig, log *slog.Logger) *PageFetcher {
	retryable := make(map[int]struct{}, len(cfg.RetryableStatusCodes))
	for _, code := range cfg.RetryableStatusCodes {
		retryable[code] = struct{}{}
	}
	return &PageFetcher{
		cfg:       cfg,
		log:       log,
		retryable:  retryable,
		transports: make(map[string]*http.Transport),
	}
}

// Fetch gets url, through proxyURL when it is not empty. A fresh collector is used per
// call so that every attempt can go through a different proxy. Connections are pooled per
// proxy and outlive the collector.
func (f *PageFetcher) Fetch(ctx context.Context, url string, proxyURL string) *model.FetchOutcome {
	if err := ctx.Err(); err != nil {
		return &model.FetchOutcome{Status: model.FetchRetryable, Err: err}
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	c.UserAgent = f.cfg.UserAgent
	if f.cfg.RequestTimeout > 0 {
		c.SetRequestTimeout(f.cfg.RequestTimeout)
	}
	if proxyURL != "" {
		t, err := f.proxyTransport(proxyURL)
		if err != nil {
			return &model.FetchOutcome{Status: model.FetchRetryable, Err: fmt.Errorf("set proxy: %w", err)}
		}
		c.WithTransport(t)
	}

	outcome := &model.FetchOutcome{}
	sent := false
	c.OnResponse(func(resp *colly.Response) {
		sent = true
		outcome.StatusCode = resp.StatusCode
		outcome.Body = resp.Body
	})
	// colly reports statuses >= 203 and transport errors here.
	c.OnError(func(resp *colly.Response, err error) {
		sent = true
		outcome.StatusCode = resp.StatusCode
		outcome.Body = resp.Body
		outcome.Err = err
	})

	t := time.Now()
	err := c.Visit(url)
	switch {
	case !sent:
		// Visit rejected the url before sending anything, another attempt would fail the same way.
		outcome.Status = model.FetchFatal
		outcome.Err = err
	default:
		outcome.Status = f.classify(outcome.StatusCode)
		if outcome.Status == model.FetchSucceeded {
			outcome.Err = nil
		}
	}
	f.log.Debug("page fetched.", slog.String("url", url), slog.String("proxy", proxyURL),
		slog.Int("status code", outcome.StatusCode), slog.String("outcome", outcome.Status.String()),
		slog.Int64("time to fetch", time.Since(t).Milliseconds()))

	return outcome
}

// classify maps a response to an outcome. Status code 0 means the request never got an
// HTTP response (dns, connection, timeout, proxy failure).
func (f *PageFetcher) classify(statusCode int) model.FetchStatus {
	switch {
	case statusCode == 0:
		return model.FetchRetryable
	case statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices:
		return model.FetchSucceeded
	case statusCode >= http.StatusInternalServerError:
		return model.FetchRetryable
	}
	if _, ok := f.retryable[statusCode]; ok {
		return model.FetchRetryable
	}
	return model.FetchFatal
}

// proxyTransport returns the shared transport for proxyURL, creating it on first use.
func (f *PageFetcher) proxyTransport(proxyURL string) (*http.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.transports[proxyURL]; ok {
		return t, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, err
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = http.ProxyURL(u)
	f.transports[proxyURL] = t
	return t, nil
}

// Close drops the idle connections of every proxy transport.
func (f *PageFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transports {
		t.CloseIdleConnections()
	}
	f.log.Info("page fetcher closed.", slog.Int("proxy transports", len(f.transports)))
}
