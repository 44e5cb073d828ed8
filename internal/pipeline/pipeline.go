// Package pipeline turns a subreddit feed into a feed of news articles.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/IliaW/reddit-news-feed/config"
	"github.com/IliaW/reddit-news-feed/internal/dataset"
	"github.com/IliaW/reddit-news-feed/internal/extractor"
	"github.com/IliaW/reddit-news-feed/internal/feed"
	"github.com/IliaW/reddit-news-feed/internal/model"
	"github.com/IliaW/reddit-news-feed/internal/proxy"
	"github.com/IliaW/reddit-news-feed/internal/worker"
)

type Result struct {
	Feed    []byte
	Mapping model.UrlMapping
	Records []model.ResultRecord
}

type Pipeline struct {
	Cfg        *config.Config
	Log        *slog.Logger
	HTTPClient *http.Client
	Fetcher    worker.PageFetcher
	Proxies    proxy.Provider
}

// Run fetches the feed, resolves every submission and filters the feed. Only a failure
// of the feed itself is returned; submissions that cannot be resolved are left out.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	feedCfg := p.Cfg.FeedSettings
	p.Log.Info("fetching feed.", slog.String("url", feedCfg.URL))
	body, err := feed.Fetch(ctx, p.HTTPClient, feedCfg.URL, feedCfg.UserAgent)
	if err != nil {
		return nil, err
	}
	links, err := feed.SubmissionLinks(body)
	if err != nil {
		return nil, err
	}
	p.Log.Info("feed parsed.", slog.Int("entries", len(links)))

	store := dataset.New()
	scheduler := &worker.CrawlScheduler{
		Fetcher:   p.Fetcher,
		Extractor: extractor.New(p.Cfg.CrawlerSettings.Subreddit, p.Cfg.CrawlerSettings.NewsFlair),
		Proxies:   p.Proxies,
		Store:     store,
		Cfg:       p.Cfg.CrawlerSettings,
		Log:       p.Log,
	}
	scheduler.Run(ctx, model.NewSubmissionTasks(links))
	if err = ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl interrupted: %w", err)
	}

	mapping, records := dataset.Aggregate(store)
	p.Log.Info("submissions resolved.", slog.Int("resolved", len(mapping)), slog.Int("entries", len(links)))

	filtered, err := feed.Filter(body, mapping, p.Log)
	if err != nil {
		return nil, err
	}

	return &Result{Feed: filtered, Mapping: mapping, Records: records}, nil
}
