package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IliaW/reddit-news-feed/config"
	"github.com/IliaW/reddit-news-feed/internal/model"
	"github.com/IliaW/reddit-news-feed/internal/proxy"
)

type PageFetcher interface {
	Fetch(ctx context.Context, url string, proxyURL string) *model.FetchOutcome
}

type Extractor interface {
	Extract(html []byte, sourceURL string) model.ExtractionResult
}

type ResultStore interface {
	Append(model.ResultRecord)
}

// CrawlScheduler runs fetch-extract cycles for submission tasks on a fixed pool of
// workers. Failed tasks are dropped silently; only accepted pages reach the Store.
type CrawlScheduler struct {
	Fetcher   PageFetcher
	Extractor Extractor
	Proxies   proxy.Provider
	Store     ResultStore
	Cfg       *config.CrawlerConfig
	Log       *slog.Logger
}

// Run blocks until every task is accepted, rejected or out of attempts, or until ctx is
// done. After cancellation no new task is started.
func (s *CrawlScheduler) Run(ctx context.Context, tasks []*model.SubmissionTask) {
	if len(tasks) == 0 {
		return
	}
	q := newTaskQueue(tasks)
	workers := max(1, s.Cfg.MaxConcurrency)
	s.Log.Info("starting crawl.", slog.Int("tasks", len(tasks)), slog.Int("max concurrency", workers),
		slog.Int("max request retries", s.Cfg.MaxRequestRetries))

	wg := &sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.work(ctx, wg, q)
	}
	wg.Wait()
	s.Log.Info("crawl finished.", slog.Int64("unfinished tasks", q.remaining.Load()))
}

func (s *CrawlScheduler) work(ctx context.Context, wg *sync.WaitGroup, q *taskQueue) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok || ctx.Err() != nil {
				return
			}
			s.process(ctx, q, task)
		}
	}
}

func (s *CrawlScheduler) process(ctx context.Context, q *taskQueue, task *model.SubmissionTask) {
	requeued := false
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("PANIC!", slog.Any("err", r), slog.String("url", task.URL))
		}
		if !requeued {
			q.done()
		}
	}()

	proxyURL := ""
	if s.Proxies != nil {
		proxyURL, _ = s.Proxies.Next()
	}
	task.AttemptCount++
	outcome := s.Fetcher.Fetch(ctx, task.URL, proxyURL)

	switch outcome.Status {
	case model.FetchRetryable:
		s.penalize(proxyURL)
		if task.AttemptCount < s.Cfg.MaxRequestRetries && ctx.Err() == nil {
			delay := s.retryDelay(task.AttemptCount)
			s.Log.Warn("fetch failed. retrying...", slog.String("url", task.URL),
				slog.Int("status code", outcome.StatusCode), slog.Int("attempt", task.AttemptCount),
				slog.Duration("delay", delay), slog.Any("err", outcome.Err))
			q.retry(task, delay)
			requeued = true
			return
		}
		s.Log.Warn("fetch failed. attempts exhausted.", slog.String("url", task.URL),
			slog.Int("status code", outcome.StatusCode), slog.Int("attempts", task.AttemptCount))
	case model.FetchFatal:
		s.Log.Info("fetch failed. dropping.", slog.String("url", task.URL),
			slog.Int("status code", outcome.StatusCode), slog.Any("err", outcome.Err))
	case model.FetchSucceeded:
		s.extract(outcome.Body, task)
	}
}

func (s *CrawlScheduler) extract(body []byte, task *model.SubmissionTask) {
	res := s.Extractor.Extract(body, task.URL)
	switch res.Status {
	case model.Accepted:
		s.Log.Info("saving.", slog.String("reddit url", res.Record.RedditURL),
			slog.String("article url", res.Record.ArticleURL))
		s.Store.Append(*res.Record)
	case model.NotNews:
		s.Log.Info("not news.", slog.String("url", task.URL), slog.String("flair", res.Reason))
	case model.MalformedPage:
		s.Log.Warn("unexpected page structure.", slog.String("url", task.URL), slog.String("reason", res.Reason))
	}
}

func (s *CrawlScheduler) penalize(proxyURL string) {
	if proxyURL == "" {
		return
	}
	if p, ok := s.Proxies.(proxy.Penalizer); ok {
		p.Penalize(proxyURL)
	}
}

// retryDelay doubles RetryDelay for every failed attempt, capped by MaxRetryDelay.
func (s *CrawlScheduler) retryDelay(attempt int) time.Duration {
	delay := s.Cfg.RetryDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if s.Cfg.MaxRetryDelay > 0 && delay >= s.Cfg.MaxRetryDelay {
			return s.Cfg.MaxRetryDelay
		}
	}
	if s.Cfg.MaxRetryDelay > 0 && delay > s.Cfg.MaxRetryDelay {
		return s.Cfg.MaxRetryDelay
	}
	return delay
}

// taskQueue holds every unfinished task either in the channel or in a worker, so the
// channel never needs more than len(tasks) slots and a re-enqueue never blocks.
type taskQueue struct {
	tasks     chan *model.SubmissionTask
	remaining atomic.Int64
}

func newTaskQueue(tasks []*model.SubmissionTask) *taskQueue {
	q := &taskQueue{tasks: make(chan *model.SubmissionTask, len(tasks))}
	q.remaining.Store(int64(len(tasks)))
	for _, t := range tasks {
		q.tasks <- t
	}
	return q
}

func (q *taskQueue) retry(task *model.SubmissionTask, delay time.Duration) {
	if delay <= 0 {
		q.tasks <- task
		return
	}
	time.AfterFunc(delay, func() { q.tasks <- task })
}

// done marks a task finished. The last one closes the channel, which stops the workers.
func (q *taskQueue) done() {
	if q.remaining.Add(-1) == 0 {
		close(q.tasks)
	}
}
