package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/IliaW/reddit-news-feed/config"
	"github.com/IliaW/reddit-news-feed/internal/aws_s3"
	"github.com/IliaW/reddit-news-feed/internal/broker"
	cacheClient "github.com/IliaW/reddit-news-feed/internal/cache"
	"github.com/IliaW/reddit-news-feed/internal/crawler"
	"github.com/IliaW/reddit-news-feed/internal/dataset"
	"github.com/IliaW/reddit-news-feed/internal/model"
	"github.com/IliaW/reddit-news-feed/internal/pipeline"
	"github.com/IliaW/reddit-news-feed/internal/proxy"
	"github.com/lmittmann/tint"
)

var (
	cfg *config.Config
	log *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg = config.MustLoad()
	log = setupLogger()
	log.Info("starting application.", slog.String("env", cfg.Env), slog.String("version", cfg.Version))

	proxies, closeProxies := setupProxies()
	defer closeProxies()
	fetcher := crawler.NewPageFetcher(cfg.CrawlerSettings, log)
	defer fetcher.Close()

	p := &pipeline.Pipeline{
		Cfg:        cfg,
		Log:        log,
		HTTPClient: &http.Client{Timeout: cfg.FeedSettings.Timeout},
		Fetcher:    fetcher,
		Proxies:    proxies,
	}
	res, err := p.Run(ctx)
	if err != nil {
		log.Error("run failed. no output written.", slog.String("err", err.Error()))
		closeProxies()
		os.Exit(1)
	}

	if err = os.WriteFile(cfg.OutputSettings.Path, res.Feed, 0644); err != nil {
		log.Error("failed to write output.", slog.String("path", cfg.OutputSettings.Path),
			slog.String("err", err.Error()))
		closeProxies()
		os.Exit(1)
	}
	log.Info("feed written.", slog.String("path", cfg.OutputSettings.Path), slog.Int("entries", len(res.Mapping)))

	writeDataset(res.Records)
	publishRecords(res.Records)
	uploadFeed(ctx, res.Feed)
}

func setupLogger() *slog.Logger {
	resolvedLogLevel := func() slog.Level {
		if cfg.Debug {
			return slog.LevelDebug
		}
		envLogLevel := strings.ToLower(cfg.LogLevel)
		switch envLogLevel {
		case "info":
			return slog.LevelInfo
		case "error":
			return slog.LevelError
		default:
			return slog.LevelDebug
		}
	}

	replaceAttrs := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			source := a.Value.Any().(*slog.Source)
			source.File = filepath.Base(source.File)
		}
		return a
	}

	var logger *slog.Logger
	if strings.ToLower(cfg.LogType) == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource:   true,
			Level:       resolvedLogLevel(),
			ReplaceAttr: replaceAttrs}))
	} else {
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			AddSource:   true,
			Level:       resolvedLogLevel(),
			ReplaceAttr: replaceAttrs,
			NoColor:     false}))
	}
	logger.Debug("debug messages are enabled.")

	return logger
}

// setupProxies returns a direct provider unless the proxy pool is enabled. Cooldowns are
// shared through memcached when cache servers are configured.
func setupProxies() (proxy.Provider, func()) {
	ps := cfg.ProxySettings
	if !ps.Enabled {
		return proxy.Direct{}, func() {}
	}
	if len(ps.URLs) == 0 {
		log.Warn("couldn't infer proxy configuration. fetching directly.")
		return proxy.Direct{}, func() {}
	}

	log.Info("proxy rotation enabled.", slog.Int("proxies", len(ps.URLs)))
	if ps.Cooldown <= 0 {
		return proxy.NewRoundRobin(ps.URLs, nil, log), func() {}
	}

	var cooldown cacheClient.CooldownCache
	if cfg.CacheSettings.Servers != "" {
		mc, err := cacheClient.NewMemcachedCooldown(cfg.CacheSettings.Servers, ps.Cooldown, log)
		if err != nil {
			log.Warn("memcached is unavailable. using local proxy cooldown.", slog.String("err", err.Error()))
		} else {
			cooldown = mc
		}
	}
	if cooldown == nil {
		cooldown = cacheClient.NewLocalCooldown(ps.Cooldown, log)
	}

	once := sync.Once{}
	return proxy.NewRoundRobin(ps.URLs, cooldown, log), func() { once.Do(cooldown.Close) }
}

func writeDataset(records []model.ResultRecord) {
	path := cfg.OutputSettings.DatasetPath
	if path == "" {
		return
	}
	var buf bytes.Buffer
	if err := dataset.WriteJSONLines(&buf, records); err != nil {
		log.Error("failed to encode dataset.", slog.String("err", err.Error()))
		return
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		log.Error("failed to write dataset.", slog.String("path", path), slog.String("err", err.Error()))
		return
	}
	log.Info("dataset written.", slog.String("path", path), slog.Int("records", len(records)))
}

// publishRecords sends the accepted records to kafka and waits until the producer has
// flushed its last batch.
func publishRecords(records []model.ResultRecord) {
	if !cfg.KafkaSettings.Producer.Enabled {
		return
	}
	recordChan := make(chan *model.ResultRecord, len(records))
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go broker.NewKafkaProducer(recordChan, cfg.KafkaSettings.Producer, log, wg).Run()
	for i := range records {
		recordChan <- &records[i]
	}
	close(recordChan)
	log.Info("close recordChan.")
	wg.Wait()
}

func uploadFeed(ctx context.Context, feed []byte) {
	if !cfg.S3Settings.Enabled {
		return
	}
	s3, err := aws_s3.NewS3BucketClient(ctx, cfg.S3Settings, log)
	if err != nil {
		log.Error("failed to connect to s3.", slog.String("err", err.Error()))
		return
	}
	link, err := s3.WriteFeed(ctx, feed)
	if err != nil {
		log.Error("failed to upload feed.", slog.String("err", err.Error()))
		return
	}
	log.Info("feed uploaded.", slog.String("link", link))
}
