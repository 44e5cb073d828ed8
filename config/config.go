package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrInvalidConcurrency = errors.New("crawler.max_concurrency must be at least 1")
	ErrInvalidRetries     = errors.New("crawler.max_request_retries must not be negative")
)

// Deployment profiles. A proxied deployment is rate-limited by the proxy pool, so it
// crawls one page at a time and absorbs blocked proxies with a larger retry budget.
const (
	proxiedMaxConcurrency    = 1
	proxiedMaxRequestRetries = 50
	directMaxConcurrency     = 5
	directMaxRequestRetries  = 3
)

type Config struct {
	Env             string         `mapstructure:"env"`
	LogLevel        string         `mapstructure:"log_level"`
	LogType         string         `mapstructure:"log_type"`
	ServiceName     string         `mapstructure:"service_name"`
	Version         string         `mapstructure:"version"`
	Debug           bool           `mapstructure:"debug"`
	FeedSettings    *FeedConfig    `mapstructure:"feed"`
	OutputSettings  *OutputConfig  `mapstructure:"output"`
	CrawlerSettings *CrawlerConfig `mapstructure:"crawler"`
	ProxySettings   *ProxyConfig   `mapstructure:"proxy"`
	CacheSettings   *CacheConfig   `mapstructure:"cache"`
	KafkaSettings   *KafkaConfig   `mapstructure:"kafka"`
	S3Settings      *S3Config      `mapstructure:"s3"`
}

type FeedConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type OutputConfig struct {
	Path        string `mapstructure:"path"`
	DatasetPath string `mapstructure:"dataset_path"`
}

type CrawlerConfig struct {
	MaxConcurrency       int           `mapstructure:"max_concurrency"`
	MaxRequestRetries    int           `mapstructure:"max_request_retries"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay        time.Duration `mapstructure:"max_retry_delay"`
	RetryableStatusCodes []int         `mapstructure:"retryable_status_codes"`
	UserAgent            string        `mapstructure:"user_agent"`
	Subreddit            string        `mapstructure:"subreddit"`
	NewsFlair            string        `mapstructure:"news_flair"`
}

type ProxyConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URLs     []string      `mapstructure:"urls"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type CacheConfig struct {
	Servers string `mapstructure:"servers"`
}

type KafkaConfig struct {
	Producer *ProducerConfig `mapstructure:"producer"`
}

type ProducerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	WriteTopicName string        `mapstructure:"write_topic_name"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BatchSize      int           `mapstructure:"batch_size"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequiredAsks   int           `mapstructure:"required_acks"`
	Async          bool          `mapstructure:"async"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	AwsAccessKey    string `mapstructure:"aws_access_key"`
	AwsSecretKey    string `mapstructure:"aws_secret_key"`
	AwsBaseEndpoint string `mapstructure:"aws_base_endpoint"`
	Region          string `mapstructure:"region"`
	BucketName      string `mapstructure:"bucket_name"`
	KeyPrefix       string `mapstructure:"key_prefix"`
}

// MustLoad reads flags, environment and an optional config.yaml from the working directory.
func MustLoad() *Config {
	pflag.String("feed", "https://www.reddit.com/r/formula1.rss", "RSS feed URL")
	pflag.String("output", "feed.xml", "Output file path")
	pflag.Bool("debug", false, "Enable debug mode")
	pflag.Bool("proxy", false, "Fetch submission pages through the configured proxy pool")
	pflag.Parse()

	v := viper.GetViper()
	bindFlags(v, pflag.CommandLine)
	v.AddConfigPath(path.Join("."))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("can't initialize config file.", slog.String("err", err.Error()))
			os.Exit(1)
		}
		slog.Warn("config file not found. Using defaults.")
	}

	cfg, err := load(v)
	if err != nil {
		slog.Error("invalid configuration.", slog.String("err", err.Error()))
		os.Exit(1)
	}

	return cfg
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	for key, flag := range map[string]string{
		"feed.url":      "feed",
		"output.path":   "output",
		"debug":         "debug",
		"proxy.enabled": "proxy",
	} {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling viper config: %w", err)
	}
	applyDeploymentProfile(v, &cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_type", "text")
	v.SetDefault("service_name", "reddit-news-feed")
	v.SetDefault("version", "dev")
	v.SetDefault("debug", false)

	v.SetDefault("feed.url", "https://www.reddit.com/r/formula1.rss")
	v.SetDefault("feed.timeout", 30*time.Second)
	v.SetDefault("feed.user_agent", "reddit-news-feed/1.0")

	v.SetDefault("output.path", "feed.xml")
	v.SetDefault("output.dataset_path", "")

	// max_concurrency and max_request_retries have no static default, see applyDeploymentProfile.
	v.SetDefault("crawler.request_timeout", 30*time.Second)
	v.SetDefault("crawler.retry_delay", time.Second)
	v.SetDefault("crawler.max_retry_delay", 30*time.Second)
	v.SetDefault("crawler.retryable_status_codes", []int{403, 429})
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("crawler.subreddit", "formula1")
	v.SetDefault("crawler.news_flair", `flair_name:":post-news: News"`)

	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.urls", []string{})
	v.SetDefault("proxy.cooldown", time.Minute)

	v.SetDefault("cache.servers", "")

	v.SetDefault("kafka.producer.enabled", false)
	v.SetDefault("kafka.producer.max_attempts", 3)
	v.SetDefault("kafka.producer.batch_size", 100)
	v.SetDefault("kafka.producer.batch_timeout", time.Second)
	v.SetDefault("kafka.producer.read_timeout", 10*time.Second)
	v.SetDefault("kafka.producer.write_timeout", 10*time.Second)
	v.SetDefault("kafka.producer.required_acks", 1)

	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.key_prefix", "reddit-news-feed")
}

func applyDeploymentProfile(v *viper.Viper, cfg *Config) {
	proxied := cfg.ProxySettings.Enabled
	// Explicit values may come from the environment only, which Unmarshal does not see
	// for keys without a default.
	switch {
	case v.IsSet("crawler.max_concurrency"):
		cfg.CrawlerSettings.MaxConcurrency = v.GetInt("crawler.max_concurrency")
	case proxied:
		cfg.CrawlerSettings.MaxConcurrency = proxiedMaxConcurrency
	default:
		cfg.CrawlerSettings.MaxConcurrency = directMaxConcurrency
	}
	switch {
	case v.IsSet("crawler.max_request_retries"):
		cfg.CrawlerSettings.MaxRequestRetries = v.GetInt("crawler.max_request_retries")
	case proxied:
		cfg.CrawlerSettings.MaxRequestRetries = proxiedMaxRequestRetries
	default:
		cfg.CrawlerSettings.MaxRequestRetries = directMaxRequestRetries
	}
}

func (c *Config) validate() error {
	if c.CrawlerSettings.MaxConcurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.CrawlerSettings.MaxRequestRetries < 0 {
		return ErrInvalidRetries
	}
	if c.FeedSettings.URL == "" {
		return errors.New("feed.url is required")
	}

	return nil
}
