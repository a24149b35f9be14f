// Package config loads viraldaily settings from defaults, config.yaml, .env, the
// environment and command-line flags, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gauthierbraillon/viraldaily/internal/video"
)

// EnvPrefix prefixes every environment variable, e.g. VIRALDAILY_LIMIT.
const EnvPrefix = "VIRALDAILY"

// Formats lists the accepted output formats. "text" renders to the terminal.
var Formats = []string{"json", "yaml", "html", "text"}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type YouTube struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	Region string `mapstructure:"region" yaml:"region"`
}

type TikTok struct {
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`
	Keyword     string `mapstructure:"keyword" yaml:"keyword"`
	Region      string `mapstructure:"region" yaml:"region"`
}

type X struct {
	BearerToken string `mapstructure:"bearer_token" yaml:"bearer_token"`
	Query       string `mapstructure:"query" yaml:"query"`
}

type Instagram struct {
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`
	UserID      string `mapstructure:"user_id" yaml:"user_id"`
	Hashtag     string `mapstructure:"hashtag" yaml:"hashtag"`
}

type Retry struct {
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

type Rate struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

type Server struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type Redis struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type NATS struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// Config is the resolved configuration of one process.
type Config struct {
	YouTube   YouTube   `mapstructure:"youtube" yaml:"youtube"`
	TikTok    TikTok    `mapstructure:"tiktok" yaml:"tiktok"`
	X         X         `mapstructure:"x" yaml:"x"`
	Instagram Instagram `mapstructure:"instagram" yaml:"instagram"`

	Platforms      []string      `mapstructure:"platforms" yaml:"platforms"`
	PerSourceLimit int           `mapstructure:"per_source_limit" yaml:"per_source_limit"`
	Limit          int           `mapstructure:"limit" yaml:"limit"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retry          Retry         `mapstructure:"retry" yaml:"retry"`
	Rate           Rate          `mapstructure:"rate" yaml:"rate"`

	Output string `mapstructure:"output" yaml:"output"`
	Format string `mapstructure:"format" yaml:"format"`

	Server Server `mapstructure:"server" yaml:"server"`
	Redis  Redis  `mapstructure:"redis" yaml:"redis"`
	NATS   NATS   `mapstructure:"nats" yaml:"nats"`

	// BaseURLs overrides upstream API roots per platform, mainly for tests.
	BaseURLs map[string]string `mapstructure:"base_urls" yaml:"base_urls,omitempty"`
}

// Options locates the optional files Load reads.
type Options struct {
	// ConfigFile is an explicit config path. Empty searches ./config.yaml and $VIRALDAILY_CONFIG.
	ConfigFile string
	// EnvFile is loaded into the process environment when present. Defaults to ".env".
	EnvFile string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("youtube.api_key", "")
	v.SetDefault("youtube.region", "")
	v.SetDefault("tiktok.access_token", "")
	v.SetDefault("tiktok.keyword", "viral")
	v.SetDefault("tiktok.region", "")
	v.SetDefault("x.bearer_token", "")
	v.SetDefault("x.query", "viral has:videos -is:retweet")
	v.SetDefault("instagram.access_token", "")
	v.SetDefault("instagram.user_id", "")
	v.SetDefault("instagram.hashtag", "viral")

	platforms := make([]string, len(video.Platforms))
	for i, p := range video.Platforms {
		platforms[i] = string(p)
		v.SetDefault("base_urls."+string(p), "")
	}
	v.SetDefault("platforms", platforms)
	v.SetDefault("per_source_limit", 10)
	v.SetDefault("limit", 0)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", 2*time.Second)
	v.SetDefault("retry.max_delay", 5*time.Minute)
	v.SetDefault("rate.requests_per_second", 2.0)
	v.SetDefault("output", "public/videos.json")
	v.SetDefault("format", "json")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cache_ttl", 15*time.Minute)
	v.SetDefault("redis.url", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "viraldaily.subscriptions")
}

// wellKnownEnv are unprefixed variable names commonly used for platform credentials.
var wellKnownEnv = map[string]string{
	"youtube.api_key":        "YOUTUBE_API_KEY",
	"tiktok.access_token":    "TIKTOK_ACCESS_TOKEN",
	"x.bearer_token":         "TWITTER_BEARER_TOKEN",
	"instagram.access_token": "INSTAGRAM_ACCESS_TOKEN",
	"instagram.user_id":      "INSTAGRAM_USER_ID",
}

// Load resolves the configuration into v and validates it.
// Flags must be bound to v before calling Load.
func Load(v *viper.Viper, opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range wellKnownEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Platforms = splitList(cfg.Platforms)
	cfg.Format = strings.ToLower(cfg.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// splitList accepts both ["a","b"] and ["a,b"], as produced by env vars and flags.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports the first setting outside its accepted range.
func (c *Config) Validate() error {
	if c.PerSourceLimit < 1 || c.PerSourceLimit > 10 {
		return fmt.Errorf("%w: per_source_limit must be between 1 and 10, got %d", ErrInvalid, c.PerSourceLimit)
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalid, c.Limit)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalid)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalid)
	}
	if c.Retry.InitialDelay <= 0 || c.Retry.MaxDelay <= 0 {
		return fmt.Errorf("%w: retry delays must be positive", ErrInvalid)
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("%w: retry.max_delay must not be below retry.initial_delay", ErrInvalid)
	}

	known := false
	for _, f := range Formats {
		if c.Format == f {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("%w: format must be one of %s, got %q", ErrInvalid, strings.Join(Formats, ", "), c.Format)
	}

	if len(c.Platforms) == 0 {
		return fmt.Errorf("%w: at least one platform is required", ErrInvalid)
	}
	seen := make(map[video.Platform]bool, len(c.Platforms))
	for _, name := range c.Platforms {
		p, err := video.ParsePlatform(name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if seen[p] {
			return fmt.Errorf("%w: platform %q listed twice", ErrInvalid, name)
		}
		seen[p] = true
	}
	return nil
}

// EnabledPlatforms returns the configured platforms in order.
func (c *Config) EnabledPlatforms() []video.Platform {
	out := make([]video.Platform, 0, len(c.Platforms))
	for _, name := range c.Platforms {
		if p, err := video.ParsePlatform(name); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// BaseURL returns the API root override for p, or "".
func (c *Config) BaseURL(p video.Platform) string {
	return c.BaseURLs[string(p)]
}

// Redacted returns a copy with every credential masked, suitable for printing.
func (c *Config) Redacted() Config {
	r := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	r.YouTube.APIKey = mask(r.YouTube.APIKey)
	r.TikTok.AccessToken = mask(r.TikTok.AccessToken)
	r.X.BearerToken = mask(r.X.BearerToken)
	r.Instagram.AccessToken = mask(r.Instagram.AccessToken)
	r.Redis.URL = redactURL(r.Redis.URL)
	r.NATS.URL = redactURL(r.NATS.URL)
	return r
}

// redactURL hides the userinfo part of a connection URL.
func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "****" + raw[at:]
}
