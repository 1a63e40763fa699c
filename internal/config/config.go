package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "AST_CONFIG"
	logLevelEnv       = "AST_LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	openAIKeyEnv      = "OPENAI_API_KEY"
	classifierKeyEnv  = "CLASSIFIER_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Classification providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderHTTP      = "http"
	ProviderNone      = "none"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Clustering    ClusteringConfig   `yaml:"clustering"`
	AI            AIConfig           `yaml:"ai"`
	Notifications NotificationConfig `yaml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig points at the AI tag cache. An empty address disables caching.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// SchedulerConfig defines when ingestion should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// IngestConfig tunes fetch concurrency and politeness.
type IngestConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	TagConcurrency int           `yaml:"tagConcurrency"`
	FetchTimeout   time.Duration `yaml:"fetchTimeout"`
	HostInterval   time.Duration `yaml:"hostInterval"`
	UserAgent      string        `yaml:"userAgent"`
}

// ClusteringConfig overrides story grouping parameters.
type ClusteringConfig struct {
	Threshold float64       `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
	MaxSize   int           `yaml:"maxSize"`
}

// AIConfig selects and configures the classification service.
type AIConfig struct {
	Provider  string         `yaml:"provider"`
	Timeout   time.Duration  `yaml:"timeout"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
	HTTP      ProviderConfig `yaml:"http"`
}

// ProviderConfig describes how to contact one classification backend.
type ProviderConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"apiKey"`
	MaxTokens int    `yaml:"maxTokens"`
}

// ResolvedProvider returns the configured provider, or the first one with
// credentials when none is named. ProviderNone disables AI tagging.
func (a AIConfig) ResolvedProvider() string {
	if p := strings.ToLower(strings.TrimSpace(a.Provider)); p != "" {
		return p
	}
	switch {
	case a.Anthropic.APIKey != "":
		return ProviderAnthropic
	case a.OpenAI.APIKey != "":
		return ProviderOpenAI
	case a.HTTP.Endpoint != "":
		return ProviderHTTP
	default:
		return ProviderNone
	}
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send digests.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
	MinTier  string `yaml:"minTier"`
	Limit    int    `yaml:"limit"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// HTTPConfig configures the trigger API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SourceConfig seeds one feed source.
type SourceConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	FeedURL string `yaml:"feedUrl"`
	SiteURL string `yaml:"siteUrl"`
	Type    string `yaml:"type"`
	Fetcher string `yaml:"fetcher"`
	Active  *bool  `yaml:"active"`
}

// Domain converts the seed entry into a source; sources are active unless disabled.
func (s SourceConfig) Domain() domain.Source {
	active := true
	if s.Active != nil {
		active = *s.Active
	}
	return domain.Source{
		ID:      s.ID,
		Name:    s.Name,
		FeedURL: s.FeedURL,
		SiteURL: s.SiteURL,
		Type:    s.Type,
		Fetcher: s.Fetcher,
		Active:  active,
	}
}

// SeedSources converts every configured source entry.
func (c Config) SeedSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, s.Domain())
	}
	return out
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{logLevelEnv, &c.Logging.Level},
		{databaseDSNEnv, &c.Database.DSN},
		{redisAddrEnv, &c.Redis.Addr},
		{anthropicKeyEnv, &c.AI.Anthropic.APIKey},
		{openAIKeyEnv, &c.AI.OpenAI.APIKey},
		{classifierKeyEnv, &c.AI.HTTP.APIKey},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	setString(&base.Logging.Level, override.Logging.Level)
	setString(&base.Database.DSN, override.Database.DSN)

	setString(&base.Redis.Addr, override.Redis.Addr)
	setString(&base.Redis.Password, override.Redis.Password)
	setInt(&base.Redis.DB, override.Redis.DB)
	setDuration(&base.Redis.TTL, override.Redis.TTL)

	setString(&base.Scheduler.CronExpression, override.Scheduler.CronExpression)
	setString(&base.Scheduler.Timezone, override.Scheduler.Timezone)

	setInt(&base.Ingest.Concurrency, override.Ingest.Concurrency)
	setInt(&base.Ingest.TagConcurrency, override.Ingest.TagConcurrency)
	setDuration(&base.Ingest.FetchTimeout, override.Ingest.FetchTimeout)
	setDuration(&base.Ingest.HostInterval, override.Ingest.HostInterval)
	setString(&base.Ingest.UserAgent, override.Ingest.UserAgent)

	if override.Clustering.Threshold > 0 {
		base.Clustering.Threshold = override.Clustering.Threshold
	}
	setDuration(&base.Clustering.Window, override.Clustering.Window)
	setInt(&base.Clustering.MaxSize, override.Clustering.MaxSize)

	setString(&base.AI.Provider, override.AI.Provider)
	setDuration(&base.AI.Timeout, override.AI.Timeout)
	mergeProvider(&base.AI.Anthropic, override.AI.Anthropic)
	mergeProvider(&base.AI.OpenAI, override.AI.OpenAI)
	mergeProvider(&base.AI.HTTP, override.AI.HTTP)

	tg := &base.Notifications.Telegram
	setString(&tg.BotToken, override.Notifications.Telegram.BotToken)
	setString(&tg.ChatID, override.Notifications.Telegram.ChatID)
	setString(&tg.APIURL, override.Notifications.Telegram.APIURL)
	setString(&tg.MinTier, override.Notifications.Telegram.MinTier)
	setInt(&tg.Limit, override.Notifications.Telegram.Limit)

	setString(&base.HTTP.Addr, override.HTTP.Addr)

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func mergeProvider(base *ProviderConfig, override ProviderConfig) {
	setString(&base.Endpoint, override.Endpoint)
	setString(&base.Model, override.Model)
	setString(&base.APIKey, override.APIKey)
	setInt(&base.MaxTokens, override.MaxTokens)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Redis:     RedisConfig{TTL: 7 * 24 * time.Hour},
		Scheduler: SchedulerConfig{CronExpression: "*/15 * * * *", Timezone: defaultTimezone, location: tz},
		Ingest: IngestConfig{
			Concurrency:    8,
			TagConcurrency: 4,
			FetchTimeout:   20 * time.Second,
			HostInterval:   time.Second,
			UserAgent:      "AlwaysSchemingTerminal/1.0",
		},
		Clustering: ClusteringConfig{Threshold: 0.3, Window: 72 * time.Hour, MaxSize: 10},
		AI: AIConfig{
			Timeout: 20 * time.Second,
			Anthropic: ProviderConfig{
				Model:     "claude-haiku-4-5",
				MaxTokens: 256,
			},
			OpenAI: ProviderConfig{
				Endpoint:  "https://api.openai.com/v1/chat/completions",
				Model:     "gpt-4o-mini",
				MaxTokens: 256,
			},
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org", MinTier: "high", Limit: 10},
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Sources: []SourceConfig{
			{ID: "gamesindustry-biz", Name: "GamesIndustry.biz", FeedURL: "https://www.gamesindustry.biz/feed", SiteURL: "https://www.gamesindustry.biz", Type: domain.SourceTypeNews},
			{ID: "pocketgamer-biz", Name: "PocketGamer.biz", FeedURL: "https://www.pocketgamer.biz/rss/", SiteURL: "https://www.pocketgamer.biz", Type: domain.SourceTypeNews},
			{ID: "game-file", Name: "Game File", FeedURL: "https://www.gamefile.news/feed", SiteURL: "https://www.gamefile.news", Type: domain.SourceTypeNewsletter},
			{ID: "naavik", Name: "Naavik", FeedURL: "https://naavik.co/feed/", SiteURL: "https://naavik.co", Type: domain.SourceTypeAnalysis},
		},
	}
}
