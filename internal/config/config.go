// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/jobscout-crawler/internal/extract"
	"github.com/JakeFAU/jobscout-crawler/internal/listing"
)

// EnvPrefix prefixes every environment override, e.g. JOBSCOUT_CRAWL_MAX_PAGES.
const EnvPrefix = "JOBSCOUT"

// Supported browser engines.
const (
	EngineChromedp = "chromedp"
	EngineStatic   = "static"
)

// Config captures every knob of a crawl run.
type Config struct {
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Selectors SelectorsConfig `mapstructure:"selectors"`
	Output    OutputConfig    `mapstructure:"output"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CrawlConfig governs what is crawled and how fast.
type CrawlConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	SiteOrigin        string        `mapstructure:"site_origin"`
	MaxPages          int           `mapstructure:"max_pages"`
	DelayBetweenJobs  time.Duration `mapstructure:"delay_between_jobs"`
	DelayBetweenPages time.Duration `mapstructure:"delay_between_pages"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	PaginationToken   string        `mapstructure:"pagination_token"`
	RunID             string        `mapstructure:"run_id"`
}

// BrowserConfig selects and tunes the page-loading engine.
type BrowserConfig struct {
	Engine            string        `mapstructure:"engine"`
	Headless          bool          `mapstructure:"headless"`
	UserAgent         string        `mapstructure:"user_agent"`
	ExecPath          string        `mapstructure:"exec_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
}

// SelectorsConfig flattens the detail and listing selectors into one section.
type SelectorsConfig struct {
	Detail  extract.Selectors `mapstructure:",squash"`
	Listing listing.Selectors `mapstructure:",squash"`
}

// OutputConfig names the export destination: a local path or gs://bucket/object.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// DBConfig enables optional Postgres persistence when DSN is set.
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	Table       string `mapstructure:"table"`
	CreateTable bool   `mapstructure:"create_table"`
	MaxConns    int32  `mapstructure:"max_conns"`
}

// PubSubConfig enables the run-summary notification when Topic is set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the /metrics endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// NewViper returns a Viper instance with defaults and environment overrides
// wired. Callers may bind flags to it before calling LoadFrom.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load builds a Config from defaults, an optional file, and the environment.
func Load(path string) (Config, error) {
	return LoadFrom(NewViper(), path)
}

// LoadFrom reads the optional config file into v and unmarshals the result.
func LoadFrom(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	detail := extract.DefaultSelectors()
	list := listing.DefaultSelectors()

	v.SetDefault("crawl.base_url", "https://www.jobscout24.ch/de/jobs/")
	v.SetDefault("crawl.site_origin", listing.DefaultOrigin)
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("crawl.delay_between_jobs", 300*time.Millisecond)
	v.SetDefault("crawl.delay_between_pages", time.Second)
	v.SetDefault("crawl.wait_timeout", 10*time.Second)
	v.SetDefault("crawl.requests_per_second", 0.0)
	v.SetDefault("crawl.pagination_token", listing.DefaultPageToken)
	v.SetDefault("crawl.run_id", "")
	v.SetDefault("browser.engine", EngineChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.navigation_timeout", 45*time.Second)
	v.SetDefault("browser.respect_robots", false)
	v.SetDefault("selectors.container", detail.Container)
	v.SetDefault("selectors.title_chain", detail.TitleChain)
	v.SetDefault("selectors.company", detail.Company)
	v.SetDefault("selectors.pub_date_attr", detail.PubDateAttr)
	v.SetDefault("selectors.quota_attr", detail.QuotaAttr)
	v.SetDefault("selectors.location_attr", detail.LocationAttr)
	v.SetDefault("selectors.list_item", list.ListItem)
	v.SetDefault("selectors.id_attr", list.IDAttr)
	v.SetDefault("selectors.url_attr", list.URLAttr)
	v.SetDefault("selectors.pagination", list.Pagination)
	v.SetDefault("output.path", "datasets/jobscout24_all_jobs.csv")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "job_records")
	v.SetDefault("db.create_table", false)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := requireAbsoluteURL("crawl.base_url", c.Crawl.BaseURL); err != nil {
		return err
	}
	if err := requireAbsoluteURL("crawl.site_origin", c.Crawl.SiteOrigin); err != nil {
		return err
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0")
	}
	if c.Crawl.DelayBetweenJobs < 0 || c.Crawl.DelayBetweenPages < 0 {
		return fmt.Errorf("crawl delays must be >= 0")
	}
	if c.Crawl.WaitTimeout <= 0 {
		return fmt.Errorf("crawl.wait_timeout must be > 0")
	}
	if c.Crawl.RequestsPerSecond < 0 {
		return fmt.Errorf("crawl.requests_per_second must be >= 0")
	}
	switch c.Browser.Engine {
	case EngineChromedp, EngineStatic:
	default:
		return fmt.Errorf("browser.engine must be %q or %q, got %q", EngineChromedp, EngineStatic, c.Browser.Engine)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if c.Selectors.Detail.Container == "" || len(c.Selectors.Detail.TitleChain) == 0 {
		return fmt.Errorf("selectors.container and selectors.title_chain are required")
	}
	if c.Selectors.Listing.ListItem == "" || c.Selectors.Listing.IDAttr == "" || c.Selectors.Listing.URLAttr == "" {
		return fmt.Errorf("selectors.list_item, selectors.id_attr and selectors.url_attr are required")
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path is required")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	return nil
}

func requireAbsoluteURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) url, got %q", key, raw)
	}
	return nil
}
