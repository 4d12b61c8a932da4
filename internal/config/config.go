// Package config loads and validates stock watcher configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/stockwatch/internal/scheduler"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Discord   DiscordConfig   `mapstructure:"discord"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Products  ProductsConfig  `mapstructure:"products"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DiscordConfig identifies the bot and the announcement channel.
type DiscordConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
	Prefix    string `mapstructure:"prefix"`
}

// SchedulerConfig holds the initial polling setup.
type SchedulerConfig struct {
	IntervalMinutes int      `mapstructure:"interval_minutes"`
	Products        []string `mapstructure:"products"`
	Timezone        string   `mapstructure:"timezone"`
	SkipWeekends    bool     `mapstructure:"skip_weekends"`
}

// FetchConfig configures outbound page fetches.
type FetchConfig struct {
	UserAgent string          `mapstructure:"user_agent"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
}

// RateLimitConfig paces fetches per host. RPS 0 disables pacing.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	MaxParallel        int           `mapstructure:"max_parallel"`
	NavTimeout         time.Duration `mapstructure:"nav_timeout"`
	PromotionThreshold int           `mapstructure:"promotion_threshold"`
}

// ProductsConfig lists every product the bot can track.
type ProductsConfig struct {
	Catalog []stock.Product `mapstructure:"catalog"`
}

// LoggingConfig toggles zap development features and the log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// ServerConfig controls the ops HTTP server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DefaultCatalog is the product list used when none is configured.
var DefaultCatalog = []stock.Product{
	{
		ID:   "5080",
		Name: "RTX 5080",
		URL:  "https://www.bestbuy.com/site/nvidia-geforce-rtx-5080-16gb-gddr7-graphics-card-gun-metal/6614153.p?skuId=6614153",
	},
	{
		ID:   "5090",
		Name: "RTX 5090",
		URL:  "https://www.bestbuy.com/site/nvidia-geforce-rtx-5090-32gb-gddr7-graphics-card-dark-gun-metal/6614151.p?skuId=6614151",
	},
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STOCKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
	// Secrets have empty defaults so AutomaticEnv can fill them on Unmarshal.
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.channel_id", "")
	v.SetDefault("discord.prefix", "!")
	v.SetDefault("scheduler.interval_minutes", 30)
	v.SetDefault("scheduler.products", []string{"5080"})
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.skip_weekends", true)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0")
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.rate_limit.rps", 1.0)
	v.SetDefault("fetch.rate_limit.burst", 1)
	v.SetDefault("fetch.headless.enabled", false)
	v.SetDefault("fetch.headless.max_parallel", 1)
	v.SetDefault("fetch.headless.nav_timeout", 45*time.Second)
	v.SetDefault("fetch.headless.promotion_threshold", 2048)
	v.SetDefault("products.catalog", catalogDefault())
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.file", "stock_check.log")
	v.SetDefault("server.port", 8080)
}

func catalogDefault() []map[string]any {
	out := make([]map[string]any, 0, len(DefaultCatalog))
	for _, p := range DefaultCatalog {
		out = append(out, map[string]any{"id": p.ID, "name": p.Name, "url": p.URL})
	}
	return out
}

// Validate enforces required values and reasonable limits. Discord
// credentials are checked separately by RequireDiscord so one-shot commands
// can run without them.
func (c Config) Validate() error {
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	if c.Discord.Prefix == "" {
		return fmt.Errorf("discord.prefix must not be empty")
	}
	if !scheduler.ValidInterval(c.Scheduler.IntervalMinutes) {
		return fmt.Errorf("scheduler.interval_minutes must be between 1 and %d", scheduler.MaxIntervalMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if c.Fetch.RateLimit.RPS < 0 {
		return fmt.Errorf("fetch.rate_limit.rps must be >= 0")
	}
	if c.Fetch.Headless.Enabled && c.Fetch.Headless.MaxParallel <= 0 {
		return fmt.Errorf("fetch.headless.max_parallel must be > 0 when headless is enabled")
	}
	catalog, err := c.Catalog()
	if err != nil {
		return err
	}
	if _, err := catalog.Select(c.Scheduler.Products); err != nil {
		return fmt.Errorf("scheduler.products: %w", err)
	}
	return nil
}

// RequireDiscord checks the credentials needed to connect the bot.
func (c Config) RequireDiscord() error {
	var errs []error
	if strings.TrimSpace(c.Discord.Token) == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	switch id := strings.TrimSpace(c.Discord.ChannelID); {
	case id == "":
		errs = append(errs, errors.New("discord.channel_id is required"))
	default:
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("discord.channel_id must be a numeric snowflake, got %q", id))
		}
	}
	return errors.Join(errs...)
}

// Location resolves scheduler.timezone.
func (c Config) Location() (*time.Location, error) {
	name := c.Scheduler.Timezone
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return loc, nil
}

// Catalog builds the validated product catalog.
func (c Config) Catalog() (*stock.Catalog, error) {
	catalog, err := stock.NewCatalog(c.Products.Catalog)
	if err != nil {
		return nil, fmt.Errorf("products.catalog: %w", err)
	}
	return catalog, nil
}

// TrackedProducts resolves scheduler.products against the catalog.
func (c Config) TrackedProducts() ([]stock.Product, error) {
	catalog, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	products, err := catalog.Select(c.Scheduler.Products)
	if err != nil {
		return nil, fmt.Errorf("scheduler.products: %w", err)
	}
	return products, nil
}

// Interval returns the configured polling interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.IntervalMinutes) * time.Minute
}
