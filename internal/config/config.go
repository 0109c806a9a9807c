package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/debrief-io/debrief/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram Telegram `mapstructure:"telegram"`
	Store    Store    `mapstructure:"store"`
	Engine   Engine   `mapstructure:"engine"`
	Rules    Rules    `mapstructure:"rules"`
	Calendar Calendar `mapstructure:"calendar"`
	Briefing Briefing `mapstructure:"briefing"`
	Metrics  Metrics  `mapstructure:"metrics"`
}

// Telegram holds the notification channel / command source credentials.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Store holds the remote config document credentials.
type Store struct {
	BinID      string `mapstructure:"bin_id"`
	MasterKey  string `mapstructure:"master_key"`
	BackupPath string `mapstructure:"backup_path"`
}

// Engine holds the scheduler settings.
type Engine struct {
	Interval time.Duration `mapstructure:"interval"`
	Workers  int           `mapstructure:"workers"`
	PidFile  string        `mapstructure:"pid_file"`
}

// Rules holds evaluator thresholds and periods.
type Rules struct {
	PriceTriggerPct float64 `mapstructure:"price_trigger_pct"`
	PriceRearmPct   float64 `mapstructure:"price_rearm_pct"`
	RSIPeriod       int     `mapstructure:"rsi_period"`
	RSIOverbought   float64 `mapstructure:"rsi_overbought"`
	RSIOversold     float64 `mapstructure:"rsi_oversold"`
	RSINeutralHigh  float64 `mapstructure:"rsi_neutral_high"`
	RSINeutralLow   float64 `mapstructure:"rsi_neutral_low"`
	VolumeRatio     float64 `mapstructure:"volume_ratio"`
	MAFast          int     `mapstructure:"ma_fast"`
	MASlow          int     `mapstructure:"ma_slow"`
	BollPeriod      int     `mapstructure:"boll_period"`
	BollWidth       float64 `mapstructure:"boll_width"`
	NewsLimit       int     `mapstructure:"news_limit"`
}

// Calendar holds the macro calendar feed settings.
type Calendar struct {
	FeedURL string `mapstructure:"feed_url"`
	Country string `mapstructure:"country"`
}

// Briefing holds the digest schedule. Hours are engine-local time.
type Briefing struct {
	Weekday    int `mapstructure:"weekday"` // time.Weekday, Monday = 1
	WeeklyHour int `mapstructure:"weekly_hour"`
	DailyHour  int `mapstructure:"daily_hour"`
}

// Metrics holds metrics configuration.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Engine: Engine{
			Interval: 60 * time.Second,
			Workers:  5,
			PidFile:  "debrief.pid",
		},
		Store: Store{
			BackupPath: "debrief_settings.json",
		},
		Rules: Rules{
			PriceTriggerPct: 3.0,
			PriceRearmPct:   1.0,
			RSIPeriod:       14,
			RSIOverbought:   70,
			RSIOversold:     30,
			RSINeutralHigh:  65,
			RSINeutralLow:   35,
			VolumeRatio:     2.0,
			MAFast:          50,
			MASlow:          200,
			BollPeriod:      20,
			BollWidth:       2.0,
			NewsLimit:       10,
		},
		Calendar: Calendar{
			Country: "US",
		},
		Briefing: Briefing{
			Weekday:    int(time.Monday),
			WeeklyHour: 8,
			DailyHour:  8,
		},
		Metrics: Metrics{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors. A failure here is the
// one condition under which the process refuses to start.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("telegram bot_token is required"))
	}
	if c.Telegram.ChatID == 0 {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("telegram chat_id is required"))
	}
	if c.Engine.Interval < time.Second {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine interval must be at least 1s, got %s", c.Engine.Interval))
	}
	if c.Engine.Workers < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine workers must be positive, got %d", c.Engine.Workers))
	}
	if c.Rules.PriceTriggerPct <= 0 || c.Rules.PriceRearmPct <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("price thresholds must be positive"))
	}
	if c.Rules.RSIOversold >= c.Rules.RSINeutralLow ||
		c.Rules.RSINeutralLow >= c.Rules.RSINeutralHigh ||
		c.Rules.RSINeutralHigh >= c.Rules.RSIOverbought {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rsi bands must satisfy oversold < neutral_low < neutral_high < overbought"))
	}
	if c.Rules.MAFast >= c.Rules.MASlow {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ma_fast must be shorter than ma_slow, got %d/%d", c.Rules.MAFast, c.Rules.MASlow))
	}
	if wd := c.Briefing.Weekday; wd < 0 || wd > 6 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("briefing weekday must be 0-6, got %d", wd))
	}
	return nil
}
