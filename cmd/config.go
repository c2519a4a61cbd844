package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"crew-radar/internal/fetcher"
	"crew-radar/internal/notifier"
	"crew-radar/internal/scheduler"
	"crew-radar/internal/scraper"
	"crew-radar/internal/storage"
	"crew-radar/internal/subscription"
)

// AppConfig 应用配置。
type AppConfig struct {
	Server       ServerConfig            `yaml:"server"`
	Database     storage.Config          `yaml:"database"`
	Scraper      ScraperConfig           `yaml:"scraper"`
	Sources      SourcesConfig           `yaml:"sources"`
	Scheduler    scheduler.Config        `yaml:"scheduler"`
	Redis        RedisConfig             `yaml:"redis"`
	Email        notifier.EmailConfig    `yaml:"email"`
	Telegram     notifier.TelegramConfig `yaml:"telegram"`
	Subscription subscription.Config     `yaml:"subscription"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ScraperConfig 编排参数，时长为 Go duration 字符串。
type ScraperConfig struct {
	MaxPages          int    `yaml:"max_pages"`
	PageTimeout       string `yaml:"page_timeout"`
	DetailTimeout     string `yaml:"detail_timeout"`
	DetailConcurrency int    `yaml:"detail_concurrency"`
	FetchDetails      *bool  `yaml:"fetch_details"`
	PageDelay         string `yaml:"page_delay"`
	SourceDelay       string `yaml:"source_delay"`
}

// SourcesConfig 各来源开关与覆盖项。
type SourcesConfig struct {
	Yotspot    fetcher.Config `yaml:"yotspot"`
	Daywork123 fetcher.Config `yaml:"daywork123"`
	MeridianGo fetcher.Config `yaml:"meridian_go"`
}

type RedisConfig struct {
	URL     string `yaml:"url"`
	LockTTL string `yaml:"lock_ttl"`
}

// loadConfig 依次加载 .env、YAML 文件与环境变量覆盖。缺失的文件不视为错误。
func loadConfig(path, envFile string) (AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = "config.yaml"
	}

	var cfg AppConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("config file %s not found, using defaults", path)
	case err != nil:
		return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Email.Password, "SMTP_PASSWORD")
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.Telegram.ChatID = id
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// orchestratorConfig 将配置转换为编排参数，非法时长退回默认值。
func (c ScraperConfig) orchestratorConfig() scraper.Config {
	d := scraper.DefaultConfig()
	out := scraper.Config{
		MaxPages:          c.MaxPages,
		DetailConcurrency: c.DetailConcurrency,
		FetchDetails:      d.FetchDetails,
		PageTimeout:       parseDuration("page_timeout", c.PageTimeout, d.PageTimeout),
		DetailTimeout:     parseDuration("detail_timeout", c.DetailTimeout, d.DetailTimeout),
		PageDelay:         parseDuration("page_delay", c.PageDelay, d.PageDelay),
		SourceDelay:       parseDuration("source_delay", c.SourceDelay, d.SourceDelay),
	}
	if c.FetchDetails != nil {
		out.FetchDetails = *c.FetchDetails
	}
	return out
}

func parseDuration(name, value string, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Printf("invalid %s=%q, using %s", name, value, fallback)
		return fallback
	}
	return d
}
