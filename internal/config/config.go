package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken       string         `yaml:"discord_token"`
	DatabasePath       string         `yaml:"database_path"`
	LogLevel           string         `yaml:"log_level"`
	MaxMentions        int            `yaml:"max_mentions"`
	AllowedLinkChannel string         `yaml:"allowed_link_channel"`
	LinkWhitelist      []string       `yaml:"link_whitelist"`
	AuditRetentionDays int            `yaml:"audit_retention_days"`
	Health             HealthConfig   `yaml:"health"`
	Storage            StorageConfig  `yaml:"storage"`
	Spam               SpamConfig     `yaml:"spam"`
	Redis              RedisConfig    `yaml:"redis"`
	Leveling           LevelingConfig `yaml:"leveling"`
	Raid               RaidConfig     `yaml:"raid"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StorageConfig selects where the JSON policy and logging documents live.
// Backend is one of json, sqlite or postgres.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type SpamConfig struct {
	WindowSeconds        int `yaml:"window_seconds"`
	MaxLinks             int `yaml:"max_links"`
	NewAccountMaxLinks   int `yaml:"new_account_max_links"`
	NewAccountDays       int `yaml:"new_account_days"`
	RapidMessages        int `yaml:"rapid_messages"`
	RapidWindowSeconds   int `yaml:"rapid_window_seconds"`
	DupWindowSeconds     int `yaml:"dup_window_seconds"`
	DupChannelThreshold  int `yaml:"dup_channel_threshold"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LevelingConfig struct {
	Enabled         bool `yaml:"enabled"`
	CooldownSeconds int  `yaml:"cooldown_seconds"`
	MinXP           int  `yaml:"min_xp"`
	MaxXP           int  `yaml:"max_xp"`
	BaseXP          int  `yaml:"base_xp"`
}

type RaidConfig struct {
	Joins         int `yaml:"joins"`
	WindowSeconds int `yaml:"window_seconds"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:       "data/guardian.db",
		LogLevel:           "info",
		MaxMentions:        5,
		AuditRetentionDays: 30,
		Health:             HealthConfig{Enabled: false, Addr: ":8080"},
		Storage:            StorageConfig{Backend: "json", DataDir: "data"},
		Spam: SpamConfig{
			WindowSeconds:        60,
			MaxLinks:             3,
			NewAccountMaxLinks:   1,
			NewAccountDays:       7,
			RapidMessages:        3,
			RapidWindowSeconds:   10,
			DupWindowSeconds:     300,
			DupChannelThreshold:  3,
			SweepIntervalSeconds: 300,
		},
		Redis:    RedisConfig{Enabled: false, Addr: "localhost:6379"},
		Leveling: LevelingConfig{Enabled: true, CooldownSeconds: 120, MinXP: 5, MaxXP: 15, BaseXP: 500},
		Raid:     RaidConfig{Joins: 8, WindowSeconds: 10},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	cfg.Storage.Backend = normalizeBackend(cfg.Storage.Backend)
	if cfg.Storage.Backend == "postgres" && cfg.Storage.PostgresDSN == "" {
		return Config{}, errors.New("POSTGRES_DSN is required for the postgres storage backend")
	}

	return cfg, nil
}

// DataFile resolves a document name inside the configured data directory.
func (c Config) DataFile(name string) string {
	return filepath.Join(c.Storage.DataDir, name)
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.MaxMentions = envInt("MAX_MENTIONS", cfg.MaxMentions)
	cfg.AllowedLinkChannel = envString("ALLOWED_LINK_CHANNEL", cfg.AllowedLinkChannel)
	cfg.AuditRetentionDays = envInt("AUDIT_RETENTION_DAYS", cfg.AuditRetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Storage.Backend = envString("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.DataDir = envString("DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.PostgresDSN = envString("POSTGRES_DSN", cfg.Storage.PostgresDSN)
	cfg.Spam.WindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.Spam.WindowSeconds)
	cfg.Spam.MaxLinks = envInt("SPAM_MAX_LINKS", cfg.Spam.MaxLinks)
	cfg.Spam.DupWindowSeconds = envInt("SPAM_DUP_WINDOW_SECONDS", cfg.Spam.DupWindowSeconds)
	cfg.Spam.DupChannelThreshold = envInt("SPAM_DUP_CHANNEL_THRESHOLD", cfg.Spam.DupChannelThreshold)
	cfg.Redis.Enabled = envBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = envString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)
	cfg.Leveling.Enabled = envBool("LEVELING_ENABLED", cfg.Leveling.Enabled)
	cfg.Raid.Joins = envInt("RAID_JOINS", cfg.Raid.Joins)
	cfg.Raid.WindowSeconds = envInt("RAID_WINDOW_SECONDS", cfg.Raid.WindowSeconds)
	if list := envString("LINK_WHITELIST", ""); list != "" {
		cfg.LinkWhitelist = splitList(list)
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeBackend(value string) string {
	switch strings.ToLower(value) {
	case "sqlite", "postgres":
		return strings.ToLower(value)
	default:
		return "json"
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
