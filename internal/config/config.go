package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr    string          `yaml:"listen_addr"`
	LogLevel      string          `yaml:"log_level"`
	DatabasePath  string          `yaml:"database_path"`
	RetentionDays int             `yaml:"retention_days"`
	Discord       DiscordConfig   `yaml:"discord"`
	Companion     CompanionConfig `yaml:"companion"`
	Timeouts      TimeoutConfig   `yaml:"timeouts"`
	Retry         RetryConfig     `yaml:"retry"`
}

type DiscordConfig struct {
	APIBase         string `yaml:"api_base"`
	BotToken        string `yaml:"bot_token"`
	MemberPageLimit int    `yaml:"member_page_limit"`
}

type CompanionConfig struct {
	Candidates           []string `yaml:"candidates"`
	TunnelMarkers        []string `yaml:"tunnel_markers"`
	ProbeIntervalSeconds int      `yaml:"probe_interval_seconds"`
	CapabilityTTLSeconds int      `yaml:"capability_ttl_seconds"`
}

// TimeoutConfig centralizes every outbound deadline so call sites never
// hard-code their own.
type TimeoutConfig struct {
	ProbeSeconds      int `yaml:"probe_seconds"`
	CapabilitySeconds int `yaml:"capability_seconds"`
	UpstreamSeconds   int `yaml:"upstream_seconds"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:    ":3001",
		LogLevel:      "info",
		DatabasePath:  "/data/skyfall.db",
		RetentionDays: 90,
		Discord: DiscordConfig{
			APIBase:         "https://discord.com/api/v10",
			MemberPageLimit: 1000,
		},
		Companion: CompanionConfig{
			TunnelMarkers:        []string{"trycloudflare.com", "ngrok"},
			ProbeIntervalSeconds: 60,
			CapabilityTTLSeconds: 30,
		},
		Timeouts: TimeoutConfig{
			ProbeSeconds:      8,
			CapabilitySeconds: 5,
			UpstreamSeconds:   10,
		},
		Retry: RetryConfig{MaxAttempts: 3},
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
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.Discord.BotToken == "" {
		return Config{}, errors.New("DISCORD_BOT_TOKEN is required")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Discord.MemberPageLimit <= 0 || cfg.Discord.MemberPageLimit > 1000 {
		cfg.Discord.MemberPageLimit = 1000
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Discord.APIBase = envString("DISCORD_API_BASE", cfg.Discord.APIBase)
	cfg.Discord.BotToken = envString("DISCORD_BOT_TOKEN", cfg.Discord.BotToken)
	cfg.Discord.MemberPageLimit = envInt("MEMBER_PAGE_LIMIT", cfg.Discord.MemberPageLimit)
	cfg.Companion.Candidates = envList("COMPANION_CANDIDATES", cfg.Companion.Candidates)
	cfg.Companion.TunnelMarkers = envList("COMPANION_TUNNEL_MARKERS", cfg.Companion.TunnelMarkers)
	cfg.Companion.ProbeIntervalSeconds = envInt("PROBE_INTERVAL_SECONDS", cfg.Companion.ProbeIntervalSeconds)
	cfg.Companion.CapabilityTTLSeconds = envInt("CAPABILITY_TTL_SECONDS", cfg.Companion.CapabilityTTLSeconds)
	cfg.Timeouts.ProbeSeconds = envInt("PROBE_TIMEOUT_SECONDS", cfg.Timeouts.ProbeSeconds)
	cfg.Timeouts.CapabilitySeconds = envInt("CAPABILITY_TIMEOUT_SECONDS", cfg.Timeouts.CapabilitySeconds)
	cfg.Timeouts.UpstreamSeconds = envInt("UPSTREAM_TIMEOUT_SECONDS", cfg.Timeouts.UpstreamSeconds)
	cfg.Retry.MaxAttempts = envInt("RETRY_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
}

func (t TimeoutConfig) Probe() time.Duration {
	return time.Duration(t.ProbeSeconds) * time.Second
}

func (t TimeoutConfig) Capability() time.Duration {
	return time.Duration(t.CapabilitySeconds) * time.Second
}

func (t TimeoutConfig) Upstream() time.Duration {
	return time.Duration(t.UpstreamSeconds) * time.Second
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

func envList(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
