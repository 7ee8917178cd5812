package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"

	"github.com/mcdev12/pomogame/go/internal/socket"
)

const (
	DefaultConfigPath = "~/.config/pomogame/pomogame.yaml"
	DefaultPlayerPath = "player_data.toml"
	DefaultInterval   = time.Second
)

// Config holds the daemon's process-level settings.
type Config struct {
	ConfigPath  string
	PlayerPath  string
	SocketPath  string
	Quiet       bool
	Interval    time.Duration
	GatewayAddr string
	NatsURL     string
	LogLevel    zerolog.Level
}

// NewConfigFromEnv reads POMOGAME_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		ConfigPath:  expand(getEnv("POMOGAME_CONFIG", DefaultConfigPath)),
		PlayerPath:  expand(getEnv("POMOGAME_PLAYER", DefaultPlayerPath)),
		SocketPath:  socket.Path(),
		Quiet:       getEnvAsBool("POMOGAME_QUIET", false),
		Interval:    getEnvAsDuration("POMOGAME_INTERVAL", DefaultInterval),
		GatewayAddr: os.Getenv("POMOGAME_GATEWAY_ADDR"),
		NatsURL:     os.Getenv("NATS_URL"),
		LogLevel:    getEnvAsLevel("LOG_LEVEL", zerolog.InfoLevel),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvAsLevel(key string, fallback zerolog.Level) zerolog.Level {
	if v := os.Getenv(key); v != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			return lvl
		}
	}
	return fallback
}

func expand(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}
