// Package configs loads the server configuration from defaults, an optional
// config file, a .env file and DOODLEKONG_* environment variables.
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	GinMode        string        `mapstructure:"gin_mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

type SessionConfig struct {
	Key        string        `mapstructure:"key"`
	CookieName string        `mapstructure:"cookie_name"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	Secure     bool          `mapstructure:"secure"`
}

// GameConfig holds the room timings and limits.
type GameConfig struct {
	MaxRoomSize       int           `mapstructure:"max_room_size"`
	WaitingForStart   time.Duration `mapstructure:"waiting_for_start"`
	NewRound          time.Duration `mapstructure:"new_round"`
	GameRunning       time.Duration `mapstructure:"game_running"`
	ShowWord          time.Duration `mapstructure:"show_word"`
	GracePeriod       time.Duration `mapstructure:"grace_period"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ChatRate          float64       `mapstructure:"chat_rate"`
	ChatBurst         int           `mapstructure:"chat_burst"`
	SendBuffer        int           `mapstructure:"send_buffer"`
}

type WordsConfig struct {
	// Source is "embedded" or "postgres".
	Source      string `mapstructure:"source"`
	PostgresURL string `mapstructure:"postgres_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Game    GameConfig    `mapstructure:"game"`
	Words   WordsConfig   `mapstructure:"words"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate returns every violation at once.
func (c Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr must not be empty")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, "server.allowed_origins must not be empty")
	}
	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.GinMode] {
		errs = append(errs, fmt.Sprintf("server.gin_mode must be one of [debug, release, test], got %q", c.Server.GinMode))
	}

	if c.Session.Key == "" {
		errs = append(errs, "session.key must not be empty")
	}
	if c.Session.CookieName == "" {
		errs = append(errs, "session.cookie_name must not be empty")
	}
	if c.Session.MaxAge <= 0 {
		errs = append(errs, "session.max_age must be positive")
	}

	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}

	switch c.Words.Source {
	case "embedded":
	case "postgres":
		if c.Words.PostgresURL == "" {
			errs = append(errs, "words.postgres_url must be set when words.source is postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("words.source must be one of [embedded, postgres], got %q", c.Words.Source))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be one of [json, console], got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.MaxRoomSize < 2 {
		errs = append(errs, fmt.Sprintf("game.max_room_size must be >= 2, got %d", g.MaxRoomSize))
	}
	durations := []struct {
		key   string
		value time.Duration
	}{
		{"game.waiting_for_start", g.WaitingForStart},
		{"game.new_round", g.NewRound},
		{"game.game_running", g.GameRunning},
		{"game.show_word", g.ShowWord},
		{"game.grace_period", g.GracePeriod},
	}
	for _, d := range durations {
		if d.value < time.Second {
			errs = append(errs, fmt.Sprintf("%s must be at least 1s, got %s", d.key, d.value))
		}
	}
	if g.HeartbeatInterval < 0 {
		errs = append(errs, "game.heartbeat_interval must not be negative")
	}
	if g.ChatRate <= 0 {
		errs = append(errs, "game.chat_rate must be positive")
	}
	if g.ChatBurst < 1 {
		errs = append(errs, "game.chat_burst must be >= 1")
	}
	if g.SendBuffer < 1 {
		errs = append(errs, "game.send_buffer must be >= 1")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads .env (if present), then path (if not empty), then environment
// variables with the DOODLEKONG_ prefix, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("DOODLEKONG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already configured viper instance.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.read_timeout", "1m")
	v.SetDefault("server.ping_interval", "30s")
	v.SetDefault("server.shutdown_grace", "10s")

	v.SetDefault("session.key", "")
	v.SetDefault("session.cookie_name", "SESSION")
	v.SetDefault("session.max_age", "168h")
	v.SetDefault("session.secure", true)

	v.SetDefault("game.max_room_size", 8)
	v.SetDefault("game.waiting_for_start", "10s")
	v.SetDefault("game.new_round", "20s")
	v.SetDefault("game.game_running", "60s")
	v.SetDefault("game.show_word", "10s")
	v.SetDefault("game.grace_period", "60s")
	v.SetDefault("game.heartbeat_interval", "3s")
	v.SetDefault("game.chat_rate", 1.0)
	v.SetDefault("game.chat_burst", 5)
	v.SetDefault("game.send_buffer", 256)

	v.SetDefault("words.source", "embedded")
	v.SetDefault("words.postgres_url", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
