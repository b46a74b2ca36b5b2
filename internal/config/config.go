package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type ChatConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	APIKey       string `mapstructure:"api_key"`
	MaxTurns     int    `mapstructure:"max_turns"`
	DefaultRoute string `mapstructure:"default_route"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type PresetsConfig struct {
	Dir string `mapstructure:"dir"`
}

type Config struct {
	Chat    ChatConfig    `mapstructure:"chat"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Presets PresetsConfig `mapstructure:"presets"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("rentdesk")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.rentdesk")

	v.SetDefault("chat.endpoint", "http://localhost:8765/v1/chat")
	v.SetDefault("chat.max_turns", 8)
	v.SetDefault("chat.default_route", "/bookings")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".rentdesk", "rentdesk.db"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Expand environment variables in the API key
	if key := cfg.Chat.APIKey; strings.HasPrefix(key, "${") && strings.HasSuffix(key, "}") {
		cfg.Chat.APIKey = os.Getenv(key[2 : len(key)-1])
	}

	return &cfg, nil
}
