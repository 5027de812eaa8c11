package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all user-facing configuration for chronomap.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Server   ServerConfig   `toml:"server"`
	Playback PlaybackConfig `toml:"playback"`
	Log      LogConfig      `toml:"log"`
}

// DataConfig selects where empire data comes from. An empty Dir and BaseURL
// mean the embedded dataset.
type DataConfig struct {
	Dir       string  `toml:"dir"`
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type PlaybackConfig struct {
	Speed     float64 `toml:"speed"`
	MinYear   int     `toml:"min_year"`
	MaxYear   int     `toml:"max_year"`
	FrameRate int     `toml:"frame_rate"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   bool   `toml:"compress"`
	Dev        bool   `toml:"dev"`
}

// Defaults returns a Config populated with built-in default values.
func Defaults() *Config {
	return &Config{
		Data:     DataConfig{RateLimit: 5.0},
		Server:   ServerConfig{Host: "localhost", Port: 8080},
		Playback: PlaybackConfig{Speed: 50, MinYear: -3000, MaxYear: 2000, FrameRate: 60},
		Log:      LogConfig{Level: "info", MaxSize: 10, MaxBackups: 3, MaxAge: 28},
	}
}

// Load reads a TOML config file. If the file does not exist, built-in
// defaults are returned without error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
