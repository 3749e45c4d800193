package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Socket struct {
		URL string `yaml:"url"`
	} `yaml:"socket"`
	Identity struct {
		// Backend is one of "file", "redis" or "memory".
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		Profile string `yaml:"profile"`
	} `yaml:"identity"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Preview struct {
		Port   string `yaml:"port"`
		PinTTL string `yaml:"pin_ttl"`
	} `yaml:"preview"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

const (
	DefaultAPIURL    = "http://localhost:3001/api"
	DefaultSocketURL = "ws://localhost:3001/ws"
	DefaultPort      = "3001"
)

// Load reads YAML config from path. A missing file yields the defaults.
// Values from the environment (and a .env file, if present) override the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// .env is optional.
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"QUIZBLITZ_API_URL":          &cfg.API.URL,
		"QUIZBLITZ_SOCKET_URL":       &cfg.Socket.URL,
		"QUIZBLITZ_IDENTITY_BACKEND": &cfg.Identity.Backend,
		"QUIZBLITZ_IDENTITY_PATH":    &cfg.Identity.Path,
		"QUIZBLITZ_PROFILE":          &cfg.Identity.Profile,
		"QUIZBLITZ_LOG_LEVEL":        &cfg.Log.Level,
		"REDIS_ADDR":                 &cfg.Redis.Addr,
		"REDIS_PASSWORD":             &cfg.Redis.Password,
		"PORT":                       &cfg.Preview.Port,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.URL == "" {
		cfg.API.URL = DefaultAPIURL
	}
	if cfg.Socket.URL == "" {
		cfg.Socket.URL = DefaultSocketURL
	}
	if cfg.Identity.Backend == "" {
		cfg.Identity.Backend = "file"
	}
	if cfg.Identity.Profile == "" {
		cfg.Identity.Profile = "default"
	}
	if cfg.Preview.Port == "" {
		cfg.Preview.Port = DefaultPort
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Duration parses a duration string or returns the fallback if empty or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
