package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const envPrefix = "COURSEHUB_"

type Config struct {
	Environment string `yaml:"environment"`
	Port        string `yaml:"port"`
	DBDriver    string `yaml:"db_driver"`
	DBDSN       string `yaml:"db_dsn"`
	Secret      string `yaml:"secret"`

	SessionTTL    time.Duration `yaml:"session_ttl"`
	SessionSweep  string        `yaml:"session_sweep"`
	SecureCookies bool          `yaml:"secure_cookies"`

	UploadDir         string   `yaml:"upload_dir"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
	StreamChunkSize   int      `yaml:"stream_chunk_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	VideoExtensions   []string `yaml:"video_extensions"`

	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
}

func Default() *Config {
	return &Config{
		Environment:       "development",
		Port:              "8080",
		DBDriver:          "sqlite3",
		DBDSN:             "coursehub.db",
		Secret:            "dev-secret-change-me",
		SessionTTL:        24 * time.Hour,
		SessionSweep:      "0 */15 * * * *",
		UploadDir:         "uploads",
		MaxUploadBytes:    16 * 1024 * 1024,
		StreamChunkSize:   1024,
		AllowedExtensions: []string{"txt", "pdf", "png", "jpg", "jpeg", "gif"},
		VideoExtensions:   []string{"mp4", "webm", "mov", "avi", "mkv"},
		CacheTTL:          10 * time.Minute,
		MetricsEnabled:    true,
	}
}

// Load reads filename over the defaults. A missing file is reported as an
// error wrapping os.ErrNotExist together with the usable defaults, so callers
// can log it and carry on.
func Load(filename string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		config.applyEnv()
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	config.applyEnv()
	return config, nil
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) applyEnv() {
	// PORT is honoured without prefix, as most hosting platforms set it.
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}

	overrides := map[string]*string{
		"ENV":            &c.Environment,
		"DB_DRIVER":      &c.DBDriver,
		"DB_DSN":         &c.DBDSN,
		"SECRET":         &c.Secret,
		"REDIS_ADDR":     &c.RedisAddr,
		"REDIS_PASSWORD": &c.RedisPassword,
		"UPLOAD_DIR":     &c.UploadDir,
	}
	for key, dst := range overrides {
		if value, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = value
		}
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("db_dsn is required")
	}
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	if c.IsProduction() && (len(c.Secret) < 32 || c.Secret == Default().Secret) {
		return errors.New("secret must be at least 32 characters in production")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.StreamChunkSize <= 0 {
		return errors.New("stream_chunk_size must be positive")
	}
	if c.UploadDir == "" {
		return errors.New("upload_dir is required")
	}
	return nil
}

// String masks the secrets so the config can be logged.
func (c *Config) String() string {
	redis := c.RedisAddr
	if redis == "" {
		redis = "disabled"
	}
	return fmt.Sprintf("Config{env: %s, port: %s, db: %s, uploads: %s, redis: %s, secret: ***}",
		c.Environment, c.Port, c.DBDriver, c.UploadDir, redis)
}

// Extensions lower-cases and strips dots, e.g. ".MP4" -> "mp4".
func Extensions(list []string) []string {
	out := make([]string, 0, len(list))
	for _, ext := range list {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}
