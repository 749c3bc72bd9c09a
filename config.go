package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"hotel-booking/database"
)

const defaultJWTSecret = "hotel-booking-secret-key" // 默认密钥，生产环境应使用环境变量

type Config struct {
	ServerPort    string        `yaml:"server_port"`
	GinMode       string        `yaml:"gin_mode"`
	DBDriver      string        `yaml:"db_driver"`
	DatabasePath  string        `yaml:"database_path"`
	DatabaseURL   string        `yaml:"database_url"`
	MongoDatabase string        `yaml:"mongo_database"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	RedisURL      string        `yaml:"redis_url"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	AdminUsername string        `yaml:"admin_username"`
	AdminPassword string        `yaml:"admin_password"`
	AdminEmail    string        `yaml:"admin_email"`
	SeedDemo      bool          `yaml:"seed_demo"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

func defaultConfig() *Config {
	return &Config{
		ServerPort:    ":8800",
		GinMode:       "release",
		DBDriver:      database.DriverSQLite,
		DatabasePath:  "./hotel.db",
		MongoDatabase: "booking",
		JWTSecret:     defaultJWTSecret,
		LockTTL:       5 * time.Second,
		AdminUsername: "admin",
		AdminPassword: "password",
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// LoadConfig applies defaults, then the optional CONFIG_FILE, then the
// environment (including a .env file in the working directory).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"driver": cfg.DBDriver,
		"port":   cfg.ServerPort,
		"redis":  cfg.RedisURL != "",
	}).Info("配置加载完成")
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.GinMode, "GIN_MODE")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.MongoDatabase, "MONGO_DATABASE")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.AdminUsername, "ADMIN_USERNAME")
	setString(&c.AdminPassword, "ADMIN_PASSWORD")
	setString(&c.AdminEmail, "ADMIN_EMAIL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	for _, d := range []struct {
		dst *time.Duration
		key string
	}{{&c.TokenTTL, "TOKEN_TTL"}, {&c.LockTTL, "LOCK_TTL"}} {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}
	for _, b := range []struct {
		dst *bool
		key string
	}{{&c.CookieSecure, "COOKIE_SECURE"}, {&c.SeedDemo, "SEED_DEMO"}} {
		if v := os.Getenv(b.key); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", b.key, err)
			}
			*b.dst = parsed
		}
	}
	return nil
}

// Verify filters out evident errors.
func (c *Config) Verify() error {
	switch c.DBDriver {
	case database.DriverSQLite:
		if c.DatabasePath == "" {
			return errors.New("config: DATABASE_PATH is required for sqlite")
		}
	case database.DriverPostgres, database.DriverMongo:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for %s", c.DBDriver)
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must not be empty")
	}
	if c.GinMode == "release" && c.JWTSecret == defaultJWTSecret {
		logrus.Warn("JWT_SECRET is the built-in default")
	}
	if c.TokenTTL < 0 || c.LockTTL < 0 {
		return errors.New("config: durations must not be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
