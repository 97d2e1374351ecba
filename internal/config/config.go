package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Mode selects which storage backend the factory builds.
type Mode string

const (
	ModeFile   Mode = "file"
	ModeHot    Mode = "hot"
	ModeWarm   Mode = "warm"
	ModeCool   Mode = "cool"
	ModeHybrid Mode = "hybrid"
)

// Valid reports whether the mode is one of the enumerated values.
func (m Mode) Valid() bool {
	switch m {
	case ModeFile, ModeHot, ModeWarm, ModeCool, ModeHybrid:
		return true
	}
	return false
}

// RedisConfig holds HOT tier connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	DB       int
	Password string
	PoolSize int
}

// Addr renders the host:port dial address.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MySQLConfig holds WARM tier connection settings.
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN renders a go-sql-driver connection string.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// ClickHouseConfig holds COOL tier connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Addr renders the host:port dial address.
func (c ClickHouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Config holds application configuration
type Config struct {
	Mode               Mode
	EnableDualWrite    bool
	EnableAutoFallback bool

	CachePath string // file tier root

	Redis      RedisConfig
	MySQL      MySQLConfig
	ClickHouse ClickHouseConfig

	LogLevel string
	LogFile  string
	DevMode  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Mode:               Mode(getEnv("DATA_STORE_MODE", string(ModeFile))),
		EnableDualWrite:    getEnvAsBool("ENABLE_DUAL_WRITE", true),
		EnableAutoFallback: getEnvAsBool("ENABLE_AUTO_FALLBACK", true),
		CachePath:          getEnv("CACHE_PATH", "./_cache"),
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Password: getEnv("REDIS_PASSWORD", ""),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 50),
		},
		MySQL: MySQLConfig{
			Host:     getEnv("MYSQL_HOST", "localhost"),
			Port:     getEnvAsInt("MYSQL_PORT", 3306),
			User:     getEnv("MYSQL_USER", "root"),
			Password: getEnv("MYSQL_PASSWORD", ""),
			Database: getEnv("MYSQL_DATABASE", "silverquant"),
		},
		ClickHouse: ClickHouseConfig{
			Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
			Port:     getEnvAsInt("CLICKHOUSE_PORT", 9000),
			User:     getEnv("CLICKHOUSE_USER", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			Database: getEnv("CLICKHOUSE_DATABASE", "silverquant"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
		DevMode:  getEnvAsBool("DEV_MODE", false),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the settings needed by the selected mode are present.
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("DATA_STORE_MODE %q is not one of file, hot, warm, cool, hybrid", c.Mode)
	}

	needsFile := c.Mode == ModeFile || c.Mode == ModeHybrid
	needsRedis := c.Mode == ModeHot || c.Mode == ModeHybrid
	needsMySQL := c.Mode == ModeWarm || c.Mode == ModeHybrid
	needsClick := c.Mode == ModeCool || c.Mode == ModeHybrid

	if needsFile && c.CachePath == "" {
		return fmt.Errorf("CACHE_PATH is required in %s mode", c.Mode)
	}
	if needsRedis && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required in %s mode", c.Mode)
	}
	if needsMySQL {
		if c.MySQL.Host == "" {
			return fmt.Errorf("MYSQL_HOST is required in %s mode", c.Mode)
		}
		if c.MySQL.User == "" {
			return fmt.Errorf("MYSQL_USER is required in %s mode", c.Mode)
		}
	}
	if needsClick && c.ClickHouse.Host == "" {
		return fmt.Errorf("CLICKHOUSE_HOST is required in %s mode", c.Mode)
	}

	return nil
}

// Summary renders the effective settings with credentials redacted, one
// "key=value" token per entry.
func (c *Config) Summary() string {
	entries := []string{
		fmt.Sprintf("mode=%s", c.Mode),
		fmt.Sprintf("dual_write=%t", c.EnableDualWrite),
		fmt.Sprintf("auto_fallback=%t", c.EnableAutoFallback),
		fmt.Sprintf("cache_path=%s", c.CachePath),
		fmt.Sprintf("redis=%s/db%d", c.Redis.Addr(), c.Redis.DB),
		fmt.Sprintf("redis_password=%s", redact(c.Redis.Password)),
		fmt.Sprintf("mysql=%s@%s:%d/%s", c.MySQL.User, c.MySQL.Host, c.MySQL.Port, c.MySQL.Database),
		fmt.Sprintf("mysql_password=%s", redact(c.MySQL.Password)),
		fmt.Sprintf("clickhouse=%s@%s/%s", c.ClickHouse.User, c.ClickHouse.Addr(), c.ClickHouse.Database),
		fmt.Sprintf("clickhouse_password=%s", redact(c.ClickHouse.Password)),
		fmt.Sprintf("log_level=%s", c.LogLevel),
	}
	return strings.Join(entries, " ")
}

func redact(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "****"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
