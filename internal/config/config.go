package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Index store kinds
const (
	IndexStoreFile     = "file"
	IndexStorePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	CoinLore CoinLoreConfig
	Index    IndexConfig
	Refresh  RefreshConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// CoinLoreConfig holds upstream price service configuration
type CoinLoreConfig struct {
	BaseURL  string
	PageSize int
	Timeout  time.Duration
}

// IndexConfig selects where the symbol index is persisted
type IndexConfig struct {
	Store    string
	FilePath string
}

// RefreshConfig holds background price refresh configuration
type RefreshConfig struct {
	Interval time.Duration
}

// RedisConfig holds the price cache configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		CoinLore: CoinLoreConfig{
			BaseURL:  getEnv("COINLORE_BASE_URL", "https://api.coinlore.net/api"),
			PageSize: getEnvInt("COINLORE_PAGE_SIZE", 100),
			Timeout:  getEnvDuration("COINLORE_TIMEOUT", 30*time.Second),
		},
		Index: IndexConfig{
			Store:    strings.ToLower(getEnv("INDEX_STORE", IndexStoreFile)),
			FilePath: getEnv("INDEX_FILE_PATH", "mapping/symbol_to_id.json"),
		},
		Refresh: RefreshConfig{
			Interval: getEnvDuration("PRICE_REFRESH_INTERVAL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "coinprice"),
			TTL:      getEnvDuration("REDIS_PRICE_TTL", time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "portfolio-events"),
			GroupID: getEnv("KAFKA_GROUP_ID", defaultGroupID()),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "cryptoportfolio"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// defaultGroupID is unique per host so every instance receives every event
func defaultGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "crypto-portfolio-service"
	}
	return "crypto-portfolio-service-" + host
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "5m"); a bare integer is read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
