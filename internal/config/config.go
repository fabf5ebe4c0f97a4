package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultCatalogName is the database that records every registered database.
const DefaultCatalogName = "local_json_db_collection"

// Config holds all server configuration
type Config struct {
	ServerPort    int    `validate:"min=1,max=65535"`
	TransportMode string `validate:"oneof=stdio sse"`
	LogLevel      string `validate:"oneof=debug info warn warning error"`
	MetricsAddr   string
	ToolTimeout   time.Duration `validate:"gt=0"`
	Store         StoreConfig
	DBConfig      DatabaseConfig
}

// StoreConfig selects and configures the document store backend
type StoreConfig struct {
	Backend      string `validate:"oneof=badger memory sql"`
	DataDir      string `validate:"required_if=Backend badger"`
	CatalogName  string `validate:"required"`
	AutoRegister bool
}

// DatabaseConfig holds the connection settings of the sql backend
type DatabaseConfig struct {
	Type     string `validate:"oneof=sqlite mysql postgres"`
	Host     string
	Port     int `validate:"min=0,max=65535"`
	User     string
	Password string
	Name     string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig loads the configuration from a .env file, if present, and
// environment variables. Values are not validated; callers apply their
// overrides and then call Validate.
func LoadConfig() (*Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("TOOL_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOOL_TIMEOUT: %w", err)
	}
	autoRegister, err := strconv.ParseBool(getEnv("AUTO_REGISTER", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_REGISTER: %w", err)
	}

	cfg := &Config{
		ServerPort:    port,
		TransportMode: strings.ToLower(getEnv("TRANSPORT_MODE", "stdio")),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		ToolTimeout:   timeout,
		Store: StoreConfig{
			Backend:      strings.ToLower(getEnv("STORE_BACKEND", "badger")),
			DataDir:      getEnv("DATA_DIR", "./data"),
			CatalogName:  getEnv("CATALOG_NAME", DefaultCatalogName),
			AutoRegister: autoRegister,
		},
		DBConfig: DatabaseConfig{
			Type:     strings.ToLower(getEnv("DB_TYPE", "sqlite")),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "jsondocs.db"),
		},
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
