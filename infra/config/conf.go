package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port               string
	APIKey             string
	Environment        string
	OpenSearchURL      string
	OpenSearchUser     string
	OpenSearchPass     string
	EnableLogging      bool
	LoggingLevel       string
	ProfileDBPath      string
	ServicesConfigFile string
}

var (
	instance          *Config
	instanceOnce      sync.Once
	appConfigInstance *AppConfig
	appConfigMu       sync.Mutex
)

func App() *Config {
	instanceOnce.Do(func() {
		v := validator.New()
		// report json field names so errors line up with the config keys users write
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		instance = &Config{Validator: v}
	})
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	appConfigMu.Lock()
	defer appConfigMu.Unlock()

	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:               GetEnv("APP_PORT", "9999"),
			APIKey:             GetEnv("API_KEY", ""),
			Environment:        GetEnv("ENVIRONMENT", "development"),
			OpenSearchURL:      GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser:     GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass:     GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableLogging:      GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
			LoggingLevel:       GetEnv("LOGGING_LEVEL", "info"),
			ProfileDBPath:      GetEnv("PROFILE_DB_PATH", "./data/profiles.db"),
			ServicesConfigFile: GetEnv("UNIPAY_CONFIG_FILE", ""),
		}
	}
	return appConfigInstance
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
