package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	sharedConfig "github.com/closeio/authalligator/internal/shared/config"
)

type Config struct {
	Server        sharedConfig.ServerConfig        `mapstructure:"server"`
	Logger        sharedConfig.LoggerConfig        `mapstructure:"logger"`
	AuthAlligator sharedConfig.AuthAlligatorConfig `mapstructure:"authalligator"`
	Database      sharedConfig.DatabaseConfig      `mapstructure:"database"`
	Redis         sharedConfig.RedisConfig         `mapstructure:"redis"`
	OAuth         sharedConfig.OAuthConfig         `mapstructure:"oauth"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml (or configFile when given) and
// AUTHALLIGATOR_* environment variables. A missing default config file is not
// an error; everything can come from the environment.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
	}

	v.SetEnvPrefix("AUTHALLIGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateClient checks the settings every command needs to reach the service.
func (c *Config) ValidateClient() error {
	if err := validate.Struct(&c.AuthAlligator); err != nil {
		return fmt.Errorf("invalid authalligator config: %w", err)
	}
	if err := validate.Struct(&c.Logger); err != nil {
		return fmt.Errorf("invalid logger config: %w", err)
	}
	return nil
}

// ValidateServer checks everything the account-link server needs.
func (c *Config) ValidateServer() error {
	if err := c.ValidateClient(); err != nil {
		return err
	}
	if err := validate.Struct(&c.Server); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if err := validate.Struct(&c.Database); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	if err := validate.Struct(&c.OAuth); err != nil {
		return fmt.Errorf("invalid oauth config: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.api_token", "")
	v.SetDefault("server.oauth_rate_limit", 30)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stderr")

	// AuthAlligator defaults (service_url and token must be configured)
	v.SetDefault("authalligator.service_url", "")
	v.SetDefault("authalligator.token", "")
	v.SetDefault("authalligator.timeout_seconds", 10)
	v.SetDefault("authalligator.max_retries", 1)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "authalligator.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "authalligator")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 60)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// OAuth defaults (empty by default, must be configured per provider)
	for _, provider := range []string{"google", "microsoft", "zoom", "calendly"} {
		v.SetDefault("oauth."+provider+".client_id", "")
		v.SetDefault("oauth."+provider+".client_secret", "")
		v.SetDefault("oauth."+provider+".scopes", []string{})
	}
	v.SetDefault("oauth.microsoft.tenant", "common")
	v.SetDefault("oauth.state_ttl_minutes", 10)
}
