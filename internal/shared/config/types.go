package config

import (
	"fmt"
	"strings"
	"time"
)

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	Mode    string `mapstructure:"mode" validate:"oneof=debug release test"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// APIToken protects the /accounts routes when set.
	APIToken string `mapstructure:"api_token"`
	// OAuthRateLimit caps /oauth requests per client IP and minute; 0 disables it.
	OAuthRateLimit int `mapstructure:"oauth_rate_limit" validate:"min=0"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CallbackURL is the redirect URI registered with providers for p.
func (s *ServerConfig) CallbackURL(provider string) string {
	return fmt.Sprintf("%s/oauth/%s/callback", strings.TrimRight(s.BaseURL, "/"), strings.ToLower(provider))
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=console json"`
	OutputPath string `mapstructure:"output_path"`
}

type AuthAlligatorConfig struct {
	ServiceURL     string `mapstructure:"service_url" validate:"required,url"`
	Token          string `mapstructure:"token" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"min=1"`
	MaxRetries     uint   `mapstructure:"max_retries"`
}

func (a *AuthAlligatorConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "mysql".
	Driver          string `mapstructure:"driver" validate:"oneof=sqlite mysql"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ProviderOAuthConfig is the OAuth application registered with one provider.
type ProviderOAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
	// Tenant is only used by Microsoft; defaults to "common".
	Tenant string `mapstructure:"tenant"`
}

type OAuthConfig struct {
	Google          ProviderOAuthConfig `mapstructure:"google"`
	Microsoft       ProviderOAuthConfig `mapstructure:"microsoft"`
	Zoom            ProviderOAuthConfig `mapstructure:"zoom"`
	Calendly        ProviderOAuthConfig `mapstructure:"calendly"`
	StateTTLMinutes int                 `mapstructure:"state_ttl_minutes" validate:"min=1"`
}

func (o *OAuthConfig) StateTTL() time.Duration {
	return time.Duration(o.StateTTLMinutes) * time.Minute
}
