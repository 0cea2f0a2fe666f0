package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Events   EventsConfig   `mapstructure:"events" validate:"required"`
	Chat     ChatConfig     `mapstructure:"chat" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL          string `mapstructure:"url" validate:"required_if=Driver postgres"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"gt=0,lte=1440"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gtfield=TokenLifetimeMinutes"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	Issuer                      string `mapstructure:"issuer" validate:"required"`
	Audience                    string `mapstructure:"audience" validate:"required"`
}

// EventsConfig controls asynchronous event delivery.
type EventsConfig struct {
	QueueSize             int        `mapstructure:"queue_size" validate:"gt=0"`
	WorkerCount           int        `mapstructure:"worker_count" validate:"gt=0"`
	WebhookURL            string     `mapstructure:"webhook_url" validate:"omitempty,url"`
	WebhookSecret         string     `mapstructure:"webhook_secret"`
	WebhookTimeoutSeconds int        `mapstructure:"webhook_timeout_seconds" validate:"gt=0"`
	AMQP                  AMQPConfig `mapstructure:"amqp"`
}

// AMQPConfig configures the message broker sink.
type AMQPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url" validate:"required_if=Enabled true"`
	Exchange string `mapstructure:"exchange" validate:"required"`
}

// ChatConfig tunes the conversation sessions.
type ChatConfig struct {
	SendBuffer          int   `mapstructure:"send_buffer" validate:"gt=0"`
	WriteTimeoutSeconds int   `mapstructure:"write_timeout_seconds" validate:"gt=0"`
	PongTimeoutSeconds  int   `mapstructure:"pong_timeout_seconds" validate:"gt=0"`
	MaxMessageBytes     int64 `mapstructure:"max_message_bytes" validate:"gt=0"`
}

// TokenLifetime returns the access token lifetime.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// WebhookTimeout returns the per-delivery webhook timeout.
func (c EventsConfig) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

// WriteTimeout returns the per-frame write deadline.
func (c ChatConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// PongTimeout returns how long a session may stay silent.
func (c ChatConfig) PongTimeout() time.Duration {
	return time.Duration(c.PongTimeoutSeconds) * time.Second
}
