// Package config loads and validates the relay configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath = "config.toml"
	DefaultHTTPAddr   = ":8080"
	DefaultPGHost     = "127.0.0.1"
	DefaultPGPort     = 5432
	DefaultPGUser     = "postgres"
	DefaultPGDatabase = "relay"
	DefaultPGSSLMode  = "disable"
	DefaultGraphAPI   = "https://graph.facebook.com/v21.0"
	DefaultModel      = "gpt-4o-mini"
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Postgres   PostgresConfig   `toml:"postgres"`
	WhatsApp   WhatsAppConfig   `toml:"whatsapp"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Completion CompletionConfig `toml:"completion"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type PostgresConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"required"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Database string `toml:"database" validate:"required"`
	SSLMode  string `toml:"sslmode"`
}

// DSN returns the connection string in URL form, usable with both
// pgxpool and golang-migrate (scheme supplied by the caller).
func (c PostgresConfig) DSN(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// WhatsAppConfig holds the Business API credentials. AppSecret keys the
// webhook body signature; VerifyToken answers the subscription handshake.
type WhatsAppConfig struct {
	PhoneNumberID string `toml:"phone_number_id" validate:"required"`
	AccessToken   string `toml:"access_token" validate:"required"`
	AppSecret     string `toml:"app_secret" validate:"required"`
	VerifyToken   string `toml:"verify_token" validate:"required"`
	GraphBaseURL  string `toml:"graph_base_url"`
}

// TelegramConfig holds the bot token and the secret token expected on
// webhook deliveries.
type TelegramConfig struct {
	BotToken      string `toml:"bot_token" validate:"required"`
	WebhookSecret string `toml:"webhook_secret" validate:"required"`
}

type CompletionConfig struct {
	APIKey         string `toml:"api_key" validate:"required"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Load reads the config file at path (or DefaultConfigPath if empty),
// applies defaults and validates required fields.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		WhatsApp: WhatsAppConfig{
			GraphBaseURL: DefaultGraphAPI,
		},
		Completion: CompletionConfig{
			Model:          DefaultModel,
			TimeoutSeconds: 60,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
