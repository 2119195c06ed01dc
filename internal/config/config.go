// Package config assembles the service configuration. Sources are applied
// lowest to highest precedence: built-in defaults, an optional YAML file,
// the environment (including a .env file), then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	defaultAddr            = ":8080"
	defaultDatabaseURL     = "sqlite:tickets.db"
	defaultCatalogPath     = "data/events.json"
	defaultPublicBaseURL   = "http://localhost:8080"
	defaultCORSOrigins     = "http://localhost:5173,http://127.0.0.1:5173"
	defaultShutdownTimeout = 10 * time.Second
)

var ErrWebhookSecretRequired = errors.New("stripe webhook secret is required in production")

type StripeConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
	SecretKey     string `yaml:"secret_key"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type Config struct {
	Environment     string        `yaml:"environment"`
	Addr            string        `yaml:"addr"`
	DatabaseURL     string        `yaml:"database_url"`
	CatalogPath     string        `yaml:"catalog_path"`
	PublicBaseURL   string        `yaml:"public_base_url"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Stripe          StripeConfig  `yaml:"stripe"`
	SMTP            SMTPConfig    `yaml:"smtp"`
}

func Default() Config {
	return Config{
		Environment:     EnvDevelopment,
		Addr:            defaultAddr,
		DatabaseURL:     defaultDatabaseURL,
		CatalogPath:     defaultCatalogPath,
		PublicBaseURL:   defaultPublicBaseURL,
		CORSOrigins:     ParseCSV(defaultCORSOrigins),
		ShutdownTimeout: defaultShutdownTimeout,
		SMTP:            SMTPConfig{Port: 587},
	}
}

func (c Config) Production() bool { return c.Environment == EnvProduction }

// CheckoutEnabled reports whether purchases go through hosted checkout.
func (c Config) CheckoutEnabled() bool { return c.Stripe.SecretKey != "" }

// MailEnabled reports whether confirmations go to a real SMTP relay.
func (c Config) MailEnabled() bool { return c.SMTP.Host != "" }

// Store splits DatabaseURL into a driver name and its data source.
func (c Config) Store() (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return "postgres", c.DatabaseURL, nil
	case strings.HasPrefix(c.DatabaseURL, "sqlite:"):
		path := strings.TrimPrefix(c.DatabaseURL, "sqlite:")
		path = strings.TrimPrefix(path, "//")
		if path == "" {
			return "", "", fmt.Errorf("database url %q: missing sqlite path", c.DatabaseURL)
		}
		return "sqlite", path, nil
	default:
		return "", "", fmt.Errorf("database url %q: unsupported scheme", c.DatabaseURL)
	}
}

func (c Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Production() && c.Stripe.WebhookSecret == "" {
		return ErrWebhookSecretRequired
	}
	if _, _, err := c.Store(); err != nil {
		return err
	}
	if c.CatalogPath == "" {
		return errors.New("catalog path is required")
	}
	if c.CheckoutEnabled() && c.PublicBaseURL == "" {
		return errors.New("public base url is required when checkout is enabled")
	}
	if c.MailEnabled() && c.SMTP.From == "" {
		return errors.New("mail from address is required when smtp is configured")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// Load builds the configuration from args (without the program name) and
// the process environment. pflag.ErrHelp is returned when --help is given.
func Load(args []string, output io.Writer) (Config, error) {
	return load(args, os.LookupEnv, output)
}

func load(args []string, lookup func(string) (string, bool), output io.Writer) (Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("ticket-site", pflag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	var (
		configPath  string
		addr        string
		databaseURL string
		catalogPath string
		environment string
		publicBase  string
		corsOrigins string
	)
	fs.StringVar(&configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&databaseURL, "database-url", cfg.DatabaseURL, "postgres:// URL or sqlite:<path>")
	fs.StringVar(&catalogPath, "catalog", cfg.CatalogPath, "event catalog file (.json, .jsonc, .yaml)")
	fs.StringVar(&environment, "env", cfg.Environment, "development or production")
	fs.StringVar(&publicBase, "public-base-url", cfg.PublicBaseURL, "externally visible base URL")
	fs.StringVar(&corsOrigins, "cors-origins", defaultCORSOrigins, "comma-separated CORS allow-list for /api")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if !fs.Changed("config") {
		configPath, _ = lookup("CONFIG_FILE")
	}
	if configPath != "" {
		if err := applyFile(&cfg, configPath); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if fs.Changed("addr") {
		cfg.Addr = addr
	}
	if fs.Changed("database-url") {
		cfg.DatabaseURL = databaseURL
	}
	if fs.Changed("catalog") {
		cfg.CatalogPath = catalogPath
	}
	if fs.Changed("env") {
		cfg.Environment = environment
	}
	if fs.Changed("public-base-url") {
		cfg.PublicBaseURL = publicBase
	}
	if fs.Changed("cors-origins") {
		cfg.CORSOrigins = ParseCSV(corsOrigins)
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("APP_ENV", &cfg.Environment)
	if port, ok := lookup("PORT"); ok && port != "" {
		cfg.Addr = ":" + port
	}
	str("LISTEN_ADDR", &cfg.Addr)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("CATALOG_PATH", &cfg.CatalogPath)
	str("PUBLIC_BASE_URL", &cfg.PublicBaseURL)
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.CORSOrigins = ParseCSV(v)
	}
	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	str("STRIPE_WEBHOOK_SECRET", &cfg.Stripe.WebhookSecret)
	str("STRIPE_SECRET_KEY", &cfg.Stripe.SecretKey)

	str("SMTP_HOST", &cfg.SMTP.Host)
	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		cfg.SMTP.Port = port
	}
	str("SMTP_USERNAME", &cfg.SMTP.Username)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("MAIL_FROM", &cfg.SMTP.From)
	return nil
}

func ParseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
