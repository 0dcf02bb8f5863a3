package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/nais/withsecure-export/internal/export"
	"github.com/nais/withsecure-export/internal/withsecure"
	"github.com/sirupsen/logrus"
)

const (
	EnvPrefix = "WITHSECURE_EXPORT"

	APIKeyPage = "https://elements.withsecure.com/apps/ccr/api_keys"
)

type Config struct {
	ClientID     string `split_words:"true"`
	ClientSecret string `split_words:"true"`
	ExportFolder string `split_words:"true"`
	Variant      string
	Acknowledge  bool

	APIURL      string        `envconfig:"API_URL"`
	TokenURL    string        `split_words:"true"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT"`

	LogLevel     string `split_words:"true"`
	LogDir       string `split_words:"true"`
	MetricsFile  string `split_words:"true"`
	OTelEndpoint string `envconfig:"OTEL_ENDPOINT"`
	Notify       bool
}

func DefaultConfig() Config {
	return Config{
		Variant:     string(export.VariantBasic),
		APIURL:      withsecure.DefaultBaseURL,
		HTTPTimeout: 2 * time.Minute,
		LogLevel:    "info",
	}
}

// Process overrides cfg with WITHSECURE_EXPORT_* environment variables.
func (cfg *Config) Process() error {
	return envconfig.Process(EnvPrefix, cfg)
}

// Normalize trims surrounding whitespace from the user supplied values.
func (cfg *Config) Normalize() {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.ExportFolder = strings.TrimSpace(cfg.ExportFolder)
}

func (cfg Config) Validate() error {
	var err error

	check := func(key, value string) error {
		if err != nil {
			return err
		}
		if len(value) == 0 {
			err = fmt.Errorf("missing required configuration option '%s'", key)
		}
		return err
	}

	err = check("client-id", cfg.ClientID)
	err = check("client-secret", cfg.ClientSecret)
	err = check("export-folder", cfg.ExportFolder)
	if err != nil {
		return err
	}

	_, err = export.ParseVariant(cfg.Variant)
	return err
}

func (cfg Config) Credentials() withsecure.Credentials {
	return withsecure.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}
}

func (cfg Config) ClientOptions() []withsecure.ClientOption {
	opts := []withsecure.ClientOption{
		withsecure.WithBaseURL(cfg.APIURL),
		withsecure.WithTimeout(cfg.HTTPTimeout),
	}
	if cfg.TokenURL != "" {
		opts = append(opts, withsecure.WithTokenURL(cfg.TokenURL))
	}
	return opts
}

// LogFields never includes the client secret.
func (cfg Config) LogFields() logrus.Fields {
	return logrus.Fields{
		"client_id":     cfg.ClientID,
		"export_folder": cfg.ExportFolder,
		"variant":       cfg.Variant,
		"api_url":       cfg.APIURL,
		"http_timeout":  cfg.HTTPTimeout,
		"metrics_file":  cfg.MetricsFile,
		"notify":        cfg.Notify,
	}
}
