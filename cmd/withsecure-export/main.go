package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/nais/withsecure-export/internal/config"
	"github.com/nais/withsecure-export/internal/export"
	"github.com/nais/withsecure-export/internal/logger"
	"github.com/nais/withsecure-export/internal/metrics"
	"github.com/nais/withsecure-export/internal/notify"
	"github.com/nais/withsecure-export/internal/otel"
	"github.com/nais/withsecure-export/internal/version"
	"github.com/nais/withsecure-export/internal/withsecure"
)

func main() {
	cfg := config.DefaultConfig()
	if err := cfg.Process(); err != nil {
		fmt.Fprintf(os.Stderr, "read environment configuration: %v\n", err)
		os.Exit(2)
	}

	printVersion := false
	flag.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "WithSecure API client id")
	flag.StringVar(&cfg.ClientSecret, "client-secret", cfg.ClientSecret, "WithSecure API client secret, prefer "+config.EnvPrefix+"_CLIENT_SECRET")
	flag.StringVar(&cfg.ExportFolder, "export-folder", cfg.ExportFolder, "existing directory to write "+export.FileName+" to")
	flag.StringVar(&cfg.Variant, "variant", cfg.Variant, "columns to export, basic or extended")
	flag.BoolVar(&cfg.Acknowledge, "acknowledge", cfg.Acknowledge, "confirm that the API key only has READ ONLY access")
	flag.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "WithSecure API base URL")
	flag.StringVar(&cfg.TokenURL, "token-url", cfg.TokenURL, "OAuth2 token endpoint, defaults to the one below the API URL")
	flag.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "timeout for each API request")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "which log level to output")
	flag.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "also write logs to dated files in this directory")
	flag.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write prometheus metrics in textfile format to this path")
	flag.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP endpoint for traces and metrics")
	flag.BoolVar(&cfg.Notify, "notify", cfg.Notify, "show a desktop notification when the export finishes")
	flag.BoolVar(&printVersion, "version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Exports WithSecure devices of all organizations to CSV.\nGenerate an API key at %s\n\n", config.APIKeyPage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if printVersion {
		fmt.Printf("%s (%s)\n", version.Version, version.Revision)
		return
	}

	cfg.Normalize()

	var log *logrus.Logger
	if cfg.LogDir != "" {
		l, closer, err := logger.SetupLogger(cfg.LogLevel, cfg.LogDir, logger.Exporter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "set up logging: %v\n", err)
			os.Exit(2)
		}
		defer closer.Close()
		log = l
	} else {
		log = logger.Setup(cfg.LogLevel)
	}

	entry := log.WithField("component", "main")
	defer logger.CapturePanic(entry)
	entry.WithFields(version.LogFields).WithFields(cfg.LogFields()).Debug("starting withsecure-export")

	if !cfg.Acknowledge {
		fmt.Fprintln(os.Stderr, "Security warning: to ensure the security of your WithSecure database, "+
			"provide READ ONLY API access when generating your Client Secret.\n"+
			"Re-run with --acknowledge (or "+config.EnvPrefix+"_ACKNOWLEDGE=true) once you have done so.")
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Input Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	notifier := notify.New(entry, cfg.Notify)
	if err := run(context.Background(), log, cfg, notifier); err != nil {
		notifier.Errorf("%s: %v", export.ErrorKind(err), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logrus.Logger, cfg config.Config, notifier notify.Notifier) (err error) {
	otelShutdown, err := otel.SetupOTelSDK(ctx, logger.Exporter, cfg.OTelEndpoint, log.WithField("component", "otel"))
	if err != nil {
		return fmt.Errorf("setup OTel SDK: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(ctx); err != nil {
			log.WithError(err).Error("shutdown OTel SDK")
		}
	}()

	if cfg.MetricsFile != "" {
		defer func() {
			if metricsErr := metrics.WriteTextfile(cfg.MetricsFile); metricsErr != nil {
				err = errors.Join(err, fmt.Errorf("write metrics: %w", metricsErr))
			}
		}()
	}

	variant, err := export.ParseVariant(cfg.Variant)
	if err != nil {
		return err
	}

	client := withsecure.New(log.WithField("component", "withsecure"), cfg.ClientOptions()...)
	exporter := export.New(client, log.WithField("component", "export"))

	result, err := exporter.Run(ctx, export.Options{
		Credentials:  cfg.Credentials(),
		ExportFolder: cfg.ExportFolder,
		Variant:      variant,
		Acknowledged: cfg.Acknowledge,
		Progress: func(current, total int, organizationName string) {
			fmt.Fprintf(os.Stderr, "[%3d%%] Status: Processing %s (%d/%d)...\n", current*100/total, organizationName, current, total)
		},
	})
	if err != nil {
		return err
	}

	notifier.Infof("Export completed successfully: %d devices from %d organizations written to %s", result.Rows, result.Organizations, result.Path)
	return nil
}
