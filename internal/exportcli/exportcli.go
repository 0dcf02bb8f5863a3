package exportcli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nais/withsecure-export/internal/config"
	"github.com/nais/withsecure-export/internal/export"
	"github.com/nais/withsecure-export/internal/logger"
	"github.com/nais/withsecure-export/internal/version"
	"github.com/nais/withsecure-export/internal/withsecure"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	FlagAcknowledge    = "acknowledge"
	FlagAPIURL         = "api-url"
	FlagClientID       = "client-id"
	FlagClientSecret   = "client-secret"
	FlagDryRun         = "dry-run"
	FlagExportFolder   = "export-folder"
	FlagHTTPTimeout    = "http-timeout"
	FlagLogLevel       = "log-level"
	FlagOrganizationID = "organization-id"
	FlagTokenURL       = "token-url"
	FlagVariant        = "variant"
)

func env(name string) []string {
	return []string{config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))}
}

func NewApp() *cli.App {
	defaults := config.DefaultConfig()

	return &cli.App{
		Name:    logger.CLI,
		Usage:   "inspect and export WithSecure Elements device inventory",
		Version: version.Version,
		Description: "Generate an API key with READ ONLY access at " + config.APIKeyPage + ".\n" +
			"Every flag can also be set with a " + config.EnvPrefix + "_* environment variable.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    FlagClientID,
				Usage:   "WithSecure API client id, required unless --" + FlagDryRun,
				EnvVars: env(FlagClientID),
			},
			&cli.StringFlag{
				Name:    FlagClientSecret,
				Usage:   "WithSecure API client secret, required unless --" + FlagDryRun,
				EnvVars: env(FlagClientSecret),
			},
			&cli.BoolFlag{
				Name:    FlagDryRun,
				Usage:   "serve built-in sample organizations and devices instead of calling the API",
				EnvVars: env(FlagDryRun),
			},
			&cli.StringFlag{
				Name:    FlagAPIURL,
				Usage:   "WithSecure API base URL",
				EnvVars: env(FlagAPIURL),
				Value:   defaults.APIURL,
			},
			&cli.StringFlag{
				Name:    FlagTokenURL,
				Usage:   "OAuth2 token endpoint, defaults to the one below the API URL",
				EnvVars: env(FlagTokenURL),
			},
			&cli.DurationFlag{
				Name:    FlagHTTPTimeout,
				Usage:   "timeout for each API request",
				EnvVars: env(FlagHTTPTimeout),
				Value:   defaults.HTTPTimeout,
			},
			&cli.StringFlag{
				Name:    FlagLogLevel,
				Usage:   "logging verbosity",
				EnvVars: env(FlagLogLevel),
				Value:   defaults.LogLevel,
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "organizations",
				Aliases: []string{"orgs"},
				Usage:   "options for organizations",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list organizations as JSON",
						Action: ListOrganizations,
					},
				},
			},
			{
				Name:  "devices",
				Usage: "options for devices",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list the normalized devices of an organization as JSON",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     FlagOrganizationID,
								Usage:    "organization to list devices for",
								Required: true,
							},
							variantFlag(defaults.Variant),
						},
						Action: ListDevices,
					},
				},
			},
			{
				Name:  "export",
				Usage: "export all devices of all organizations to " + export.FileName,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     FlagExportFolder,
						Usage:    "existing directory to write " + export.FileName + " to",
						EnvVars:  env(FlagExportFolder),
						Required: true,
					},
					variantFlag(defaults.Variant),
					&cli.BoolFlag{
						Name:    FlagAcknowledge,
						Usage:   "confirm that the API key only has READ ONLY access",
						EnvVars: env(FlagAcknowledge),
					},
				},
				Action: Export,
			},
		},
	}
}

func variantFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    FlagVariant,
		Usage:   "columns to export, basic or extended",
		EnvVars: env(FlagVariant),
		Value:   value,
	}
}

func setup(c *cli.Context) (withsecure.Client, logrus.FieldLogger) {
	log := logger.Setup(c.String(FlagLogLevel))
	log.SetOutput(c.App.ErrWriter)

	if c.Bool(FlagDryRun) {
		log.Info("dry run, serving sample data")
		return sampleClient(), log
	}

	opts := []withsecure.ClientOption{
		withsecure.WithBaseURL(c.String(FlagAPIURL)),
		withsecure.WithTimeout(c.Duration(FlagHTTPTimeout)),
	}
	if tokenURL := c.String(FlagTokenURL); tokenURL != "" {
		opts = append(opts, withsecure.WithTokenURL(tokenURL))
	}

	return withsecure.New(log.WithField("component", "withsecure"), opts...), log
}

func credentials(c *cli.Context) withsecure.Credentials {
	creds := withsecure.Credentials{
		ClientID:     strings.TrimSpace(c.String(FlagClientID)),
		ClientSecret: strings.TrimSpace(c.String(FlagClientSecret)),
	}
	if c.Bool(FlagDryRun) {
		if creds.ClientID == "" {
			creds.ClientID = FlagDryRun
		}
		if creds.ClientSecret == "" {
			creds.ClientSecret = FlagDryRun
		}
	}
	return creds
}

// authenticate is used by the list commands; export validates its own input.
func authenticate(c *cli.Context, client withsecure.Client) (withsecure.AccessToken, error) {
	creds := credentials(c)
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", fmt.Errorf("%w: --%s and --%s are required", export.ErrMissingInput, FlagClientID, FlagClientSecret)
	}
	return client.Authenticate(c.Context, creds)
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func ListOrganizations(c *cli.Context) error {
	client, _ := setup(c)

	token, err := authenticate(c, client)
	if err != nil {
		return err
	}

	organizations, err := client.ListOrganizations(c.Context, token)
	if err != nil {
		return err
	}

	if organizations == nil {
		organizations = []withsecure.Organization{}
	}
	return printJSON(c, organizations)
}

func ListDevices(c *cli.Context) error {
	variant, err := export.ParseVariant(c.String(FlagVariant))
	if err != nil {
		return err
	}

	client, _ := setup(c)
	token, err := authenticate(c, client)
	if err != nil {
		return err
	}

	organizationID := c.String(FlagOrganizationID)
	organizations, err := client.ListOrganizations(c.Context, token)
	if err != nil {
		return err
	}
	organizationName := organizationID
	for _, org := range organizations {
		if org.ID == organizationID {
			organizationName = org.Name
			break
		}
	}

	devices, err := client.ListDevices(c.Context, token, organizationID)
	if err != nil {
		return err
	}

	header := export.Header(variant)
	out := make([]map[string]string, 0, len(devices))
	for _, device := range devices {
		row := export.Normalize(variant, organizationName, device)
		record := make(map[string]string, len(header))
		for i, column := range header {
			record[column] = row[i]
		}
		out = append(out, record)
	}

	return printJSON(c, out)
}

func Export(c *cli.Context) error {
	variant, err := export.ParseVariant(c.String(FlagVariant))
	if err != nil {
		return err
	}

	if !c.Bool(FlagAcknowledge) {
		fmt.Fprintln(c.App.ErrWriter, SecurityWarning)
	}

	client, log := setup(c)
	result, err := export.New(client, log.WithField("component", "export")).Run(c.Context, export.Options{
		Credentials:  credentials(c),
		ExportFolder: strings.TrimSpace(c.String(FlagExportFolder)),
		Variant:      variant,
		Acknowledged: c.Bool(FlagAcknowledge),
		Progress: func(current, total int, organizationName string) {
			fmt.Fprintf(c.App.ErrWriter, "Status: Processing %s (%d/%d)...\n", organizationName, current, total)
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", export.ErrorKind(err), err)
	}

	fmt.Fprintf(c.App.Writer, "Export completed successfully: %d devices from %d organizations written to %s\n", result.Rows, result.Organizations, result.Path)
	return nil
}

// SecurityWarning is shown until the user acknowledges it.
const SecurityWarning = "To ensure the security of your WithSecure database, " +
	"provide READ ONLY API access when generating your Client Secret.\n" +
	"Re-run with --" + FlagAcknowledge + " once you have done so."
