package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nais/withsecure-export/internal/metrics"
	"github.com/nais/withsecure-export/internal/otel"
	"github.com/nais/withsecure-export/internal/withsecure"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otrace "go.opentelemetry.io/otel/trace"
)

var (
	ErrNotAcknowledged = errors.New("security warning not acknowledged: provide READ ONLY API access when generating your client secret")
	ErrMissingInput    = errors.New("missing input")
	ErrInvalidInput    = errors.New("invalid input")
)

// ProgressFunc is called after each organization has been processed.
type ProgressFunc func(current, total int, organizationName string)

type Options struct {
	Credentials  withsecure.Credentials
	ExportFolder string
	Variant      Variant
	// Acknowledged must be set once the user has accepted the read-only API key warning.
	Acknowledged bool
	Progress     ProgressFunc
}

type Result struct {
	Path          string
	Organizations int
	Rows          int
	Variant       Variant
	Duration      time.Duration
}

type Exporter struct {
	client withsecure.Client
	log    logrus.FieldLogger
}

func New(client withsecure.Client, log logrus.FieldLogger) *Exporter {
	return &Exporter{
		client: client,
		log:    log,
	}
}

// Run authenticates, fetches every organization's devices and writes the CSV.
// Nothing is written unless every step succeeds.
func (e *Exporter) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Variant == "" {
		opts.Variant = VariantBasic
	}
	if err := validate(opts); err != nil {
		return nil, err
	}
	opts.Variant, _ = ParseVariant(string(opts.Variant))

	log := e.log.WithFields(logrus.Fields{
		"run_id":  uuid.New().String(),
		"variant": opts.Variant,
	})

	ctx, span := otel.Start(ctx, "Export", otrace.WithAttributes(attribute.String("variant", string(opts.Variant))))
	defer span.End()

	result, err := e.run(ctx, log, opts)
	metrics.ObserveExport(err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Error("export failed")
		return nil, err
	}

	result.Duration = time.Since(start)
	metrics.DevicesExported.Add(float64(result.Rows))
	log.WithFields(logrus.Fields{
		"path":          result.Path,
		"organizations": result.Organizations,
		"rows":          result.Rows,
		"duration":      result.Duration,
	}).Info("export completed")
	return result, nil
}

func (e *Exporter) run(ctx context.Context, log logrus.FieldLogger, opts Options) (*Result, error) {
	if err := checkFolder(opts.ExportFolder); err != nil {
		return nil, err
	}

	log.Info("authenticating")
	token, err := e.authenticate(ctx, opts.Credentials)
	if err != nil {
		return nil, err
	}

	log.Info("retrieving organizations")
	organizations, err := e.listOrganizations(ctx, token)
	if err != nil {
		return nil, err
	}

	var rows []Row
	total := len(organizations)
	for i, org := range organizations {
		devices, err := e.listDevices(ctx, token, org)
		if err != nil {
			return nil, err
		}

		for _, device := range devices {
			rows = append(rows, Normalize(opts.Variant, org.Name, device))
		}

		metrics.OrganizationsProcessed.Inc()
		log.WithFields(logrus.Fields{
			"organization": org.Name,
			"device_count": len(devices),
			"progress":     fmt.Sprintf("%d/%d", i+1, total),
		}).Info("processed organization")

		if opts.Progress != nil {
			opts.Progress(i+1, total, org.Name)
		}
	}

	_, span := otel.Start(ctx, "WriteCSV")
	defer span.End()
	path, err := WriteCSV(rows, Header(opts.Variant), opts.ExportFolder)
	if err != nil {
		return nil, err
	}

	return &Result{
		Path:          path,
		Organizations: total,
		Rows:          len(rows),
		Variant:       opts.Variant,
	}, nil
}

func (e *Exporter) authenticate(ctx context.Context, credentials withsecure.Credentials) (withsecure.AccessToken, error) {
	ctx, span := otel.Start(ctx, "Authenticate")
	defer span.End()

	token, err := e.client.Authenticate(ctx, credentials)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	return token, nil
}

func (e *Exporter) listOrganizations(ctx context.Context, token withsecure.AccessToken) ([]withsecure.Organization, error) {
	ctx, span := otel.Start(ctx, "ListOrganizations")
	defer span.End()

	organizations, err := e.client.ListOrganizations(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	span.SetAttributes(attribute.Int("organizations", len(organizations)))
	return organizations, nil
}

func (e *Exporter) listDevices(ctx context.Context, token withsecure.AccessToken, org withsecure.Organization) ([]withsecure.Device, error) {
	ctx, span := otel.Start(ctx, "ListDevices", otrace.WithAttributes(attribute.String("organization.id", org.ID)))
	defer span.End()

	devices, err := e.client.ListDevices(ctx, token, org.ID)
	if err != nil {
		return nil, fmt.Errorf("list devices for %q: %w", org.Name, err)
	}
	span.SetAttributes(attribute.Int("devices", len(devices)))
	return devices, nil
}

func validate(opts Options) error {
	if !opts.Acknowledged {
		return ErrNotAcknowledged
	}

	check := func(name, value string) error {
		if value == "" {
			return fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
		return nil
	}

	var variantErr error
	if _, err := ParseVariant(string(opts.Variant)); err != nil {
		variantErr = fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return errors.Join(
		check("client id", opts.Credentials.ClientID),
		check("client secret", opts.Credentials.ClientSecret),
		check("export folder", opts.ExportFolder),
		variantErr,
	)
}

func checkFolder(dir string) error {
	path := filepath.Join(dir, FileName)
	info, err := os.Stat(dir)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return &IOError{Path: path, Err: fmt.Errorf("%s is not a directory", dir)}
	}
	return nil
}

// ErrorKind names the failure class of an error returned by Run, for display.
func ErrorKind(err error) string {
	var (
		authErr  *withsecure.AuthenticationError
		fetchErr *withsecure.FetchError
		ioErr    *IOError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAcknowledged):
		return "Acknowledgment Required"
	case errors.Is(err, ErrMissingInput), errors.Is(err, ErrInvalidInput):
		return "Input Error"
	case errors.As(err, &authErr):
		return "Authentication Error"
	case errors.As(err, &fetchErr):
		return "Fetch Error"
	case errors.As(err, &ioErr):
		return "IO Error"
	default:
		return "Error"
	}
}
