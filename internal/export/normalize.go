package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/nais/withsecure-export/internal/withsecure"
)

const NotAvailable = "N/A"

const bytesPerGB = 1 << 30

// Variant selects which columns an export contains.
type Variant string

const (
	VariantBasic    Variant = "basic"
	VariantExtended Variant = "extended"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantBasic, VariantExtended:
		return v, nil
	default:
		return "", fmt.Errorf("unknown variant %q, must be %q or %q", s, VariantBasic, VariantExtended)
	}
}

type Row []string

var (
	basicHeader = Row{
		"Organization",
		"Device Name",
		"OS Name",
		"OS Version",
	}

	extendedHeader = append(append(Row{}, basicHeader...),
		"End Of Life",
		"Last User",
		"Online",
		"Serial Number",
		"Computer Model",
		"BIOS Version",
		"System Drive Total (GB)",
		"System Drive Free (GB)",
		"Physical Memory Total (GB)",
		"Disk Encryption Enabled",
	)
)

// Header returns a copy of the header row for variant.
func Header(variant Variant) Row {
	if variant == VariantExtended {
		return append(Row{}, extendedHeader...)
	}
	return append(Row{}, basicHeader...)
}

// Normalize flattens a device into a row. Absent fields become N/A, booleans Yes/No.
func Normalize(variant Variant, organizationName string, d withsecure.Device) Row {
	row := Row{
		organizationName,
		stringOrNA(d.Name),
		stringOrNA(d.OS.Name),
		stringOrNA(d.OS.Version),
	}
	if variant != VariantExtended {
		return row
	}

	return append(row,
		yesNo(d.OS.EndOfLife),
		stringOrNA(d.LastUser),
		yesNo(d.Online),
		stringOrNA(d.SerialNumber),
		stringOrNA(d.ComputerModel),
		stringOrNA(d.BIOSVersion),
		BytesToGB(d.SystemDriveTotalSize),
		BytesToGB(d.SystemDriveFreeSpace),
		BytesToGB(d.PhysicalMemoryTotalSize),
		yesNo(d.DiscEncryptionEnabled),
	)
}

// BytesToGB renders a byte count as whole gibibytes, rounding half to even.
func BytesToGB(b withsecure.Optional[int64]) string {
	if !b.Valid || b.Value < 0 {
		return NotAvailable
	}
	gb := math.RoundToEven(float64(b.Value) / bytesPerGB)
	return fmt.Sprintf("%d GB", int64(gb))
}

func stringOrNA(s withsecure.Optional[string]) string {
	if !s.Valid {
		return NotAvailable
	}
	return s.Value
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
