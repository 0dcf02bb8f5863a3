package export_test

import (
	"encoding/json"
	"testing"

	"github.com/nais/withsecure-export/internal/export"
	"github.com/nais/withsecure-export/internal/withsecure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToGB(t *testing.T) {
	tests := []struct {
		name     string
		bytes    withsecure.Optional[int64]
		expected string
	}{
		{"missing", withsecure.Optional[int64]{}, "N/A"},
		{"negative", withsecure.Some(int64(-1)), "N/A"},
		{"zero", withsecure.Some(int64(0)), "0 GB"},
		{"just under half", withsecure.Some(int64(536870911)), "0 GB"},
		{"one gibibyte", withsecure.Some(int64(1 << 30)), "1 GB"},
		{"one and a half rounds to even", withsecure.Some(int64(1610612736)), "2 GB"},
		{"two and a half rounds to even", withsecure.Some(int64(2684354560)), "2 GB"},
		{"just over two and a half", withsecure.Some(int64(2684354561)), "3 GB"},
		{"512 GB disk", withsecure.Some(int64(511101108224)), "476 GB"},
		{"16 GiB memory", withsecure.Some(int64(17179869184)), "16 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, export.BytesToGB(tt.bytes))
		})
	}
}

func TestHeader(t *testing.T) {
	assert.Equal(t, export.Row{"Organization", "Device Name", "OS Name", "OS Version"}, export.Header(export.VariantBasic))
	assert.Equal(t, export.Row{
		"Organization",
		"Device Name",
		"OS Name",
		"OS Version",
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
	}, export.Header(export.VariantExtended))

	h := export.Header(export.VariantBasic)
	h[0] = "changed"
	assert.Equal(t, "Organization", export.Header(export.VariantBasic)[0])
}

func TestParseVariant(t *testing.T) {
	v, err := export.ParseVariant("Extended")
	require.NoError(t, err)
	assert.Equal(t, export.VariantExtended, v)

	v, err = export.ParseVariant(" basic ")
	require.NoError(t, err)
	assert.Equal(t, export.VariantBasic, v)

	_, err = export.ParseVariant("full")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	device := func(t *testing.T, raw string) withsecure.Device {
		t.Helper()
		d := withsecure.Device{}
		require.NoError(t, json.Unmarshal([]byte(raw), &d))
		return d
	}

	t.Run("complete device", func(t *testing.T) {
		d := device(t, `{
			"name": "PC1",
			"os": {"name": "Windows", "version": "11", "endOfLife": false},
			"lastUser": "jdoe",
			"online": true,
			"serialNumber": "SN-1",
			"computerModel": "Latitude",
			"biosVersion": "1.0",
			"systemDriveTotalSize": 1073741824,
			"systemDriveFreeSpace": 1610612736,
			"physicalMemoryTotalSize": 8589934592,
			"discEncryptionEnabled": true
		}`)

		assert.Equal(t, export.Row{"Acme", "PC1", "Windows", "11"}, export.Normalize(export.VariantBasic, "Acme", d))
		assert.Equal(t, export.Row{
			"Acme", "PC1", "Windows", "11",
			"No", "jdoe", "Yes", "SN-1", "Latitude", "1.0",
			"1 GB", "2 GB", "8 GB", "Yes",
		}, export.Normalize(export.VariantExtended, "Acme", d))
	})

	t.Run("empty device", func(t *testing.T) {
		d := device(t, `{}`)

		assert.Equal(t, export.Row{"Acme", "N/A", "N/A", "N/A"}, export.Normalize(export.VariantBasic, "Acme", d))
		assert.Equal(t, export.Row{
			"Acme", "N/A", "N/A", "N/A",
			"No", "N/A", "No", "N/A", "N/A", "N/A",
			"N/A", "N/A", "N/A", "No",
		}, export.Normalize(export.VariantExtended, "Acme", d))
	})

	t.Run("byte counts that are not numbers", func(t *testing.T) {
		for _, value := range []string{`null`, `true`, `{}`, `[]`, `"lots"`} {
			raw := `{"systemDriveTotalSize":` + value + `,"systemDriveFreeSpace":` + value + `,"physicalMemoryTotalSize":` + value + `}`
			row := export.Normalize(export.VariantExtended, "Acme", device(t, raw))
			assert.Equal(t, export.Row{"N/A", "N/A", "N/A"}, row[10:13], raw)
		}
	})

	t.Run("booleans", func(t *testing.T) {
		for raw, expected := range map[string]string{
			`{"online":true,"discEncryptionEnabled":true,"os":{"endOfLife":true}}`:    "Yes",
			`{"online":false,"discEncryptionEnabled":false,"os":{"endOfLife":false}}`: "No",
			`{"online":null,"discEncryptionEnabled":null,"os":{"endOfLife":null}}`:    "No",
			`{"online":"true","discEncryptionEnabled":1,"os":null}`:                   "No",
		} {
			row := export.Normalize(export.VariantExtended, "Acme", device(t, raw))
			assert.Equal(t, expected, row[4], raw)
			assert.Equal(t, expected, row[6], raw)
			assert.Equal(t, expected, row[13], raw)
		}
	})

	t.Run("row width matches header", func(t *testing.T) {
		for _, variant := range []export.Variant{export.VariantBasic, export.VariantExtended} {
			for _, raw := range []string{`{}`, `{"name":"x","os":{"name":"y"}}`} {
				assert.Len(t, export.Normalize(variant, "org", device(t, raw)), len(export.Header(variant)))
			}
		}
	})
}
