package withsecure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type Credentials struct {
	ClientID     string
	ClientSecret string
}

// AccessToken is the opaque bearer token returned by the token endpoint.
type AccessToken string

// Optional holds a value decoded from a field that may be absent, null or of an unexpected type.
type Optional[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (o *Organization) UnmarshalJSON(b []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	id := decodeString(fields["id"])
	if !id.Valid || id.Value == "" {
		return fmt.Errorf("organization without id: %s", b)
	}

	name := decodeString(fields["name"])
	o.ID = id.Value
	o.Name = name.Value
	if !name.Valid {
		o.Name = "N/A"
	}
	return nil
}

type OS struct {
	Name      Optional[string]
	Version   Optional[string]
	EndOfLife bool
}

type Device struct {
	Name                    Optional[string]
	OS                      OS
	LastUser                Optional[string]
	Online                  bool
	SerialNumber            Optional[string]
	ComputerModel           Optional[string]
	BIOSVersion             Optional[string]
	SystemDriveTotalSize    Optional[int64]
	SystemDriveFreeSpace    Optional[int64]
	PhysicalMemoryTotalSize Optional[int64]
	DiscEncryptionEnabled   bool
}

// UnmarshalJSON never fails on field level: a field that is missing or has an
// unexpected type is left unset.
func (d *Device) UnmarshalJSON(b []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	osFields := map[string]json.RawMessage{}
	_ = json.Unmarshal(fields["os"], &osFields)

	*d = Device{
		Name: decodeString(fields["name"]),
		OS: OS{
			Name:      decodeString(osFields["name"]),
			Version:   decodeString(osFields["version"]),
			EndOfLife: decodeBool(osFields["endOfLife"]),
		},
		LastUser:                decodeString(fields["lastUser"]),
		Online:                  decodeBool(fields["online"]),
		SerialNumber:            decodeString(fields["serialNumber"]),
		ComputerModel:           decodeString(fields["computerModel"]),
		BIOSVersion:             decodeString(fields["biosVersion"]),
		SystemDriveTotalSize:    decodeInt(fields["systemDriveTotalSize"]),
		SystemDriveFreeSpace:    decodeInt(fields["systemDriveFreeSpace"]),
		PhysicalMemoryTotalSize: decodeInt(fields["physicalMemoryTotalSize"]),
		DiscEncryptionEnabled:   decodeBool(fields["discEncryptionEnabled"]),
	}
	return nil
}

type listResponse struct {
	Items      []json.RawMessage `json:"items"`
	NextAnchor string            `json:"nextAnchor"`
}

// decodeString accepts JSON strings and numbers, the latter rendered as written.
func decodeString(raw json.RawMessage) Optional[string] {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Optional[string]{}
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Optional[string]{}
		}
		return Some(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return Some(string(raw))
	default:
		return Optional[string]{}
	}
}

func decodeBool(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "true"
}

// decodeInt accepts JSON numbers, truncating fractions, and strings holding an integer.
func decodeInt(raw json.RawMessage) Optional[int64] {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Optional[int64]{}
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Optional[int64]{}
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Optional[int64]{}
		}
		return Some(i)
	}

	// null, booleans, objects and arrays
	if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
		return Optional[int64]{}
	}

	if i, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return Some(i)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return Optional[int64]{}
	}
	if math.IsNaN(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return Optional[int64]{}
	}
	return Some(int64(f))
}
