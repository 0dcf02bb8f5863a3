package version

var (
	Revision = "unknown" // Git commit hash
	Version  = "unknown" // Numeric version

	// for use when using structured logging
	LogFields = map[string]any{
		"revision": Revision,
		"version":  Version,
	}
)

// UserAgent is sent with every request to the WithSecure API.
func UserAgent() string {
	return "WithSecureExporter/" + Version
}
