package withsecure

import (
	"fmt"
)

const (
	ResourceOrganizations = "organizations"
	ResourceDevices       = "devices"
)

// AuthenticationError is returned when the token endpoint does not hand out an access token.
// StatusCode and Body are those of the token response, StatusCode is zero when none was received.
type AuthenticationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthenticationError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	case e.StatusCode < 300 && e.Err != nil:
		// successful status, unusable token response
		return fmt.Sprintf("authentication failed: %v. Status: %d, Body: %s", e.Err, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("authentication failed. Status: %d, Body: %s", e.StatusCode, e.Body)
	}
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// FetchError is returned when the organizations or devices endpoint fails.
type FetchError struct {
	Resource       string
	OrganizationID string
	StatusCode     int
	Body           string
	Err            error
}

func (e *FetchError) Error() string {
	what := "retrieve " + e.Resource
	if e.OrganizationID != "" {
		what += " for org " + e.OrganizationID
	}

	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("failed to %s: %v", what, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("failed to %s (Status: %d): %v", what, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("failed to %s (Status: %d): %s", what, e.StatusCode, e.Body)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
