package withsecure

import (
	"context"
)

// FakeClient serves organizations and devices from memory.
type FakeClient struct {
	Token         AccessToken
	Organizations []Organization
	// Devices per organization id
	Devices map[string][]Device

	AuthErr         error
	OrganizationErr error
	// DeviceErrs fails ListDevices for the given organization ids
	DeviceErrs map[string]error

	// DeviceCalls records the organization ids ListDevices was called with, in order
	DeviceCalls []string
}

var _ Client = &FakeClient{}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Token:   "fake-token",
		Devices: map[string][]Device{},
	}
}

func (f *FakeClient) WithOrganization(org Organization, devices ...Device) *FakeClient {
	f.Organizations = append(f.Organizations, org)
	f.Devices[org.ID] = append(f.Devices[org.ID], devices...)
	return f
}

// Authenticate implements Client.
func (f *FakeClient) Authenticate(ctx context.Context, credentials Credentials) (AccessToken, error) {
	if f.AuthErr != nil {
		return "", f.AuthErr
	}
	return f.Token, nil
}

// ListOrganizations implements Client.
func (f *FakeClient) ListOrganizations(ctx context.Context, token AccessToken) ([]Organization, error) {
	if f.OrganizationErr != nil {
		return nil, f.OrganizationErr
	}
	return f.Organizations, nil
}

// ListDevices implements Client.
func (f *FakeClient) ListDevices(ctx context.Context, token AccessToken, organizationID string) ([]Device, error) {
	f.DeviceCalls = append(f.DeviceCalls, organizationID)
	if err, ok := f.DeviceErrs[organizationID]; ok {
		return nil, err
	}
	return f.Devices[organizationID], nil
}
