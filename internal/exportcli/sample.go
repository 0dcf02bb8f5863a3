package exportcli

import (
	"github.com/nais/withsecure-export/internal/withsecure"
)

const gib = 1 << 30

func sampleClient() *withsecure.FakeClient {
	return withsecure.NewFakeClient().
		WithOrganization(withsecure.Organization{ID: "sample-1", Name: "Sample Company"},
			withsecure.Device{
				Name: withsecure.Some("LAPTOP-01"),
				OS: withsecure.OS{
					Name:    withsecure.Some("Windows 11 Pro"),
					Version: withsecure.Some("23H2"),
				},
				LastUser:                withsecure.Some("SAMPLE\\jdoe"),
				Online:                  true,
				SerialNumber:            withsecure.Some("SN-0001"),
				ComputerModel:           withsecure.Some("Latitude 7440"),
				BIOSVersion:             withsecure.Some("1.12.0"),
				SystemDriveTotalSize:    withsecure.Some(int64(512 * gib)),
				SystemDriveFreeSpace:    withsecure.Some(int64(203 * gib)),
				PhysicalMemoryTotalSize: withsecure.Some(int64(16 * gib)),
				DiscEncryptionEnabled:   true,
			},
			withsecure.Device{
				Name: withsecure.Some("BUILD-SRV"),
				OS: withsecure.OS{
					Name:      withsecure.Some("Windows Server 2012 R2"),
					EndOfLife: true,
				},
			},
		).
		WithOrganization(withsecure.Organization{ID: "sample-2", Name: "Empty Subsidiary"})
}
