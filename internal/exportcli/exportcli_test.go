package exportcli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nais/withsecure-export/internal/exportcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/as/token.oauth2":
			user, _, _ := r.BasicAuth()
			w.Header().Set("Content-Type", "application/json")
			if user != "client-id" {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"invalid_client"}`)
				return
			}
			fmt.Fprint(w, `{"access_token":"token-123","token_type":"Bearer","expires_in":1800}`)
		case "/organizations/v1/organizations":
			fmt.Fprint(w, `{"items":[{"id":"o1","name":"Acme & Co"},{"id":"o2","name":"Beta"}]}`)
		case "/devices/v1/devices":
			if r.URL.Query().Get("organizationId") == "o1" {
				fmt.Fprint(w, `{"items":[{"name":"PC1","os":{"name":"Windows","version":"11"},"online":true,"physicalMemoryTotalSize":17179869184}]}`)
				return
			}
			fmt.Fprint(w, `{"items":[]}`)
		default:
			t.Errorf("unexpected request to %v", r.URL.Path)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	app := exportcli.NewApp()
	app.Writer = stdout
	app.ErrWriter = stderr
	err := app.Run(append([]string{"withsecure-cli"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestOrganizationsList(t *testing.T) {
	s := upstream(t)

	stdout, _, err := run(t, "--client-id", "client-id", "--client-secret", "s3cret", "--api-url", s.URL, "organizations", "list")
	require.NoError(t, err)

	var organizations []map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &organizations))
	assert.Equal(t, []map[string]string{
		{"id": "o1", "name": "Acme & Co"},
		{"id": "o2", "name": "Beta"},
	}, organizations)
}

func TestDevicesList(t *testing.T) {
	s := upstream(t)

	stdout, _, err := run(t, "--client-id", "client-id", "--client-secret", "s3cret", "--api-url", s.URL,
		"devices", "list", "--organization-id", "o1", "--variant", "extended")
	require.NoError(t, err)

	var devices []map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "Acme & Co", devices[0]["Organization"])
	assert.Equal(t, "PC1", devices[0]["Device Name"])
	assert.Equal(t, "Yes", devices[0]["Online"])
	assert.Equal(t, "16 GB", devices[0]["Physical Memory Total (GB)"])
	assert.Equal(t, "N/A", devices[0]["Serial Number"])
	assert.Len(t, devices[0], 14)
}

func TestExport(t *testing.T) {
	s := upstream(t)

	t.Run("writes the csv", func(t *testing.T) {
		dir := t.TempDir()
		stdout, stderr, err := run(t, "--client-id", "client-id", "--client-secret", "s3cret", "--api-url", s.URL,
			"export", "--export-folder", dir, "--acknowledge")
		require.NoError(t, err)

		assert.Contains(t, stderr, "Status: Processing Acme & Co (1/2)...")
		assert.Contains(t, stderr, "Status: Processing Beta (2/2)...")
		assert.Contains(t, stdout, "1 devices from 2 organizations")

		b, err := os.ReadFile(filepath.Join(dir, "withsecure_export.csv"))
		require.NoError(t, err)
		assert.Equal(t, "\ufeffOrganization,Device Name,OS Name,OS Version\r\nAcme & Co,PC1,Windows,11\r\n", string(b))
	})

	t.Run("without acknowledgment", func(t *testing.T) {
		dir := t.TempDir()
		_, stderr, err := run(t, "--client-id", "client-id", "--client-secret", "s3cret", "--api-url", s.URL,
			"export", "--export-folder", dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Acknowledgment Required")
		assert.Contains(t, stderr, "READ ONLY")

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("bad credentials", func(t *testing.T) {
		dir := t.TempDir()
		_, _, err := run(t, "--client-id", "wrong", "--client-secret", "s3cret", "--api-url", s.URL,
			"export", "--export-folder", dir, "--acknowledge")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Authentication Error")
		assert.Contains(t, err.Error(), "Status: 401")
		assert.Contains(t, err.Error(), "invalid_client")

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, _, err := run(t, "--client-id", "client-id", "--client-secret", "s3cret", "--api-url", s.URL,
			"export", "--export-folder", t.TempDir(), "--acknowledge", "--variant", "full")
		assert.ErrorContains(t, err, "unknown variant")
	})
}

func TestDryRun(t *testing.T) {
	t.Run("lists sample organizations without credentials", func(t *testing.T) {
		stdout, _, err := run(t, "--dry-run", "organizations", "list")
		require.NoError(t, err)

		var organizations []map[string]string
		require.NoError(t, json.Unmarshal([]byte(stdout), &organizations))
		assert.Equal(t, []map[string]string{
			{"id": "sample-1", "name": "Sample Company"},
			{"id": "sample-2", "name": "Empty Subsidiary"},
		}, organizations)
	})

	t.Run("exports sample devices", func(t *testing.T) {
		dir := t.TempDir()
		stdout, stderr, err := run(t, "--dry-run", "export", "--export-folder", dir, "--acknowledge")
		require.NoError(t, err)
		assert.Contains(t, stderr, "Status: Processing Empty Subsidiary (2/2)...")
		assert.Contains(t, stdout, "2 devices from 2 organizations")

		b, err := os.ReadFile(filepath.Join(dir, "withsecure_export.csv"))
		require.NoError(t, err)
		assert.Equal(t, "\ufeffOrganization,Device Name,OS Name,OS Version\r\n"+
			"Sample Company,LAPTOP-01,Windows 11 Pro,23H2\r\n"+
			"Sample Company,BUILD-SRV,Windows Server 2012 R2,N/A\r\n", string(b))
	})

	t.Run("still requires acknowledgment", func(t *testing.T) {
		dir := t.TempDir()
		_, _, err := run(t, "--dry-run", "export", "--export-folder", dir)
		assert.ErrorContains(t, err, "Acknowledgment Required")
		assert.NoFileExists(t, filepath.Join(dir, "withsecure_export.csv"))
	})
}

func TestListWithoutCredentials(t *testing.T) {
	s := upstream(t)

	_, _, err := run(t, "--api-url", s.URL, "organizations", "list")
	assert.ErrorContains(t, err, "--client-id and --client-secret are required")
}
