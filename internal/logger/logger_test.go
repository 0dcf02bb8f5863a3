package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteOldLogFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"withsecure-export_2023-01-01.log",
		"withsecure-export_2023-01-09.log",
		"withsecure-cli_2023-01-01.log",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("test"), 0o644))
	}

	threshold := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, deleteOldLogFiles(dir, Exporter, threshold))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{
		"withsecure-export_2023-01-09.log",
		"withsecure-cli_2023-01-01.log",
		"notes.txt",
	}, names)
}

func TestSetupLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	log, closer, err := SetupLogger("debug", dir, Exporter)
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.Info("hello")

	b, err := os.ReadFile(filepath.Join(dir, createLogFileName(Exporter, time.Now())))
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
}

func TestSetupInvalidLevel(t *testing.T) {
	log := Setup("loud")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestCapturePanicExitsNonZero(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = os.Exit })

	log, hook := test.NewNullLogger()
	func() {
		defer CapturePanic(log)
		panic("boom")
	}()

	assert.Equal(t, 1, code)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "boom")
}

func TestCapturePanicWithoutPanic(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = os.Exit })

	log, hook := test.NewNullLogger()
	func() {
		defer CapturePanic(log)
	}()

	assert.Equal(t, -1, code)
	assert.Empty(t, hook.Entries)
}
