package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

func deleteOldLogFiles(logDirPath, prefix string, threshold time.Time) error {
	logFiles, err := os.ReadDir(logDirPath)
	if err != nil {
		return fmt.Errorf("open log dir: %w", err)
	}

	for _, logFile := range filterOldFilesByDate(logFiles, prefix, threshold) {
		err := os.Remove(filepath.Join(logDirPath, logFile.Name()))
		if err != nil {
			return fmt.Errorf("remove log file: %w", err)
		}
	}

	return nil
}

func filterOldFilesByDate(files []os.DirEntry, prefix string, threshold time.Time) []os.DirEntry {
	var old []os.DirEntry
	filenameFormat := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_(\d{4}-\d{2}-\d{2})\.log$`)

	for _, logFile := range files {
		matches := filenameFormat.FindStringSubmatch(logFile.Name())
		if len(matches) != 2 || logFile.IsDir() {
			continue
		}

		logDate, err := time.Parse(time.DateOnly, matches[1])
		if err != nil {
			continue
		}

		if logDate.Before(threshold) {
			old = append(old, logFile)
		}
	}

	return old
}

func createLogFileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.log", strings.TrimSpace(prefix), t.Format(time.DateOnly))
}
