package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

const (
	FileName = "withsecure_export.csv"

	// spreadsheet applications need the BOM to detect UTF-8
	byteOrderMark = "\ufeff"
)

// IOError is returned when the export file cannot be written.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// WriteCSV writes header and rows to dir/withsecure_export.csv and returns the path.
// The directory must exist. The file is replaced atomically, a failed write
// leaves any previous export untouched and no partial file behind.
func WriteCSV(rows []Row, header Row, dir string) (string, error) {
	path := filepath.Join(dir, FileName)

	tmp, err := os.CreateTemp(dir, "."+FileName+".*")
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	err = writeRecords(tmp, header, rows)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0o644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}

	return path, nil
}

func writeRecords(f *os.File, header Row, rows []Row) error {
	if _, err := f.WriteString(byteOrderMark); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.UseCRLF = true

	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
