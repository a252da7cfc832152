package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// writeCSV writes one partition file into dir, creating the directory on
// first use. Returns the full path written.
func writeCSV(dir, filename string, headers []string, records [][]string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	w := csv.NewWriter(f)
	err = w.Write(headers)
	if err == nil {
		err = w.WriteAll(records)
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
