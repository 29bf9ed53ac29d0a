// Package report persists the outcome report of an export run.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/BartekS5/sqlexport/internal/etl"
)

// FileName is the report's name under the output root.
func FileName(runDate string) string {
	return fmt.Sprintf("_report_%s.json", runDate)
}

// WriteJSON writes r to path, replacing any previous report atomically. An
// empty path means FileName(r.RunDate) under dir.
func WriteJSON(fs afero.Fs, dir, path string, r *etl.Report) (string, error) {
	if path == "" {
		path = filepath.Join(dir, FileName(r.RunDate))
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := afero.WriteFile(fs, tmp, append(data, '\n'), 0o644); err != nil {
		fs.Remove(tmp)
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
