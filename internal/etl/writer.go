package etl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/BartekS5/sqlexport/pkg/logger"
)

// RunDateLayout is the date stamp appended to every output name.
const RunDateLayout = "20060102"

// OutputName returns the artifact name of a unit:
// {table}_{partitionKey}_{runDate}.{ext}. Downstream consumers rely on it.
func OutputName(table string, key PartitionKey, runDate time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", table, key, runDate.Format(RunDateLayout), ext)
}

// ValidateTableName rejects table names that would place an output name
// outside its directory.
func ValidateTableName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("empty table name")
	case strings.ContainsAny(name, `/\`+"\x00"), strings.Contains(name, ".."):
		return fmt.Errorf("table name %q cannot be used in a file name", name)
	}
	return nil
}

// artifact is an output file written under a hidden temporary name in the
// destination directory and renamed into place on commit.
type artifact struct {
	fs    afero.Fs
	final string
	tmp   string
	file  afero.File
	size  uint64
}

func tempPath(final string) string {
	return filepath.Join(filepath.Dir(final), "."+filepath.Base(final)+".tmp")
}

func createArtifact(fs afero.Fs, final string) (*artifact, error) {
	if err := fs.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, &DestinationWriteError{Path: final, Op: "create directory", Err: err}
	}
	tmp := tempPath(final)
	f, err := fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &DestinationWriteError{Path: tmp, Op: "create", Err: err}
	}
	return &artifact{fs: fs, final: final, tmp: tmp, file: f}, nil
}

func (a *artifact) Write(p []byte) (int, error) {
	n, err := a.file.Write(p)
	a.size += uint64(n)
	return n, err
}

// commit syncs and closes the temporary file and renames it over the final path.
func (a *artifact) commit() error {
	if err := a.file.Sync(); err != nil {
		return &DestinationWriteError{Path: a.tmp, Op: "sync", Err: err}
	}
	err := a.file.Close()
	a.file = nil
	if err != nil {
		return &DestinationWriteError{Path: a.tmp, Op: "close", Err: err}
	}
	if err := a.fs.Rename(a.tmp, a.final); err != nil {
		return &DestinationWriteError{Path: a.final, Op: "rename", Err: err}
	}
	logger.Infof("finalized %s (%s)", a.final, humanize.Bytes(a.size))
	return nil
}

// discard closes and removes the temporary file. The final path is untouched.
func (a *artifact) discard() error {
	if a.file != nil {
		a.file.Close()
		a.file = nil
	}
	if err := a.fs.Remove(a.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &DestinationWriteError{Path: a.tmp, Op: "remove", Err: err}
	}
	return nil
}

func checkSchema(want *Descriptor, rec Record) error {
	if rec.schema != want {
		return fmt.Errorf("record of schema %q appended to writer of schema %q",
			rec.schema.RecordName(), want.RecordName())
	}
	return nil
}
