package tabular

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/irc-geo/hand-cli/internal/model"
)

// ErrOutputWrite wraps any failure while persisting the result table.
var ErrOutputWrite = eris.New("tabular: output write failed")

// Write serializes the table as CSV. It writes to a temporary file in the
// target directory and renames it into place, so a failed run never leaves a
// partial output file behind.
func Write(path string, table *model.Table) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(ErrOutputWrite, "create temp file: %v", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(table.Header); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(ErrOutputWrite, "write header: %v", err)
	}
	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			tmp.Close() //nolint:errcheck
			return eris.Wrapf(ErrOutputWrite, "write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(ErrOutputWrite, "flush: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(ErrOutputWrite, "close temp file: %v", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(ErrOutputWrite, "rename into place: %v", err)
	}
	return nil
}
