// Package statefile reads and writes the small JSON state files kept next to
// the configuration (event index, overdue table, project colors).
package statefile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

// Read decodes the file at path into v. A missing file leaves v untouched.
func Read(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

// Write encodes v to path, creating the directory when needed. The file is
// replaced atomically so a crash never leaves half a document behind.
func Write(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
