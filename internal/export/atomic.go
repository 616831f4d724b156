// Package export writes rendered publications to disk and packs them into
// .tar.xz bundles with a BLAKE3 manifest.
package export

import (
	"io"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

// WriteFile writes the output of write to path. The data goes to a
// temporary file in the same directory that replaces path only when write
// and the final sync succeed, so a failed render never leaves a truncated
// file behind.
func WriteFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return errors.NewIO("sync", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIO("close", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return errors.NewIO("chmod", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewIO("rename", path, err)
	}
	committed = true
	return nil
}
