package infra

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
)

// DirStats counts regular files and bytes under path. A missing directory
// is reported with Existe=false and no error.
func DirStats(path string) (dto.DirectorioEstado, error) {
	st := dto.DirectorioEstado{Ruta: path}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if !info.IsDir() {
		return st, &fs.PathError{Op: "stat", Path: path, Err: errors.New("not a directory")}
	}
	st.Existe = true
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		st.Archivos++
		st.Bytes += fi.Size()
		return nil
	})
	return st, err
}

// EmptyDir removes everything inside path but keeps path itself.
// Returns the number of top-level entries removed.
func EmptyDir(path string) (int, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(path, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
