package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DestPath resolves where a converted file is written.
//
// An explicit path wins. Otherwise the file goes next to src (or into
// folderDest, created if missing) named after src's stem plus ext. When
// stripSuffix is non-empty it is cut from the base name instead of the
// extension, e.g. "cell1_seg.npy" with "_seg.npy" gives "cell1".
func DestPath(src, explicit, folderDest, ext, stripSuffix string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	dir := filepath.Dir(src)
	if folderDest != "" {
		if err := os.MkdirAll(folderDest, 0o755); err != nil {
			return "", fmt.Errorf("%w: create %s: %v", ErrIOFailure, folderDest, err)
		}
		dir = folderDest
	}
	base := filepath.Base(src)
	var stem string
	if stripSuffix != "" && strings.HasSuffix(base, stripSuffix) {
		stem = strings.TrimSuffix(base, stripSuffix)
	} else {
		stem = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(dir, stem+ext), nil
}

// Glob lists files in folder matching pattern, sorted by name.
func Glob(folder, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(folder, pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrInvalidParameter, pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// WriteAtomic streams write into a temporary file next to path and renames
// it into place only when write succeeds. A failed write leaves no file at
// path.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	return CommitAtomic(path, func(tmp string) error {
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// CommitAtomic is WriteAtomic for writers that need a file name rather than
// an io.Writer (container libraries that open the file themselves).
func CommitAtomic(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	tmp := f.Name()
	f.Close()
	defer os.Remove(tmp)

	if err := write(tmp); err != nil {
		return WrapIO(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return nil
}

// WrapIO tags plain errors as IOFailure and leaves already-classified
// errors alone.
func WrapIO(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		ErrUnsupportedDimensionality, ErrShapeMismatch, ErrMissingRequiredField,
		ErrInvalidParameter, ErrIOFailure, ErrUnmappedColumn, ErrTrackOrder,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrIOFailure, err)
}
