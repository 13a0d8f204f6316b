package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// CreateZip writes every file below srcDir into a new zip at dst, with names
// relative to srcDir. No manifest is added, so the result matches `jar cMf`.
func CreateZip(srcDir, dst string) error {
	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	w := zip.NewWriter(out)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil || rel == "." {
			return err
		}

		return addToZip(w, path, filepath.ToSlash(rel), d)
	})

	closeErr := w.Close()
	if fileErr := out.Close(); closeErr == nil {
		closeErr = fileErr
	}

	if walkErr != nil {
		return fmt.Errorf("archive %s: %w", srcDir, walkErr)
	}

	if closeErr != nil {
		return fmt.Errorf("finish archive: %w", closeErr)
	}

	return nil
}

func addToZip(w *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name

	switch {
	case d.IsDir():
		header.Name += "/"
		header.Method = zip.Store

		_, err = w.CreateHeader(header)

		return err
	case info.Mode()&fs.ModeSymlink != 0:
		target, linkErr := os.Readlink(path)
		if linkErr != nil {
			return linkErr
		}

		header.Method = zip.Store

		fw, createErr := w.CreateHeader(header)
		if createErr != nil {
			return createErr
		}

		_, err = io.WriteString(fw, target)

		return err
	default:
		header.Method = zip.Deflate

		fw, createErr := w.CreateHeader(header)
		if createErr != nil {
			return createErr
		}

		return copyFile(fw, path)
	}
}

// RewriteZip replaces the contents of the named members of the zip at path with
// the files given in replacements (member name -> local file). Other members
// are copied unchanged. The archive is rewritten through a temp file and
// renamed into place.
func RewriteZip(path string, replacements map[string]string) error {
	if len(replacements) == 0 {
		return nil
	}

	reader, err := zip.OpenReader(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".rewrite-*.zip")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	w := zip.NewWriter(tmp)

	for _, f := range reader.File {
		if err = copyMember(w, f, replacements[cleanName(f.Name)]); err != nil {
			_ = w.Close()
			_ = tmp.Close()

			return fmt.Errorf("rewrite %s: %w", f.Name, err)
		}
	}

	if err = w.Close(); err != nil {
		_ = tmp.Close()

		return err
	}

	if err = tmp.Close(); err != nil {
		return err
	}

	if err = reader.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func copyMember(w *zip.Writer, f *zip.File, replacement string) error {
	header := f.FileHeader

	fw, err := w.CreateHeader(&header)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return nil
	}

	if replacement != "" {
		return copyFile(fw, replacement)
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = rc.Close()
	}()

	_, err = io.Copy(fw, rc) //nolint:gosec // Archives are trusted build inputs.

	return err
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(w, f)

	return err
}
