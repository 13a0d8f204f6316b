package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// entryKind distinguishes what an archive entry materializes as.
type entryKind int

const (
	kindFile entryKind = iota
	kindDir
	kindSymlink
	kindHardlink
	kindOther
)

// entry is a format-independent view of an archive member.
// open is only valid for the duration of the walk callback.
type entry struct {
	name     string
	kind     entryKind
	mode     fs.FileMode
	linkname string
	open     func() (io.ReadCloser, error)
}

// walk calls fn for every member of the archive in stored order.
func walk(src string, format Format, fn func(e *entry) error) error {
	switch format {
	case FormatZip:
		return walkZip(src, fn)
	case FormatTar, FormatTarGzip, FormatTarZstd:
		return walkTar(src, format, fn)
	default:
		return fmt.Errorf("%s: %w", src, ErrUnknownFormat)
	}
}

func walkZip(src string, fn func(e *entry) error) error {
	reader, err := zip.OpenReader(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, f := range reader.File {
		e := &entry{
			name: f.Name,
			mode: f.Mode(),
			open: f.Open,
		}

		switch {
		case f.FileInfo().IsDir():
			e.kind = kindDir
		case f.Mode()&fs.ModeSymlink != 0:
			e.kind = kindSymlink

			target, readErr := readAll(f.Open)
			if readErr != nil {
				return fmt.Errorf("read symlink %s: %w", f.Name, readErr)
			}

			e.linkname = target
		default:
			e.kind = kindFile
		}

		if err = fn(e); err != nil {
			return err
		}
	}

	return nil
}

func walkTar(src string, format Format, fn func(e *entry) error) error {
	f, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open tar: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	var stream io.Reader = f

	switch format {
	case FormatTarGzip:
		gz, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			return fmt.Errorf("open gzip stream: %w", gzErr)
		}

		defer func() {
			_ = gz.Close()
		}()

		stream = gz
	case FormatTarZstd:
		zr, zErr := zstd.NewReader(f)
		if zErr != nil {
			return fmt.Errorf("open zstd stream: %w", zErr)
		}

		defer zr.Close()

		stream = zr
	}

	tr := tar.NewReader(stream)

	for {
		header, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}

		if nextErr != nil {
			return fmt.Errorf("read tar header: %w", nextErr)
		}

		e := &entry{
			name:     header.Name,
			mode:     header.FileInfo().Mode(),
			linkname: header.Linkname,
			open: func() (io.ReadCloser, error) {
				return io.NopCloser(tr), nil
			},
		}

		switch header.Typeflag {
		case tar.TypeDir:
			e.kind = kindDir
		case tar.TypeReg, tar.TypeRegA: //nolint:staticcheck // Old tarballs still use TypeRegA.
			e.kind = kindFile
		case tar.TypeSymlink:
			e.kind = kindSymlink
		case tar.TypeLink:
			e.kind = kindHardlink
		default:
			e.kind = kindOther
		}

		if err = fn(e); err != nil {
			return err
		}
	}
}

// cleanName normalizes an entry name to slash-separated form without
// leading "./" or "/". The archive root itself maps to "".
func cleanName(name string) string {
	name = path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))

	return strings.TrimPrefix(name, "/")
}

func readAll(open func() (io.ReadCloser, error)) (string, error) {
	rc, err := open()
	if err != nil {
		return "", err
	}

	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
