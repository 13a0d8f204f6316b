package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Format is an archive container format.
type Format int

const (
	// FormatUnknown is returned when the header matches nothing known.
	FormatUnknown Format = iota
	// FormatZip covers zip and jar files.
	FormatZip
	// FormatTar is an uncompressed tarball.
	FormatTar
	// FormatTarGzip is a gzip-compressed tarball.
	FormatTarGzip
	// FormatTarZstd is a zstd-compressed tarball.
	FormatTarZstd
)

// tarMagicOffset is where "ustar" lives in a tar header block.
const tarMagicOffset = 257

var (
	magicZip      = []byte("PK\x03\x04")
	magicZipEmpty = []byte("PK\x05\x06") // end-of-central-directory, an empty zip
	magicGzip     = []byte{0x1f, 0x8b}
	magicZstd     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicTar      = []byte("ustar")

	// ErrUnknownFormat is returned for files that are not a supported archive.
	ErrUnknownFormat = errors.New("unknown archive format")
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGzip:
		return "tar.gz"
	case FormatTarZstd:
		return "tar.zst"
	default:
		return "unknown"
	}
}

// DetectFormat inspects the first bytes of the file.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return FormatUnknown, err
	}

	defer func() {
		_ = f.Close()
	}()

	header := make([]byte, tarMagicOffset+len(magicTar))

	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("read header: %w", err)
	}

	header = header[:n]

	switch {
	case bytes.HasPrefix(header, magicZip), bytes.HasPrefix(header, magicZipEmpty):
		return FormatZip, nil
	case bytes.HasPrefix(header, magicGzip):
		return FormatTarGzip, nil
	case bytes.HasPrefix(header, magicZstd):
		return FormatTarZstd, nil
	case len(header) >= tarMagicOffset+len(magicTar) &&
		bytes.Equal(header[tarMagicOffset:tarMagicOffset+len(magicTar)], magicTar):
		return FormatTar, nil
	default:
		return FormatUnknown, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}
