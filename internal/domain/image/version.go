package image

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// errEmptyVersion is returned when the version file has no usable first line.
var errEmptyVersion = errors.New("version file is empty")

// Version is the application version read from the version file.
type Version string

// ReadVersion reads the first line of the version file.
func ReadVersion(path string) (Version, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open version file: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err = scanner.Err(); err != nil {
			return "", fmt.Errorf("read version file: %w", err)
		}

		return "", fmt.Errorf("%s: %w", path, errEmptyVersion)
	}

	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return "", fmt.Errorf("%s: %w", path, errEmptyVersion)
	}

	return Version(line), nil
}

// Short truncates the version at the first "-": 2.0.0-alpha5 -> 2.0.0.
// The packaging executable rejects pre-release suffixes.
func (v Version) Short() string {
	short, _, _ := strings.Cut(string(v), "-")

	return short
}

// String implements fmt.Stringer.
func (v Version) String() string {
	return string(v)
}
