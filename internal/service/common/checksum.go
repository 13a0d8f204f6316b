//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"crypto"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

// ChecksumFunction is used for archive checksums.
const ChecksumFunction crypto.Hash = crypto.SHA512

var errHashUnavailable = errors.New("hash function unavailable")

// FileChecksum returns the checksum of a file and its size.
func FileChecksum(path string) ([]byte, int64, error) {
	if !ChecksumFunction.Available() {
		return nil, 0, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := ChecksumFunction.New()

	size, err := io.Copy(hasher, f)
	if err != nil {
		return nil, 0, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), size, nil
}
