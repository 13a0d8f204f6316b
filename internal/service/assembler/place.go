package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/service/common"
)

// archiveFileMode is the mode of the placed archive.
const archiveFileMode os.FileMode = 0o644

// placeArchive moves the file at src to target, verifying checksum on the
// way. On failure target does not exist.
func placeArchive(ctx context.Context, src, target string, checksum []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	// go-update swaps an existing file; start from an empty one.
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.Create(filepath.Clean(target))
		if createErr != nil {
			return createErr
		}

		_ = placeholder.Close()
	}

	data, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = data.Close()
	}()

	logger.Debug(ctx, "Applying archive")

	err = goupdate.Apply(data, goupdate.Options{
		TargetPath: target,
		TargetMode: archiveFileMode,
		Checksum:   checksum,
		Hash:       common.ChecksumFunction,
	})

	removeOld(target)

	if err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			logger.WarnKV(ctx, "Failed to roll back archive", "error", rollbackErr)
		}

		_ = os.Remove(target)

		return fmt.Errorf("place archive: %w", err)
	}

	return nil
}

// removeOld deletes the previous file go-update leaves behind.
func removeOld(target string) {
	oldFileName := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
	for _, name := range []string{oldFileName, target + ".old"} {
		if _, err := os.Stat(name); err == nil {
			_ = os.Remove(name)
		}
	}
}
