package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/service/common"
)

const (
	// LockFilename marks a working directory as in use by a running assembler.
	LockFilename = ".jvm-assembler.lock"

	// lockLifetime is the period after which a lock is reclaimed even if its
	// owner looks alive, since PIDs are reused.
	lockLifetime = 12 * time.Hour

	// lockFileMode is used for the lock file.
	lockFileMode os.FileMode = 0o644
)

// ErrAlreadyRunning is returned when another assembler holds the working directory.
var ErrAlreadyRunning = errors.New("another assembler is running in this working directory")

// workDirLock is an acquired working-directory lock.
type workDirLock struct {
	// path is the lock file.
	path string
}

// acquireLock creates the lock file, reclaiming it first when its owner is gone
// or it outlived lockLifetime.
func acquireLock(ctx context.Context, workDir string) (*workDirLock, error) {
	path := filepath.Join(workDir, LockFilename)

	logger.Debug(ctx, "Checking for the presence of a lock file")

	for range 2 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
		if err == nil {
			_, err = f.WriteString(strconv.Itoa(os.Getpid()))
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}

			if err != nil {
				_ = os.Remove(path)

				return nil, fmt.Errorf("write lock file: %w", err)
			}

			return &workDirLock{path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		if !isStale(ctx, path) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
		}

		logger.InfoKV(ctx, "Reclaiming stale lock file", "path", path)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock file: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
}

// isStale reports whether the lock at path may be taken over.
func isStale(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		// Vanished between open and stat: the next attempt decides.
		return errors.Is(err, os.ErrNotExist)
	}

	if time.Since(info.ModTime()) > lockLifetime {
		logger.Info(ctx, "The lock file is too old")

		return true
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		logger.WarnKV(ctx, "Lock file holds no PID", "path", path)

		return true
	}

	if pid == os.Getpid() {
		return false
	}

	return !common.IsProcessRunning(pid)
}

// release removes the lock file.
func (l *workDirLock) release() error {
	if l == nil {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}
