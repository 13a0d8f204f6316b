package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// dirMode is used for directories created during extraction.
	dirMode fs.FileMode = 0o755
	// minFileMode guarantees the owner can read and write extracted files.
	minFileMode fs.FileMode = 0o600
)

var (
	// ErrUnsafePath is returned for entries escaping the destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrNoSingleRoot is returned when stripping requires one top-level
	// directory and the archive does not have exactly that.
	ErrNoSingleRoot = errors.New("archive does not contain exactly one top-level directory")
)

// Option configures Extract.
type Option func(*extractOptions)

type extractOptions struct {
	strip int
}

// StripComponents drops the first n path components of every entry, like
// tar --strip-components. With n > 0 the archive must hold exactly one
// top-level entry and it must be a directory.
func StripComponents(n int) Option {
	return func(o *extractOptions) {
		if n > 0 {
			o.strip = n
		}
	}
}

// Extract unpacks src into dst, creating dst if needed. The format is detected
// from the file header.
func Extract(src, dst string, opts ...Option) error {
	var o extractOptions
	for _, opt := range opts {
		opt(&o)
	}

	format, err := DetectFormat(src)
	if err != nil {
		return err
	}

	if o.strip > 0 {
		if err = checkSingleRoot(src, format); err != nil {
			return err
		}
	}

	if err = os.MkdirAll(dst, dirMode); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	return walk(src, format, func(e *entry) error {
		name := stripPrefix(cleanName(e.name), o.strip)
		if name == "" {
			return nil
		}

		return materialize(dst, name, e, o.strip)
	})
}

// ExtractMatching extracts zip members whose cleaned name satisfies match into
// dst, keeping their relative paths, and returns the extracted names.
func ExtractMatching(src, dst string, match func(name string) bool) ([]string, error) {
	var extracted []string

	err := walkZip(src, func(e *entry) error {
		name := cleanName(e.name)
		if e.kind != kindFile || !match(name) {
			return nil
		}

		if err := materialize(dst, name, e, 0); err != nil {
			return err
		}

		extracted = append(extracted, name)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return extracted, nil
}

// checkSingleRoot verifies the archive has exactly one top-level entry and that
// it is a directory.
func checkSingleRoot(src string, format Format) error {
	var (
		roots     = make(map[string]bool)
		rootOrder []string
	)

	err := walk(src, format, func(e *entry) error {
		name := cleanName(e.name)
		if name == "" {
			return nil
		}

		root, rest, nested := strings.Cut(name, "/")
		isDir := nested && rest != "" || e.kind == kindDir

		if _, seen := roots[root]; !seen {
			rootOrder = append(rootOrder, root)
		}

		roots[root] = roots[root] || isDir

		return nil
	})
	if err != nil {
		return err
	}

	if len(rootOrder) != 1 {
		return fmt.Errorf("%s: found %d top-level entries %v: %w", src, len(rootOrder), rootOrder, ErrNoSingleRoot)
	}

	if !roots[rootOrder[0]] {
		return fmt.Errorf("%s: top-level entry %q is not a directory: %w", src, rootOrder[0], ErrNoSingleRoot)
	}

	return nil
}

func stripPrefix(name string, n int) string {
	for range n {
		_, rest, found := strings.Cut(name, "/")
		if !found {
			return ""
		}

		name = rest
	}

	return name
}

// materialize writes one entry below dst. strip is applied to hard link
// sources the same way it was applied to name.
func materialize(dst, name string, e *entry, strip int) error {
	target, err := safeJoin(dst, name)
	if err != nil {
		return err
	}

	if err = checkParents(dst, target); err != nil {
		return err
	}

	switch e.kind {
	case kindDir:
		return os.MkdirAll(target, dirMode|e.mode.Perm())
	case kindFile:
		return writeFile(target, e)
	case kindSymlink:
		return writeSymlink(dst, target, e.linkname)
	case kindHardlink:
		source, joinErr := safeJoin(dst, stripPrefix(cleanName(e.linkname), strip))
		if joinErr != nil {
			return joinErr
		}

		if err = checkParents(dst, source); err != nil {
			return err
		}

		if err = os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
			return err
		}

		return os.Link(source, target)
	default:
		return nil
	}
}

func writeFile(target string, e *entry) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	rc, err := e.open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", e.name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	// An earlier symlink entry with the same name must not be written through.
	if info, statErr := os.Lstat(target); statErr == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err = os.Remove(target); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, e.mode.Perm()|minFileMode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, rc); err != nil { //nolint:gosec // Archives are trusted build inputs.
		_ = out.Close()

		return fmt.Errorf("write %s: %w", target, err)
	}

	return out.Close()
}

func writeSymlink(dst, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("symlink %s -> %s: %w", target, linkname, ErrUnsafePath)
	}

	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	if !within(dst, resolved) {
		return fmt.Errorf("symlink %s -> %s: %w", target, linkname, ErrUnsafePath)
	}

	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	return os.Symlink(linkname, target)
}

// checkParents fails when a directory between dst and target is a symlink,
// so entries are never written through links created by the same archive.
func checkParents(dst, target string) error {
	rel, err := filepath.Rel(filepath.Clean(dst), filepath.Dir(filepath.Clean(target)))
	if err != nil {
		return fmt.Errorf("%s: %w", target, ErrUnsafePath)
	}

	if rel == "." {
		return nil
	}

	current := filepath.Clean(dst)

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)

		info, statErr := os.Lstat(current)
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil
		}

		if statErr != nil {
			return statErr
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%s: parent %s is a symlink: %w", target, current, ErrUnsafePath)
		}
	}

	return nil
}

func safeJoin(dst, name string) (string, error) {
	target := filepath.Join(dst, filepath.FromSlash(name))
	if !within(dst, target) {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}

	return target, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
