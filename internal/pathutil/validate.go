// Package pathutil confines caller-supplied file paths to allowed directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/wavecal/internal/constants"
)

// ErrOutsideAllowed is returned when a path resolves outside every allowed
// directory.
var ErrOutsideAllowed = errors.New("pathutil: path outside allowed directories")

// Redact shortens a path to .../<parent>/<base> for error messages, e.g.
// "/home/user/.wavecal/config.yaml" becomes ".../.wavecal/config.yaml".
func Redact(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// Confine resolves path, relative to base when not absolute, follows
// symlinks through its deepest existing ancestor and returns the absolute
// result if it lies inside one of allowed.
func Confine(path, base string, allowed []string) (string, error) {
	switch {
	case path == "":
		return "", fmt.Errorf("path is empty")
	case strings.ContainsRune(path, '\x00'):
		return "", fmt.Errorf("path contains null byte")
	case len(allowed) == 0:
		return "", fmt.Errorf("no allowed directories configured")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", Redact(path), err)
	}
	resolved, err := resolve(abs)
	if err != nil {
		return "", err
	}

	for _, dir := range allowed {
		dirAbs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		dirResolved, err := resolve(dirAbs)
		if err != nil {
			continue
		}
		if within(resolved, dirResolved) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOutsideAllowed, Redact(abs))
}

// resolve evaluates symlinks on the deepest existing ancestor of abs and
// re-appends the part that does not exist yet.
func resolve(abs string) (string, error) {
	var tail []string
	cur := abs
	for {
		r, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				r = filepath.Join(r, tail[i])
			}
			return r, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("cannot resolve %s", Redact(abs))
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}

// within reports whether path is dir or below it. A bare prefix match would
// let "/tmp/foobar" pass for "/tmp/foo".
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator))
}

// ScenarioDirs returns where scenario files may be read from: the project
// root and ~/.wavecal/scenarios when a home directory is known.
func ScenarioDirs(root string) []string {
	dirs := []string{root}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, constants.DataDirName, "scenarios"))
	}
	return dirs
}
