package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
)

// ResolveRoot returns the canonical form of root and checks that it lies
// inside allowed. Only path resolution touches the filesystem.
func ResolveRoot(root, allowed string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("empty scan root: %w", perrors.ErrInvalidInput)
	}
	resolvedRoot, err := canonical(root)
	if err != nil {
		return "", err
	}
	resolvedAllowed, err := canonical(allowed)
	if err != nil {
		return "", err
	}
	if !within(resolvedRoot, resolvedAllowed) {
		return "", fmt.Errorf("%s not within %s: %w", resolvedRoot, resolvedAllowed, perrors.ErrPathOutsideAllowedRoot)
	}
	return resolvedRoot, nil
}

// canonical makes p absolute and resolves symlinks. A path that does not
// exist yet is cleaned only.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return filepath.Clean(abs), nil
		}
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	return resolved, nil
}

func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && !filepath.IsAbs(rel)
}
