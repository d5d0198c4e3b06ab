package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
)

// Scanner produces one Descriptor per project folder under an allow-listed root.
type Scanner struct {
	allowedRoot string
	logger      zerolog.Logger
}

// NewScanner creates a scanner confined to allowedRoot.
func NewScanner(allowedRoot string, logger zerolog.Logger) *Scanner {
	return &Scanner{
		allowedRoot: allowedRoot,
		logger:      logger.With().Str("component", "scanner").Logger(),
	}
}

// AllowedRoot returns the configured base directory.
func (s *Scanner) AllowedRoot() string {
	return s.allowedRoot
}

// Resolve checks root against the allowed base without scanning.
func (s *Scanner) Resolve(root string) (string, error) {
	return ResolveRoot(root, s.allowedRoot)
}

// Scan walks root/<brand>/<project> and returns descriptors keyed by
// absolute project path. A missing root or brand folder yields no projects.
func (s *Scanner) Scan(ctx context.Context, root string) (map[string]Descriptor, error) {
	resolved, err := s.Resolve(root)
	if err != nil {
		return nil, err
	}

	projects := make(map[string]Descriptor)
	info, err := os.Stat(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Str("root", resolved).Msg("Scan root does not exist")
		return projects, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", resolved)
	}
	base, err := canonical(s.allowedRoot)
	if err != nil {
		return nil, err
	}

	for _, brand := range Brands {
		brandDir := filepath.Join(resolved, brand)
		if !s.confined(brandDir, base) {
			continue
		}
		children, err := os.ReadDir(brandDir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", brandDir, err)
		}
		for _, child := range children {
			if !child.IsDir() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			projectDir := filepath.Join(brandDir, child.Name())
			entries, err := walkProject(projectDir, base)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", projectDir, err)
			}
			projects[projectDir] = NewDescriptor(projectDir, brand, child.Name(), entries)
		}
	}

	s.logger.Debug().Str("root", resolved).Int("projects", len(projects)).Msg("Scan finished")
	return projects, nil
}

// confined reports whether path resolves inside base. Paths that do not
// exist are left to the caller.
func (s *Scanner) confined(path, base string) bool {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return true
	}
	if !within(target, base) {
		s.logger.Warn().Str("path", path).Str("target", target).Msg("Skipping symlink outside allowed root")
		return false
	}
	return true
}

// walkProject lists every file below dir. Files that vanish between listing
// and stat are skipped. Symlinked files are followed only when they resolve
// inside base; symlinked directories are not followed.
func walkProject(dir, base string) ([]FileEntry, error) {
	var entries []FileEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil || !within(target, base) {
				return nil
			}
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, FileEntry{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}
